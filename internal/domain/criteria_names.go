package domain

import (
	"regexp"
	"strings"
)

// Normalización de nombres de variable de los perfiles minificados
// (patient_has_x_inthehistory, _now_in_years, etc.) para comparar criterios
// contra atributos del paciente.

var (
	reIntheSuffix = regexp.MustCompile(`_inthe[a-z0-9]+$`)
	reNowIn       = regexp.MustCompile(`_now_in`)
)

var trailingSuffixes = []string{"_now", "_currently", "_present", "_active"}

// NormalizeVariableName limpia sufijos temporales de un nombre de variable.
func NormalizeVariableName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = reIntheSuffix.ReplaceAllString(n, "")
	n = reNowIn.ReplaceAllString(n, "_in")
	for _, suffix := range trailingSuffixes {
		if strings.HasSuffix(n, suffix) {
			n = strings.TrimSuffix(n, suffix)
			break
		}
	}
	return n
}

// IsGenderVariable detecta criterios de sexo/género mutuamente excluyentes.
func IsGenderVariable(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "patient_sex_is_") || strings.Contains(n, "patient_gender_is_")
}

// IgnoredVariable marca criterios que se descartan durante la compilación:
// edad registrada en meses o días cuando ya existe la edad en años.
func IgnoredVariable(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "patient_age_value_recorded") &&
		(strings.Contains(n, "in_months") || strings.Contains(n, "in_days")) {
		return true
	}
	return false
}

var readablePrefixes = []string{"patient_has_", "patient_can_", "patients_", "patient_"}

var readableReplacer = strings.NewReplacer(
	"inthehistory", "in the past",
	"in the history", "in the past",
	" now", " currently",
	" hx", " history",
	" dx", " diagnosis",
	" tx", " treatment",
	"undergone ", "",
	"underwent ", "",
	"diagnosis of ", "",
	"finding of ", "",
	"symptoms of ", "",
)

// ReadableCriterionName convierte un nombre de variable en texto legible para
// las explicaciones de elegibilidad.
func ReadableCriterionName(name string) string {
	readable := strings.ToLower(name)
	for _, prefix := range readablePrefixes {
		if strings.HasPrefix(readable, prefix) {
			readable = strings.TrimPrefix(readable, prefix)
			break
		}
	}
	readable = strings.ReplaceAll(readable, "_", " ")
	readable = readableReplacer.Replace(readable)
	readable = strings.Join(strings.Fields(readable), " ")
	if readable == "" {
		return name
	}
	return strings.ToUpper(readable[:1]) + readable[1:]
}
