package domain

import (
	"encoding/json"
	"strings"
)

// TrialProfile describe un ensayo del catálogo: metadata, criterios y
// atributos de scoring. Inmutable tras la carga del catálogo.
type TrialProfile struct {
	ID            string   `json:"trial_id"`
	Title         string   `json:"title"`
	BriefSummary  string   `json:"brief_summary,omitempty"`
	Phase         string   `json:"phase,omitempty"`
	Diseases      []string `json:"diseases,omitempty"`
	Interventions []string `json:"interventions,omitempty"`
	Location      string   `json:"location,omitempty"`
	DurationWeeks float64  `json:"duration_weeks,omitempty"`

	// Criterios estructurados (formato preferido) o listas planas heredadas.
	RawCriteria       json.RawMessage `json:"criteria,omitempty"`
	InclusionCriteria []string        `json:"inclusion_criteria,omitempty"`
	ExclusionCriteria []string        `json:"exclusion_criteria,omitempty"`

	// Invasividad explícita 1-5; 0 significa "derivar de las intervenciones".
	Invasiveness float64 `json:"invasiveness,omitempty"`
}

// Palabras que marcan un ensayo como invasivo cuando no hay nivel explícito.
var invasiveKeywords = []string{
	"surgery", "surgical", "invasive", "injection", "biopsy",
	"catheter", "endoscopy", "procedure", "operation",
}

// PhaseNumber extrae la fase numérica 1-4 del texto de fase; 0 si no se conoce.
func (t TrialProfile) PhaseNumber() int {
	p := strings.ToLower(strings.TrimSpace(t.Phase))
	if p == "" || p == "not listed" || p == "n/a" {
		return 0
	}
	switch {
	case strings.Contains(p, "phase 4"), strings.Contains(p, "phase iv"):
		return 4
	case strings.Contains(p, "phase 3"), strings.Contains(p, "phase iii"):
		return 3
	case strings.Contains(p, "phase 2"), strings.Contains(p, "phase ii"):
		return 2
	case strings.Contains(p, "phase 1"), strings.Contains(p, "phase i"):
		return 1
	}
	return 0
}

// InvasivenessLevel devuelve el nivel 1-5. Si no viene explícito, deriva un
// nivel grueso del texto de intervenciones y resumen (1 o 4).
func (t TrialProfile) InvasivenessLevel() (float64, bool) {
	if t.Invasiveness >= 1 && t.Invasiveness <= 5 {
		return t.Invasiveness, true
	}
	text := strings.ToLower(strings.Join(t.Interventions, " ") + " " + t.BriefSummary)
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	for _, kw := range invasiveKeywords {
		if strings.Contains(text, kw) {
			return 4, true
		}
	}
	return 1, true
}
