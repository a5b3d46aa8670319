package domain

// Verdict es el resultado de verificar un ensayo contra un paciente.
type Verdict string

const (
	VerdictEligible      Verdict = "eligible"
	VerdictIneligible    Verdict = "ineligible"
	VerdictIndeterminate Verdict = "indeterminate"
)

// VerdictFromTriState mapea la raíz del árbol de criterios al veredicto.
func VerdictFromTriState(t TriState) Verdict {
	switch t {
	case TriTrue:
		return VerdictEligible
	case TriFalse:
		return VerdictIneligible
	default:
		return VerdictIndeterminate
	}
}

// CriterionOutcome es una línea del rastro de auditoría que se muestra al
// paciente: un átomo, su resultado y la razón templada.
type CriterionOutcome struct {
	Criterion string `json:"criterion"`
	Outcome   string `json:"outcome"` // satisfied | not_satisfied | unknown
	Reason    string `json:"reason"`
}

// EligibilityResult es el veredicto por ensayo con sus explicaciones en el
// orden declarado de los criterios (estable entre llamadas).
type EligibilityResult struct {
	TrialID    string             `json:"trial_id"`
	TrialTitle string             `json:"trial_title,omitempty"`
	Verdict    Verdict            `json:"verdict"`
	Criteria   []CriterionOutcome `json:"criteria"`

	// EvaluationError marca un ensayo cuyos criterios no pudieron evaluarse
	// (CriteriaParseError). El ensayo nunca se descarta en silencio.
	EvaluationError string `json:"evaluation_error,omitempty"`
}

// Evaluated indica si el ensayo produjo un veredicto real.
func (r EligibilityResult) Evaluated() bool { return r.EvaluationError == "" }
