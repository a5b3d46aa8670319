package domain

import "time"

// Stage es el estado del diálogo. Salvo la re-entrada a confirm_info por
// corrección, la máquina avanza como un DAG hasta un estado terminal.
type Stage string

const (
	StageSelectPatient       Stage = "select_patient"
	StageIntroduce           Stage = "introduce"
	StageConfirmInfo         Stage = "confirm_info"
	StageReviewTrials        Stage = "review_trials"
	StagePreferenceQuestions Stage = "preference_questions"
	StageFinalRecommendation Stage = "final_recommendation"
	StageNoMatch             Stage = "no_match"
	StageDone                Stage = "done"
)

// Terminal indica si la etapa no admite más transiciones.
func (s Stage) Terminal() bool { return s == StageDone || s == StageNoMatch }

// Session es el único estado mutable por conversación. La máquina de diálogo
// es su único dueño lógico; un turno en vuelo por sesión.
type Session struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	Stage     Stage  `json:"stage"`

	// Copia del paciente con atributos confirmados/editados durante el diálogo.
	Patient PatientProfile `json:"patient"`

	CorrectionRounds int `json:"correction_rounds"`
	QuestionRounds   int `json:"question_rounds"`

	Eligibility []EligibilityResult       `json:"eligibility,omitempty"`
	Preferences PreferenceProfile         `json:"preferences"`
	Ranked      []ScoredTrial             `json:"ranked,omitempty"`
	Warnings    []PreferenceWeightWarning `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Clone devuelve una copia profunda. El store guarda y entrega copias para
// que un turno en vuelo nunca comparta estado mutable con un lector.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Patient = s.Patient.Clone()
	out.Preferences = s.Preferences.Clone()
	if s.Eligibility != nil {
		out.Eligibility = make([]EligibilityResult, len(s.Eligibility))
		for i, r := range s.Eligibility {
			r.Criteria = append([]CriterionOutcome(nil), r.Criteria...)
			out.Eligibility[i] = r
		}
	}
	if s.Ranked != nil {
		out.Ranked = make([]ScoredTrial, len(s.Ranked))
		for i, r := range s.Ranked {
			r.Breakdown = append([]DimensionScore(nil), r.Breakdown...)
			out.Ranked[i] = r
		}
	}
	out.Warnings = append([]PreferenceWeightWarning(nil), s.Warnings...)
	return &out
}

// EligibleCount cuenta veredictos eligible en los resultados cacheados.
func (s *Session) EligibleCount() int {
	n := 0
	for _, r := range s.Eligibility {
		if r.Verdict == VerdictEligible && r.Evaluated() {
			n++
		}
	}
	return n
}

// EligibleIDs devuelve los trial ids elegibles en orden de catálogo.
func (s *Session) EligibleIDs() []string {
	var ids []string
	for _, r := range s.Eligibility {
		if r.Verdict == VerdictEligible && r.Evaluated() {
			ids = append(ids, r.TrialID)
		}
	}
	return ids
}
