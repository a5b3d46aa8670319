package domain

// PatientSummary es el resumen estructurado que el colaborador de NLG
// convierte en prosa de confirmación.
type PatientSummary struct {
	ID         string               `json:"id"`
	Name       string               `json:"name,omitempty"`
	Note       string               `json:"note,omitempty"`
	Attributes map[string]AttrValue `json:"attributes,omitempty"`
}

// PreferenceQuestion describe la pregunta de preferencia pendiente.
type PreferenceQuestion struct {
	Number    int    `json:"number"`
	Dimension string `json:"dimension"`
	IsFinal   bool   `json:"is_final"`
}

// TrialSummary es la vista mínima de un ensayo dentro de un hecho.
type TrialSummary struct {
	TrialID      string   `json:"trial_id"`
	Title        string   `json:"title"`
	Phase        string   `json:"phase,omitempty"`
	BriefSummary string   `json:"brief_summary,omitempty"`
	Diseases     []string `json:"diseases,omitempty"`
}

// Facts es el objeto de hechos estructurados que cada transición emite hacia
// el colaborador de generación de texto. Nunca contiene prosa y es idempotente:
// puede regenerarse sin efectos si la llamada de narración se reintenta.
type Facts struct {
	Stage               Stage                     `json:"stage"`
	PatientSummary      *PatientSummary           `json:"patient_summary,omitempty"`
	EligibilityResults  []EligibilityResult       `json:"eligibility_results,omitempty"`
	EligibleCount       int                       `json:"eligible_count"`
	RankedTrials        []ScoredTrial             `json:"ranked_trials,omitempty"`
	RecommendedTrial    *TrialSummary             `json:"recommended_trial,omitempty"`
	Question            *PreferenceQuestion       `json:"question,omitempty"`
	Warnings            []PreferenceWeightWarning `json:"warnings,omitempty"`
	ClarificationNeeded string                    `json:"clarification_needed,omitempty"`
	UserInput           string                    `json:"user_input,omitempty"`
	Outro               bool                      `json:"outro,omitempty"`
}
