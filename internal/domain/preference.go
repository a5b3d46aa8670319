package domain

// Dimensiones de preferencia soportadas por el motor de scoring.
const (
	DimPhaseEarly      = "phase_early"
	DimPhaseLate       = "phase_late"
	DimLowInvasiveness = "low_invasiveness"
	DimLocation        = "location"
	DimShortDuration   = "short_duration"
)

// PreferenceQA registra una pregunta de preferencia y su respuesta cruda.
type PreferenceQA struct {
	Number    int    `json:"number"`
	Dimension string `json:"dimension"`
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer"`
}

// PreferenceProfile acumula los pesos elicitados durante el diálogo.
// Las dimensiones ausentes no penalizan ni inflan el score.
type PreferenceProfile struct {
	Weights  map[string]float64 `json:"weights"`
	Location string             `json:"location,omitempty"`
	Answers  []PreferenceQA     `json:"answers,omitempty"`
}

func NewPreferenceProfile() PreferenceProfile {
	return PreferenceProfile{Weights: make(map[string]float64)}
}

// Answered indica si el paciente respondió al menos una dimensión.
func (p PreferenceProfile) Answered() bool { return len(p.Weights) > 0 }

// Clone copia el perfil completo, mapa de pesos incluido.
func (p PreferenceProfile) Clone() PreferenceProfile {
	out := p
	if p.Weights != nil {
		out.Weights = make(map[string]float64, len(p.Weights))
		for k, v := range p.Weights {
			out.Weights[k] = v
		}
	}
	out.Answers = append([]PreferenceQA(nil), p.Answers...)
	return out
}

// AddWeight acumula peso sobre una dimensión.
func (p *PreferenceProfile) AddWeight(dim string, w float64) {
	if p.Weights == nil {
		p.Weights = make(map[string]float64)
	}
	p.Weights[dim] += w
}

// PreferenceWeightWarning registra un peso que referencia una dimensión
// desconocida; no es fatal, el scoring continúa ignorándola.
type PreferenceWeightWarning struct {
	Dimension string `json:"dimension"`
	Reason    string `json:"reason"`
}

// DimensionScore es la contribución de una dimensión al score de un ensayo.
type DimensionScore struct {
	Dimension    string  `json:"dimension"`
	Weight       float64 `json:"weight"`
	Normalized   float64 `json:"normalized"`
	Contribution float64 `json:"contribution"`
	Known        bool    `json:"known"`
}

// ScoredTrial es una fila del ranking. Se crea fresca en cada pasada de
// scoring y se descarta tras renderizar la recomendación.
type ScoredTrial struct {
	TrialID     string           `json:"trial_id"`
	Title       string           `json:"title,omitempty"`
	Total       float64          `json:"total"`
	Rank        int              `json:"rank"`
	Breakdown   []DimensionScore `json:"breakdown"`
	UnknownDims int              `json:"unknown_dims"`
}
