package service

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"trialogue/internal/domain"
)

// normalizer proyecta un atributo de ensayo al rango [0,1]; ok=false cuando el
// dato necesario no está en el perfil del ensayo.
type normalizer func(trial domain.TrialProfile, prefs domain.PreferenceProfile) (score float64, ok bool)

var dimensionNormalizers = map[string]normalizer{
	domain.DimPhaseEarly: func(t domain.TrialProfile, _ domain.PreferenceProfile) (float64, bool) {
		p := t.PhaseNumber()
		if p == 0 {
			return 0, false
		}
		return float64(4-p) / 3, true
	},
	domain.DimPhaseLate: func(t domain.TrialProfile, _ domain.PreferenceProfile) (float64, bool) {
		p := t.PhaseNumber()
		if p == 0 {
			return 0, false
		}
		return float64(p-1) / 3, true
	},
	domain.DimLowInvasiveness: func(t domain.TrialProfile, _ domain.PreferenceProfile) (float64, bool) {
		level, ok := t.InvasivenessLevel()
		if !ok {
			return 0, false
		}
		return (5 - level) / 4, true
	},
	domain.DimLocation: func(t domain.TrialProfile, prefs domain.PreferenceProfile) (float64, bool) {
		if prefs.Location == "" || t.Location == "" {
			return 0, false
		}
		if strings.Contains(strings.ToLower(t.Location), strings.ToLower(prefs.Location)) {
			return 1, true
		}
		return 0, true
	},
	domain.DimShortDuration: func(t domain.TrialProfile, _ domain.PreferenceProfile) (float64, bool) {
		if t.DurationWeeks <= 0 {
			return 0, false
		}
		s := 1 - t.DurationWeeks/104
		if s < 0 {
			s = 0
		}
		return s, true
	},
}

// Aporte neutral de una dimensión sin dato: no premia ni castiga al ensayo.
const unknownNeutral = 0.5

// PreferenceScorer ordena los ensayos elegibles por afinidad con las
// preferencias elicitadas. Determinista: mismos pesos y catálogo producen el
// mismo ranking, con desempate total.
type PreferenceScorer struct {
	log *zap.Logger
}

func NewPreferenceScorer(log *zap.Logger) *PreferenceScorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &PreferenceScorer{log: log}
}

// Score calcula el ranking. Un peso sobre una dimensión desconocida genera un
// warning y se ignora; nunca aborta el scoring.
func (s *PreferenceScorer) Score(trials []domain.TrialProfile, prefs domain.PreferenceProfile) ([]domain.ScoredTrial, []domain.PreferenceWeightWarning) {
	var warnings []domain.PreferenceWeightWarning
	dims := make([]string, 0, len(prefs.Weights))
	for dim := range prefs.Weights {
		if _, ok := dimensionNormalizers[dim]; !ok {
			warnings = append(warnings, domain.PreferenceWeightWarning{
				Dimension: dim,
				Reason:    fmt.Sprintf("weight references unknown dimension %q, ignored", dim),
			})
			s.log.Warn("ignoring weight on unknown preference dimension", zap.String("dimension", dim))
			continue
		}
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	scored := make([]domain.ScoredTrial, 0, len(trials))
	for _, trial := range trials {
		scored = append(scored, s.scoreTrial(trial, prefs, dims))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.UnknownDims != b.UnknownDims {
			return a.UnknownDims < b.UnknownDims
		}
		ia, ib := sortInvasiveness(trials, a.TrialID), sortInvasiveness(trials, b.TrialID)
		if ia != ib {
			return ia < ib
		}
		return a.TrialID < b.TrialID
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored, warnings
}

func (s *PreferenceScorer) scoreTrial(trial domain.TrialProfile, prefs domain.PreferenceProfile, dims []string) domain.ScoredTrial {
	row := domain.ScoredTrial{TrialID: trial.ID, Title: trial.Title}
	for _, dim := range dims {
		weight := prefs.Weights[dim]
		normalized, known := dimensionNormalizers[dim](trial, prefs)
		if !known {
			normalized = unknownNeutral
			row.UnknownDims++
		}
		contribution := weight * normalized
		row.Total += contribution
		row.Breakdown = append(row.Breakdown, domain.DimensionScore{
			Dimension:    dim,
			Weight:       weight,
			Normalized:   normalized,
			Contribution: contribution,
			Known:        known,
		})
	}
	return row
}

// Invasividad para el desempate; los ensayos sin nivel se ordenan al final.
func sortInvasiveness(trials []domain.TrialProfile, id string) float64 {
	for _, t := range trials {
		if t.ID == id {
			if level, ok := t.InvasivenessLevel(); ok {
				return level
			}
			return 6
		}
	}
	return 6
}
