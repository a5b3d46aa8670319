package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trialogue/internal/domain"
	"trialogue/internal/repository"
)

// Límites por defecto para mantener el diálogo finito.
const (
	DefaultMaxCorrectionRounds = 3
	DefaultMaxQuestionRounds   = 3
)

// Dimensiones sobre las que pregunta el diálogo, en orden fijo.
var questionDimensions = []string{"phase", "invasiveness", "priority"}

// DialogueMachine es el dueño del estado de sesión. Cada Advance consume una
// entrada del usuario, aplica la transición con sus guards y devuelve el
// objeto de hechos para el colaborador de narración. Nunca produce prosa.
type DialogueMachine struct {
	patients repository.PatientRepository
	trials   repository.TrialRepository

	eligibility *EligibilityEngine
	scorer      *PreferenceScorer
	audit       repository.PreferenceRepository

	maxCorrectionRounds int
	maxQuestionRounds   int
	log                 *zap.Logger
}

func NewDialogueMachine(
	patients repository.PatientRepository,
	trials repository.TrialRepository,
	eligibility *EligibilityEngine,
	scorer *PreferenceScorer,
	audit repository.PreferenceRepository,
	log *zap.Logger,
) *DialogueMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &DialogueMachine{
		patients:            patients,
		trials:              trials,
		eligibility:         eligibility,
		scorer:              scorer,
		audit:               audit,
		maxCorrectionRounds: DefaultMaxCorrectionRounds,
		maxQuestionRounds:   DefaultMaxQuestionRounds,
		log:                 log,
	}
}

// WithRoundLimits ajusta los límites de rondas de corrección y preguntas.
func (m *DialogueMachine) WithRoundLimits(corrections, questions int) *DialogueMachine {
	if corrections > 0 {
		m.maxCorrectionRounds = corrections
	}
	if questions > 0 {
		m.maxQuestionRounds = questions
	}
	return m
}

// NewSession crea una sesión vacía en la etapa inicial.
func (m *DialogueMachine) NewSession() *domain.Session {
	now := time.Now().UTC()
	return &domain.Session{
		ID:          uuid.NewString(),
		Stage:       domain.StageSelectPatient,
		Preferences: domain.NewPreferenceProfile(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance ejecuta una transición. La sesión solo muta si la transición es
// válida; ante StateTransitionViolation queda intacta en su etapa actual.
func (m *DialogueMachine) Advance(ctx context.Context, session *domain.Session, input string) (domain.Facts, error) {
	if session == nil {
		return domain.Facts{}, &domain.StateTransitionViolation{Reason: "nil session"}
	}
	if session.Stage.Terminal() {
		return domain.Facts{}, &domain.StateTransitionViolation{From: session.Stage, Reason: "session already ended"}
	}

	input = strings.TrimSpace(input)

	// Una despedida en cualquier etapa no terminal cierra la conversación.
	if session.Stage != domain.StageSelectPatient && isConversationEnd(input) {
		session.Stage = domain.StageDone
		return domain.Facts{Stage: domain.StageDone, Outro: true, UserInput: input}, nil
	}

	switch session.Stage {
	case domain.StageSelectPatient:
		return m.advanceSelectPatient(ctx, session, input)
	case domain.StageIntroduce:
		return m.advanceIntroduce(session)
	case domain.StageConfirmInfo:
		return m.advanceConfirmInfo(ctx, session, input)
	case domain.StageReviewTrials:
		return m.advanceReviewTrials(ctx, session, input)
	case domain.StagePreferenceQuestions:
		return m.advancePreferenceQuestions(ctx, session, input)
	case domain.StageFinalRecommendation:
		session.Stage = domain.StageDone
		return domain.Facts{Stage: domain.StageDone, Outro: true, UserInput: input}, nil
	}
	return domain.Facts{}, &domain.StateTransitionViolation{From: session.Stage, Reason: "unknown stage"}
}

func (m *DialogueMachine) advanceSelectPatient(ctx context.Context, session *domain.Session, input string) (domain.Facts, error) {
	if input == "" {
		return domain.Facts{}, &domain.StateTransitionViolation{From: session.Stage, Reason: "patient id required"}
	}
	patient, err := m.patients.GetByID(ctx, input)
	if err != nil {
		return domain.Facts{}, fmt.Errorf("selecting patient: %w", err)
	}
	session.PatientID = patient.ID
	session.Patient = patient.Clone()
	session.Stage = domain.StageIntroduce

	m.log.Info("patient selected", zap.String("session_id", session.ID), zap.String("patient_id", patient.ID))
	return domain.Facts{
		Stage:          domain.StageIntroduce,
		PatientSummary: m.patientSummary(session),
	}, nil
}

func (m *DialogueMachine) advanceIntroduce(session *domain.Session) (domain.Facts, error) {
	session.Stage = domain.StageConfirmInfo
	return domain.Facts{
		Stage:          domain.StageConfirmInfo,
		PatientSummary: m.patientSummary(session),
	}, nil
}

func (m *DialogueMachine) advanceConfirmInfo(ctx context.Context, session *domain.Session, input string) (domain.Facts, error) {
	edits := parseCorrections(input)

	switch {
	case len(edits) > 0 && session.CorrectionRounds < m.maxCorrectionRounds:
		for attr, value := range edits {
			session.Patient.Attributes[attr] = value
		}
		session.CorrectionRounds++
		// Re-entrada a la misma etapa con el resumen actualizado.
		return domain.Facts{
			Stage:          domain.StageConfirmInfo,
			PatientSummary: m.patientSummary(session),
			UserInput:      input,
		}, nil

	case isAffirmative(input), session.CorrectionRounds >= m.maxCorrectionRounds:
		return m.runEligibility(ctx, session)

	default:
		session.CorrectionRounds++
		if session.CorrectionRounds >= m.maxCorrectionRounds {
			return m.runEligibility(ctx, session)
		}
		return domain.Facts{
			Stage:               domain.StageConfirmInfo,
			PatientSummary:      m.patientSummary(session),
			ClarificationNeeded: "confirm the profile or correct it as attribute=value",
			UserInput:           input,
		}, nil
	}
}

// runEligibility es la única transición que consulta el catálogo de ensayos.
func (m *DialogueMachine) runEligibility(ctx context.Context, session *domain.Session) (domain.Facts, error) {
	trials, err := m.trials.ListForPatient(ctx, session.PatientID)
	if err != nil {
		return domain.Facts{}, fmt.Errorf("loading trial catalog: %w", err)
	}
	results, err := m.eligibility.VerifyAll(trials, session.Patient)
	if err != nil {
		return domain.Facts{}, fmt.Errorf("verifying eligibility: %w", err)
	}
	session.Eligibility = results

	if m.audit != nil {
		if err := m.audit.SaveTrialCharacteristics(ctx, trials); err != nil {
			m.log.Warn("could not archive trial characteristics", zap.Error(err))
		}
	}

	if session.EligibleCount() == 0 {
		session.Stage = domain.StageNoMatch
		m.log.Info("no eligible trials for patient",
			zap.String("session_id", session.ID), zap.String("patient_id", session.PatientID))
		return domain.Facts{
			Stage:              domain.StageNoMatch,
			EligibilityResults: session.Eligibility,
			EligibleCount:      0,
		}, nil
	}

	session.Stage = domain.StageReviewTrials
	return domain.Facts{
		Stage:              domain.StageReviewTrials,
		EligibilityResults: session.Eligibility,
		EligibleCount:      session.EligibleCount(),
	}, nil
}

func (m *DialogueMachine) advanceReviewTrials(ctx context.Context, session *domain.Session, input string) (domain.Facts, error) {
	// Con un único ensayo elegible las preguntas de preferencia no aportan.
	if session.EligibleCount() == 1 {
		return m.finishWithRanking(ctx, session)
	}
	session.Stage = domain.StagePreferenceQuestions
	session.QuestionRounds = 0
	return domain.Facts{
		Stage:         domain.StagePreferenceQuestions,
		EligibleCount: session.EligibleCount(),
		Question:      m.question(1),
		UserInput:     input,
	}, nil
}

func (m *DialogueMachine) advancePreferenceQuestions(ctx context.Context, session *domain.Session, input string) (domain.Facts, error) {
	number := session.QuestionRounds + 1
	dimension := questionDimensions[(number-1)%len(questionDimensions)]
	interpretAnswer(&session.Preferences, dimension, input)
	session.Preferences.Answers = append(session.Preferences.Answers, domain.PreferenceQA{
		Number:    number,
		Dimension: dimension,
		Answer:    input,
	})
	session.QuestionRounds++

	if session.QuestionRounds >= m.maxQuestionRounds {
		return m.finishWithRanking(ctx, session)
	}
	return domain.Facts{
		Stage:         domain.StagePreferenceQuestions,
		EligibleCount: session.EligibleCount(),
		Question:      m.question(session.QuestionRounds + 1),
		UserInput:     input,
	}, nil
}

// finishWithRanking puntúa los elegibles, archiva el resultado y emite la
// recomendación final.
func (m *DialogueMachine) finishWithRanking(ctx context.Context, session *domain.Session) (domain.Facts, error) {
	trials, err := m.trials.ListForPatient(ctx, session.PatientID)
	if err != nil {
		return domain.Facts{}, fmt.Errorf("loading trial catalog: %w", err)
	}
	eligible := filterTrials(trials, session.EligibleIDs())

	if loc, ok := session.Patient.Attributes["location"]; ok && loc.Kind == domain.AttrString {
		session.Preferences.Location = loc.Str
	}

	ranked, warnings := m.scorer.Score(eligible, session.Preferences)
	session.Ranked = ranked
	session.Warnings = warnings
	session.Stage = domain.StageFinalRecommendation

	if m.audit != nil {
		if err := m.audit.SavePreferences(ctx, session.ID, session.PatientID, session.Preferences); err != nil {
			m.log.Warn("could not archive preferences", zap.Error(err))
		}
		if err := m.audit.SaveScores(ctx, session.ID, ranked); err != nil {
			m.log.Warn("could not archive scores", zap.Error(err))
		}
	}

	facts := domain.Facts{
		Stage:         domain.StageFinalRecommendation,
		EligibleCount: len(eligible),
		RankedTrials:  ranked,
		Warnings:      warnings,
	}
	if len(ranked) > 0 {
		if top := findTrial(eligible, ranked[0].TrialID); top != nil {
			facts.RecommendedTrial = &domain.TrialSummary{
				TrialID:      top.ID,
				Title:        top.Title,
				Phase:        top.Phase,
				BriefSummary: top.BriefSummary,
				Diseases:     top.Diseases,
			}
		}
	}
	return facts, nil
}

func (m *DialogueMachine) question(number int) *domain.PreferenceQuestion {
	return &domain.PreferenceQuestion{
		Number:    number,
		Dimension: questionDimensions[(number-1)%len(questionDimensions)],
		IsFinal:   number >= m.maxQuestionRounds,
	}
}

func (m *DialogueMachine) patientSummary(session *domain.Session) *domain.PatientSummary {
	return &domain.PatientSummary{
		ID:         session.Patient.ID,
		Name:       session.Patient.Name,
		Note:       session.Patient.Note,
		Attributes: session.Patient.Attributes,
	}
}

func filterTrials(trials []domain.TrialProfile, ids []string) []domain.TrialProfile {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.TrialProfile
	for _, t := range trials {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func findTrial(trials []domain.TrialProfile, id string) *domain.TrialProfile {
	for i := range trials {
		if trials[i].ID == id {
			return &trials[i]
		}
	}
	return nil
}

// interpretAnswer mapea la respuesta cruda a pesos de dimensión. Palabras
// clave heredadas del guion de elicitación.
func interpretAnswer(prefs *domain.PreferenceProfile, dimension, answer string) {
	a := strings.ToLower(answer)
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(a, w) {
				return true
			}
		}
		return false
	}

	switch dimension {
	case "phase":
		if contains("early", "experimental", "cutting") {
			prefs.AddWeight(domain.DimPhaseEarly, 1)
		} else if contains("late", "established", "proven", "safe") {
			prefs.AddWeight(domain.DimPhaseLate, 1)
		}
	case "invasiveness":
		if contains("avoid", "non-invasive", "not invasive", "no surgery", "gentle") {
			prefs.AddWeight(domain.DimLowInvasiveness, 1)
		}
	case "priority":
		switch {
		case contains("safety"):
			prefs.AddWeight(domain.DimPhaseLate, 0.8)
		case contains("innovation", "new"):
			prefs.AddWeight(domain.DimPhaseEarly, 0.8)
		case contains("convenience", "close", "near"):
			prefs.AddWeight(domain.DimLocation, 1)
		case contains("short", "duration"):
			prefs.AddWeight(domain.DimShortDuration, 1)
		}
	}
}

var affirmativeWords = []string{"yes", "correct", "right", "ok", "okay", "looks good", "confirm", "sure"}

func isAffirmative(input string) bool {
	a := strings.ToLower(strings.TrimSpace(input))
	for _, w := range affirmativeWords {
		if a == w || strings.HasPrefix(a, w+" ") || strings.HasPrefix(a, w+",") {
			return true
		}
	}
	return false
}

var endPhrases = []string{
	"bye", "goodbye", "quit", "exit", "stop",
	"that's all", "thats all", "no more",
	"thanks", "thank you",
}

func isConversationEnd(input string) bool {
	a := strings.ToLower(strings.TrimSpace(input))
	for _, p := range endPhrases {
		if a == p || strings.HasPrefix(a, p+" ") || strings.HasPrefix(a, p+".") || strings.HasPrefix(a, p+"!") {
			return true
		}
	}
	return false
}

// parseCorrections extrae pares attribute=value separados por coma o punto y
// coma. El tipo del valor se infiere: número, booleano o texto.
func parseCorrections(input string) map[string]domain.AttrValue {
	edits := make(map[string]domain.AttrValue)
	for _, part := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ';' }) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		attr := strings.ToLower(strings.TrimSpace(kv[0]))
		raw := strings.TrimSpace(kv[1])
		if attr == "" || raw == "" || strings.ContainsRune(attr, ' ') {
			continue
		}
		edits[attr] = inferCorrectionValue(raw)
	}
	if len(edits) == 0 {
		return nil
	}
	return edits
}

func inferCorrectionValue(raw string) domain.AttrValue {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return domain.NumberAttr(n)
	}
	switch strings.ToLower(raw) {
	case "true", "yes":
		return domain.BoolAttr(true)
	case "false", "no":
		return domain.BoolAttr(false)
	}
	return domain.StringAttr(raw)
}
