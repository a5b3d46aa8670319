package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"trialogue/internal/domain"
)

// Narrator convierte el objeto de hechos de cada transición en prosa mediante
// el LLM. Si no hay cliente o el LLM falla, degrada a un render determinista
// de los mismos hechos: el diálogo nunca se bloquea por narración.
type Narrator struct {
	client LLMClient
	log    *zap.Logger
}

// LLMClient es la única superficie que el narrador necesita del paquete llm.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func NewNarrator(client LLMClient, log *zap.Logger) *Narrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Narrator{client: client, log: log}
}

// Narrate es idempotente: reintentar con los mismos hechos no cambia la sesión.
func (n *Narrator) Narrate(ctx context.Context, facts domain.Facts) string {
	rendered := RenderFacts(facts)
	if n.client == nil {
		return rendered
	}

	prompt := n.buildPrompt(facts, rendered)
	text, err := n.client.Generate(ctx, prompt)
	if err != nil {
		n.log.Warn("narration fell back to plain rendering", zap.Error(err))
		return rendered
	}
	return strings.TrimSpace(text)
}

func (n *Narrator) buildPrompt(facts domain.Facts, rendered string) string {
	switch facts.Stage {
	case domain.StageIntroduce:
		return fmt.Sprintf(introducePromptTemplate, rendered)
	case domain.StageConfirmInfo:
		return fmt.Sprintf(confirmInfoPromptTemplate, rendered)
	case domain.StageReviewTrials:
		return fmt.Sprintf(reviewTrialsPromptTemplate, rendered)
	case domain.StageNoMatch:
		return fmt.Sprintf(noMatchPromptTemplate, rendered)
	case domain.StagePreferenceQuestions:
		number, topic := 1, "the patient's priorities"
		if facts.Question != nil {
			number = facts.Question.Number
			topic = questionTopic(facts.Question.Dimension)
		}
		return fmt.Sprintf(preferenceQuestionPromptTemplate, number, topic, rendered)
	case domain.StageFinalRecommendation:
		return fmt.Sprintf(finalRecommendationPromptTemplate, rendered)
	}
	return fmt.Sprintf(outroPromptTemplate, rendered)
}

func questionTopic(dimension string) string {
	switch dimension {
	case "phase":
		return "whether the patient prefers early experimental trials or later, more established ones"
	case "invasiveness":
		return "how the patient feels about invasive procedures such as surgery or injections"
	case "priority":
		return "what matters most to the patient: safety, innovation, convenience or a short trial"
	}
	return dimension
}

// RenderFacts produce el texto determinista de respaldo. También sirve como
// hoja de hechos dentro del prompt.
func RenderFacts(facts domain.Facts) string {
	var b strings.Builder

	switch facts.Stage {
	case domain.StageIntroduce:
		fmt.Fprintf(&b, "Hello%s. I will confirm your recorded health information and then look for clinical trials that may fit you.\n",
			patientGreeting(facts.PatientSummary))

	case domain.StageConfirmInfo:
		b.WriteString("Here is the information I have on file:\n")
		writePatientSummary(&b, facts.PatientSummary)
		if facts.ClarificationNeeded != "" {
			fmt.Fprintf(&b, "I did not understand that. Please %s.\n", facts.ClarificationNeeded)
		} else {
			b.WriteString("Is everything correct? You can reply yes, or correct a field as attribute=value.\n")
		}

	case domain.StageReviewTrials:
		fmt.Fprintf(&b, "I checked %d trial(s); %d look(s) eligible for you.\n", len(facts.EligibilityResults), facts.EligibleCount)
		writeEligibility(&b, facts.EligibilityResults)
		b.WriteString("Next I will ask a few questions about your preferences.\n")

	case domain.StageNoMatch:
		b.WriteString("I am sorry: none of the available trials match your profile right now.\n")
		writeEligibility(&b, facts.EligibilityResults)
		b.WriteString("New trials open regularly, so it is worth checking back.\n")

	case domain.StagePreferenceQuestions:
		if facts.Question != nil {
			fmt.Fprintf(&b, "Question %d: %s\n", facts.Question.Number, questionTopic(facts.Question.Dimension))
		}

	case domain.StageFinalRecommendation:
		writeRanking(&b, facts)

	case domain.StageDone:
		b.WriteString("Thank you for your time. Please discuss any trial with your doctor before enrolling. Goodbye!\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func patientGreeting(summary *domain.PatientSummary) string {
	if summary != nil && summary.Name != "" {
		return " " + summary.Name
	}
	return ""
}

func writePatientSummary(b *strings.Builder, summary *domain.PatientSummary) {
	if summary == nil {
		return
	}
	keys := make([]string, 0, len(summary.Attributes))
	for k := range summary.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  - %s: %s\n", strings.ReplaceAll(k, "_", " "), summary.Attributes[k].Display())
	}
}

func writeEligibility(b *strings.Builder, results []domain.EligibilityResult) {
	for _, r := range results {
		title := r.TrialTitle
		if title == "" {
			title = r.TrialID
		}
		if !r.Evaluated() {
			fmt.Fprintf(b, "  - %s: could not be evaluated (%s)\n", title, r.EvaluationError)
			continue
		}
		fmt.Fprintf(b, "  - %s: %s\n", title, r.Verdict)
		for _, c := range r.Criteria {
			fmt.Fprintf(b, "      %s [%s]: %s\n", c.Criterion, c.Outcome, c.Reason)
		}
	}
}

func writeRanking(b *strings.Builder, facts domain.Facts) {
	if facts.RecommendedTrial != nil {
		fmt.Fprintf(b, "Based on your preferences, my top recommendation is %s", facts.RecommendedTrial.Title)
		if facts.RecommendedTrial.Phase != "" {
			fmt.Fprintf(b, " (%s)", facts.RecommendedTrial.Phase)
		}
		b.WriteString(".\n")
	}
	for _, row := range facts.RankedTrials {
		title := row.Title
		if title == "" {
			title = row.TrialID
		}
		fmt.Fprintf(b, "  %d. %s (score %.2f)\n", row.Rank, title, row.Total)
	}
	for _, w := range facts.Warnings {
		fmt.Fprintf(b, "  note: %s\n", w.Reason)
	}
}
