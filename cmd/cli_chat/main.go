package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"trialogue/internal/config"
	"trialogue/internal/domain"
	"trialogue/internal/llm"
	"trialogue/internal/repository"
	"trialogue/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	patientRepo, err := repository.NewFilePatientRepository(cfg.PatientProfilesDir)
	if err != nil {
		log.Fatalf("cargar pacientes: %v", err)
	}
	trialRepo := repository.NewFileTrialRepository(cfg.TrialProfilesDir)

	var llmClient service.LLMClient
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	} else {
		fmt.Println("(LLM_API_KEY no configurada: las respuestas usan el render de hechos)")
	}

	machine := service.NewDialogueMachine(
		patientRepo,
		trialRepo,
		service.NewEligibilityEngine(logger),
		service.NewPreferenceScorer(logger),
		repository.NewMemoryPreferenceRepository(),
		logger,
	).WithRoundLimits(cfg.MaxCorrectionRounds, cfg.MaxQuestionRounds)
	narrator := service.NewNarrator(llmClient, logger)

	for {
		patients, err := patientRepo.List(ctx)
		if err != nil {
			log.Fatalf("listar pacientes: %v", err)
		}
		if len(patients) == 0 {
			log.Fatalf("no hay perfiles de paciente en %s", cfg.PatientProfilesDir)
		}

		fmt.Println("===== Trial Matching =====")
		fmt.Println("Pacientes disponibles:")
		for i, p := range patients {
			name := p.Name
			if name == "" {
				name = p.ID
			}
			fmt.Printf("[%d] %s (ID: %s)\n", i+1, name, p.ID)
		}
		fmt.Println("[Q] Salir")
		fmt.Print("Selecciona un paciente: ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)
		if strings.EqualFold(choice, "Q") {
			return
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(patients) {
			fmt.Println("Seleccion invalida.")
			continue
		}

		if err := runConversation(ctx, reader, machine, narrator, patients[idx-1].ID); err != nil {
			log.Printf("error en conversacion: %v", err)
		}
	}
}

func runConversation(
	ctx context.Context,
	reader *bufio.Reader,
	machine *service.DialogueMachine,
	narrator *service.Narrator,
	patientID string,
) error {
	session := machine.NewSession()

	facts, err := machine.Advance(ctx, session, patientID)
	if err != nil {
		return fmt.Errorf("seleccionar paciente: %w", err)
	}
	fmt.Printf("\nAssistant > %s\n", narrator.Narrate(ctx, facts))

	// La introducción avanza sola hacia la confirmación de datos.
	facts, err = machine.Advance(ctx, session, "")
	if err != nil {
		return err
	}
	fmt.Printf("\nAssistant > %s\n", narrator.Narrate(ctx, facts))

	for !session.Stage.Terminal() {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		facts, err = machine.Advance(ctx, session, text)
		if err != nil {
			var violation *domain.StateTransitionViolation
			if errors.As(err, &violation) {
				fmt.Printf("(%s)\n", violation.Reason)
				continue
			}
			return err
		}
		fmt.Printf("\nAssistant > %s\n", narrator.Narrate(ctx, facts))
	}
	fmt.Println()
	return nil
}
