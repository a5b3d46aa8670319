package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"trialogue/internal/config"
	"trialogue/internal/db"
	apihttp "trialogue/internal/http"
	"trialogue/internal/llm"
	"trialogue/internal/repository"
	"trialogue/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	patientRepo, err := repository.NewFilePatientRepository(cfg.PatientProfilesDir)
	if err != nil {
		logger.Fatal("loading patient profiles", zap.Error(err))
	}
	trialRepo := repository.NewFileTrialRepository(cfg.TrialProfilesDir)

	// La auditoría de preferencias usa Postgres cuando hay URL; si no, memoria.
	var prefRepo repository.PreferenceRepository = repository.NewMemoryPreferenceRepository()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		pg := repository.NewPgPreferenceRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		prefRepo = pg
	}

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	var sessionStore repository.SessionStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory sessions", zap.Error(err))
		} else {
			sessionStore = repository.NewRedisSessionStore(redisClient, sessionTTL)
		}
		cancel()
	}
	if sessionStore == nil {
		memStore := repository.NewMemorySessionStore(sessionTTL)
		defer memStore.Close()
		sessionStore = memStore
	}

	var llmClient service.LLMClient
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	} else {
		logger.Warn("llm api key not configured, narration will use plain fact rendering")
	}

	machine := service.NewDialogueMachine(
		patientRepo,
		trialRepo,
		service.NewEligibilityEngine(logger),
		service.NewPreferenceScorer(logger),
		prefRepo,
		logger,
	).WithRoundLimits(cfg.MaxCorrectionRounds, cfg.MaxQuestionRounds)
	narrator := service.NewNarrator(llmClient, logger)

	sessionHandler := apihttp.NewSessionHandler(logger, sessionStore, machine, narrator)
	catalogHandler := apihttp.NewCatalogHandler(logger, patientRepo)
	router := apihttp.NewRouter(logger, sessionHandler, catalogHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
