package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	PatientProfilesDir string `env:"PATIENT_PROFILES_DIR" envDefault:"data/patient_profiles"`
	TrialProfilesDir   string `env:"TRIAL_PROFILES_DIR" envDefault:"data/trial_profiles"`

	// Sin API key el narrador degrada al render determinista de hechos.
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	// Postgres es opcional: sin URL la auditoría de preferencias va a memoria.
	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionTTLMinutes   int `env:"SESSION_TTL_MINUTES" envDefault:"30"`
	MaxCorrectionRounds int `env:"MAX_CORRECTION_ROUNDS" envDefault:"3"`
	MaxQuestionRounds   int `env:"MAX_QUESTION_ROUNDS" envDefault:"3"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
