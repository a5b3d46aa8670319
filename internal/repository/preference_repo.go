package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"trialogue/internal/domain"
)

// PreferenceRepository archiva las preferencias elicitadas y los rankings
// producidos, para auditoría posterior. Nunca participa en el camino de
// decisión del diálogo.
type PreferenceRepository interface {
	SavePreferences(ctx context.Context, sessionID, patientID string, prefs domain.PreferenceProfile) error
	SaveScores(ctx context.Context, sessionID string, ranked []domain.ScoredTrial) error
	SaveTrialCharacteristics(ctx context.Context, trials []domain.TrialProfile) error
}

type PgPreferenceRepository struct {
	pool *pgxpool.Pool
}

func NewPgPreferenceRepository(pool *pgxpool.Pool) *PgPreferenceRepository {
	return &PgPreferenceRepository{pool: pool}
}

// EnsureSchema crea las tablas de auditoría si no existen.
func (r *PgPreferenceRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS user_preferences (
			session_id  TEXT NOT NULL,
			patient_id  TEXT NOT NULL,
			dimension   TEXT NOT NULL,
			weight      DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, dimension)
		);
		CREATE TABLE IF NOT EXISTS trial_characteristics (
			trial_id       TEXT PRIMARY KEY,
			phase          INT NOT NULL,
			invasiveness   DOUBLE PRECISION NOT NULL,
			duration_weeks DOUBLE PRECISION NOT NULL,
			location       TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS preference_scores (
			session_id TEXT NOT NULL,
			trial_id   TEXT NOT NULL,
			rank       INT NOT NULL,
			total      DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, trial_id)
		);
	`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

func (r *PgPreferenceRepository) SavePreferences(ctx context.Context, sessionID, patientID string, prefs domain.PreferenceProfile) error {
	const query = `
		INSERT INTO user_preferences (session_id, patient_id, dimension, weight)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, dimension) DO UPDATE SET weight = EXCLUDED.weight
	`
	for dim, weight := range prefs.Weights {
		if _, err := r.pool.Exec(ctx, query, sessionID, patientID, dim, weight); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgPreferenceRepository) SaveScores(ctx context.Context, sessionID string, ranked []domain.ScoredTrial) error {
	const query = `
		INSERT INTO preference_scores (session_id, trial_id, rank, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, trial_id) DO UPDATE
		SET rank = EXCLUDED.rank, total = EXCLUDED.total
	`
	for _, row := range ranked {
		if _, err := r.pool.Exec(ctx, query, sessionID, row.TrialID, row.Rank, row.Total); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgPreferenceRepository) SaveTrialCharacteristics(ctx context.Context, trials []domain.TrialProfile) error {
	const query = `
		INSERT INTO trial_characteristics (trial_id, phase, invasiveness, duration_weeks, location)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (trial_id) DO UPDATE
		SET phase = EXCLUDED.phase, invasiveness = EXCLUDED.invasiveness,
		    duration_weeks = EXCLUDED.duration_weeks, location = EXCLUDED.location
	`
	for _, t := range trials {
		level, _ := t.InvasivenessLevel()
		if _, err := r.pool.Exec(ctx, query, t.ID, t.PhaseNumber(), level, t.DurationWeeks, t.Location); err != nil {
			return err
		}
	}
	return nil
}

// MemoryPreferenceRepository es el fallback sin base de datos.
type MemoryPreferenceRepository struct {
	mu     sync.Mutex
	Prefs  map[string]domain.PreferenceProfile
	Scores map[string][]domain.ScoredTrial
}

func NewMemoryPreferenceRepository() *MemoryPreferenceRepository {
	return &MemoryPreferenceRepository{
		Prefs:  make(map[string]domain.PreferenceProfile),
		Scores: make(map[string][]domain.ScoredTrial),
	}
}

func (r *MemoryPreferenceRepository) SavePreferences(_ context.Context, sessionID, _ string, prefs domain.PreferenceProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prefs[sessionID] = prefs
	return nil
}

func (r *MemoryPreferenceRepository) SaveScores(_ context.Context, sessionID string, ranked []domain.ScoredTrial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scores[sessionID] = ranked
	return nil
}

func (r *MemoryPreferenceRepository) SaveTrialCharacteristics(context.Context, []domain.TrialProfile) error {
	return nil
}
