package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"trialogue/internal/domain"
)

// TrialRepository expone el catálogo de ensayos candidatos para un paciente.
// El orden de catálogo es estable: define el orden de los veredictos.
type TrialRepository interface {
	ListForPatient(ctx context.Context, patientID string) ([]domain.TrialProfile, error)
}

// FileTrialRepository lee <dir>/<patientID>/*.json; si el paciente no tiene
// subdirectorio propio usa los *.json de la raíz como catálogo compartido.
type FileTrialRepository struct {
	dir string
}

func NewFileTrialRepository(dir string) *FileTrialRepository {
	return &FileTrialRepository{dir: dir}
}

func (r *FileTrialRepository) ListForPatient(_ context.Context, patientID string) ([]domain.TrialProfile, error) {
	dir := filepath.Join(r.dir, patientID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = r.dir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading trial profiles dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	trials := make([]domain.TrialProfile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading trial profile %s: %w", name, err)
		}
		var trial domain.TrialProfile
		if err := json.Unmarshal(data, &trial); err != nil {
			return nil, fmt.Errorf("decoding trial profile %s: %w", name, err)
		}
		if trial.ID == "" {
			trial.ID = strings.TrimSuffix(name, ".json")
		}
		trials = append(trials, trial)
	}
	return trials, nil
}

// PgTrialRepository lee el catálogo desde Postgres cuando hay pool configurado.
type PgTrialRepository struct {
	pool *pgxpool.Pool
}

func NewPgTrialRepository(pool *pgxpool.Pool) *PgTrialRepository {
	return &PgTrialRepository{pool: pool}
}

func (r *PgTrialRepository) ListForPatient(ctx context.Context, patientID string) ([]domain.TrialProfile, error) {
	const query = `
		SELECT trial_id, title, brief_summary, phase, diseases, interventions,
		       location, duration_weeks, criteria, inclusion_criteria,
		       exclusion_criteria, invasiveness
		FROM trials
		WHERE patient_id = $1 OR patient_id IS NULL
		ORDER BY trial_id
	`
	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []domain.TrialProfile
	for rows.Next() {
		var t domain.TrialProfile
		var criteria []byte
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.BriefSummary,
			&t.Phase,
			&t.Diseases,
			&t.Interventions,
			&t.Location,
			&t.DurationWeeks,
			&criteria,
			&t.InclusionCriteria,
			&t.ExclusionCriteria,
			&t.Invasiveness,
		); err != nil {
			return nil, err
		}
		t.RawCriteria = json.RawMessage(criteria)
		trials = append(trials, t)
	}
	return trials, rows.Err()
}
