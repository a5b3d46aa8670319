package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trialogue/internal/domain"
)

// PatientRepository expone el catálogo de pacientes. Los perfiles son de solo
// lectura: la sesión trabaja siempre sobre una copia.
type PatientRepository interface {
	List(ctx context.Context) ([]domain.PatientProfile, error)
	GetByID(ctx context.Context, id string) (domain.PatientProfile, error)
}

// patientFile es la forma en disco: atributos con literales JSON crudos más la
// lista de condiciones heredada, que se funde en el atributo "conditions".
type patientFile struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name"`
	Note       string                      `json:"note"`
	Attributes map[string]domain.AttrValue `json:"attributes"`
	Conditions []string                    `json:"conditions"`
}

// FilePatientRepository lee perfiles *.json de un directorio, en orden de
// nombre de archivo. Carga todo en memoria en el primer acceso.
type FilePatientRepository struct {
	dir      string
	patients []domain.PatientProfile
	byID     map[string]domain.PatientProfile
}

func NewFilePatientRepository(dir string) (*FilePatientRepository, error) {
	repo := &FilePatientRepository{dir: dir, byID: make(map[string]domain.PatientProfile)}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FilePatientRepository) load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading patient profiles dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading patient profile %s: %w", name, err)
		}
		profile, err := decodePatient(data)
		if err != nil {
			return fmt.Errorf("decoding patient profile %s: %w", name, err)
		}
		if profile.ID == "" {
			profile.ID = strings.TrimSuffix(name, ".json")
		}
		r.patients = append(r.patients, profile)
		r.byID[profile.ID] = profile
	}
	return nil
}

func decodePatient(data []byte) (domain.PatientProfile, error) {
	var f patientFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.PatientProfile{}, err
	}
	profile := domain.PatientProfile{
		ID:         f.ID,
		Name:       f.Name,
		Note:       f.Note,
		Attributes: f.Attributes,
	}
	if profile.Attributes == nil {
		profile.Attributes = make(map[string]domain.AttrValue)
	}
	if len(f.Conditions) > 0 {
		normalized := make([]string, 0, len(f.Conditions))
		for _, c := range f.Conditions {
			normalized = append(normalized, domain.NormalizeVariableName(c))
		}
		existing := profile.Attributes["conditions"]
		if existing.Kind == domain.AttrSet {
			normalized = append(existing.Set, normalized...)
		}
		profile.Attributes["conditions"] = domain.SetAttr(normalized...)
	}
	return profile, nil
}

func (r *FilePatientRepository) List(_ context.Context) ([]domain.PatientProfile, error) {
	out := make([]domain.PatientProfile, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r *FilePatientRepository) GetByID(_ context.Context, id string) (domain.PatientProfile, error) {
	p, ok := r.byID[id]
	if !ok {
		return domain.PatientProfile{}, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}
