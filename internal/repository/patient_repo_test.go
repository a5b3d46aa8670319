package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trialogue/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func TestFilePatientRepositoryLoadsProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "patient_002.json", `{
		"id": "patient_002",
		"name": "Sam",
		"attributes": {"age": 62, "sex": "male", "smoker": true}
	}`)
	writeFile(t, dir, "patient_001.json", `{
		"id": "patient_001",
		"name": "Alex",
		"attributes": {"age": 45},
		"conditions": ["patient_has_type_2_diabetes_now", "hypertension"]
	}`)
	writeFile(t, dir, "notes.txt", "not a profile")

	repo, err := NewFilePatientRepository(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	patients, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("got %d patients, want 2", len(patients))
	}
	if patients[0].ID != "patient_001" {
		t.Fatalf("profiles not in filename order: first is %s", patients[0].ID)
	}

	alex := patients[0]
	if alex.Attributes["age"].Num != 45 {
		t.Fatalf("raw number literal not inferred: %+v", alex.Attributes["age"])
	}
	conditions := alex.Attributes["conditions"]
	if conditions.Kind != domain.AttrSet || len(conditions.Set) != 2 {
		t.Fatalf("conditions list not merged into the set attribute: %+v", conditions)
	}
	if conditions.Set[0] != "patient_has_type_2_diabetes" {
		t.Fatalf("conditions not normalized on load: %v", conditions.Set)
	}

	sam, err := repo.GetByID(context.Background(), "patient_002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sam.Attributes["smoker"].Kind != domain.AttrBool || !sam.Attributes["smoker"].Bool {
		t.Fatalf("bool literal not inferred: %+v", sam.Attributes["smoker"])
	}
}

func TestFilePatientRepositoryGetByIDReturnsClones(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "p.json", `{"id": "p", "attributes": {"age": 45}}`)

	repo, err := NewFilePatientRepository(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := repo.GetByID(context.Background(), "p")
	first.Attributes["age"] = domain.NumberAttr(99)

	second, _ := repo.GetByID(context.Background(), "p")
	if second.Attributes["age"].Num != 45 {
		t.Fatalf("catalog mutated through a returned profile")
	}
}

func TestFilePatientRepositoryNotFound(t *testing.T) {
	repo, err := NewFilePatientRepository(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestFilePatientRepositoryRejectsMalformedProfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"attributes": {"age": {"nested": true}}}`)

	if _, err := NewFilePatientRepository(dir); err == nil {
		t.Fatalf("malformed attribute literal should fail the load")
	}
}
