package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"trialogue/internal/domain"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	defer store.Close()

	session := &domain.Session{ID: "s1", Stage: domain.StageConfirmInfo}
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if session.ExpiresAt.IsZero() {
		t.Fatalf("save did not stamp the expiry")
	}

	got, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stage != domain.StageConfirmInfo {
		t.Fatalf("stage lost in store: %s", got.Stage)
	}
}

func TestMemorySessionStoreExpiresLazily(t *testing.T) {
	store := NewMemorySessionStore(time.Millisecond)
	defer store.Close()

	session := &domain.Session{ID: "s2", Stage: domain.StageIntroduce}
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := store.Get(context.Background(), "s2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session should be gone, got %v", err)
	}
}

func TestMemorySessionStoreReturnsIndependentCopies(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	defer store.Close()

	session := &domain.Session{
		ID:    "s5",
		Stage: domain.StageConfirmInfo,
		Patient: domain.PatientProfile{
			ID:         "patient_001",
			Attributes: map[string]domain.AttrValue{"age": domain.NumberAttr(45)},
		},
	}
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutar la sesión del llamador tras guardar no debe tocar lo almacenado.
	session.Stage = domain.StageDone
	session.Patient.Attributes["age"] = domain.NumberAttr(99)

	got, err := store.Get(context.Background(), "s5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stage != domain.StageConfirmInfo {
		t.Fatalf("stored session shares state with the caller: stage %s", got.Stage)
	}
	if got.Patient.Attributes["age"].Num != 45 {
		t.Fatalf("stored attribute map shares state with the caller")
	}

	// Ni mutar lo leído debe afectar a lecturas posteriores.
	got.Stage = domain.StageNoMatch
	got.Patient.Attributes["age"] = domain.NumberAttr(1)

	again, err := store.Get(context.Background(), "s5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Stage != domain.StageConfirmInfo || again.Patient.Attributes["age"].Num != 45 {
		t.Fatalf("a read handed out the stored session itself instead of a copy")
	}
}

func TestMemorySessionStoreDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	defer store.Close()

	_ = store.Save(context.Background(), &domain.Session{ID: "s3"})
	if err := store.Delete(context.Background(), "s3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), "s3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted session still present, got %v", err)
	}
}

func TestMemorySessionStoreRejectsEmptyID(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	defer store.Close()

	if err := store.Save(context.Background(), &domain.Session{}); err == nil {
		t.Fatalf("session without id should not be stored")
	}
}

func TestMemoryPreferenceRepositoryArchives(t *testing.T) {
	repo := NewMemoryPreferenceRepository()
	prefs := domain.NewPreferenceProfile()
	prefs.AddWeight(domain.DimPhaseLate, 1)

	if err := repo.SavePreferences(context.Background(), "s1", "patient_001", prefs); err != nil {
		t.Fatalf("save preferences: %v", err)
	}
	if err := repo.SaveScores(context.Background(), "s1", []domain.ScoredTrial{{TrialID: "NCT1", Rank: 1}}); err != nil {
		t.Fatalf("save scores: %v", err)
	}
	if repo.Prefs["s1"].Weights[domain.DimPhaseLate] != 1 {
		t.Fatalf("preferences not archived")
	}
	if len(repo.Scores["s1"]) != 1 {
		t.Fatalf("scores not archived")
	}
}
