package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trialogue/internal/llm"
	"trialogue/internal/repository"
	"trialogue/internal/service"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func newTestRouter(t *testing.T, client llm.LLMClient) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	patientsDir := t.TempDir()
	writeFixture(t, patientsDir, "patient_001.json", `{
		"id": "patient_001",
		"name": "Alex",
		"attributes": {"age": 45},
		"conditions": ["type_2_diabetes"]
	}`)

	trialsDir := t.TempDir()
	writeFixture(t, trialsDir, "nct800.json", `{
		"trial_id": "NCT800",
		"title": "Adult Diabetes Study",
		"phase": "Phase 2",
		"criteria": {
			"kind": "all",
			"children": [
				{"kind": "atom", "attr": "age", "op": "age-range", "min": 18, "max": 65},
				{"kind": "atom", "attr": "conditions", "op": "has-condition", "value": "type_2_diabetes"}
			]
		}
	}`)

	logger := zap.NewNop()
	patients, err := repository.NewFilePatientRepository(patientsDir)
	if err != nil {
		t.Fatalf("loading patients: %v", err)
	}
	trials := repository.NewFileTrialRepository(trialsDir)
	store := repository.NewMemorySessionStore(0)
	t.Cleanup(store.Close)

	machine := service.NewDialogueMachine(
		patients, trials,
		service.NewEligibilityEngine(logger),
		service.NewPreferenceScorer(logger),
		repository.NewMemoryPreferenceRepository(),
		logger,
	)
	narrator := service.NewNarrator(client, logger)

	sessionH := NewSessionHandler(logger, store, machine, narrator)
	catalogH := NewCatalogHandler(logger, patients)
	return NewRouter(logger, sessionH, catalogH)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decoding response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func TestHealthAndPatientCatalog(t *testing.T) {
	r := newTestRouter(t, nil)

	w, body := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health failed: %d %v", w.Code, body)
	}

	w, body = doJSON(t, r, http.MethodGet, "/patients", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list patients status %d", w.Code)
	}
	patients := body["patients"].([]any)
	if len(patients) != 1 {
		t.Fatalf("got %d patients, want 1", len(patients))
	}
	entry := patients[0].(map[string]any)
	if entry["id"] != "patient_001" {
		t.Fatalf("unexpected patient entry: %v", entry)
	}
	if _, leaked := entry["attributes"]; leaked {
		t.Fatalf("catalog listing must not leak clinical attributes")
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, &llm.MockClient{Response: "Narrated reply."})

	w, body := doJSON(t, r, http.MethodPost, "/session", map[string]string{"patient_id": "patient_001"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status %d: %v", w.Code, body)
	}
	sessionID := body["session_id"].(string)
	if body["stage"] != "introduce" {
		t.Fatalf("stage %v, want introduce", body["stage"])
	}
	if body["message"] != "Narrated reply." {
		t.Fatalf("narration missing from response: %v", body["message"])
	}

	advance := func(input, wantStage string) map[string]any {
		t.Helper()
		w, body := doJSON(t, r, http.MethodPost, "/session/"+sessionID+"/advance", map[string]string{"input": input})
		if w.Code != http.StatusOK {
			t.Fatalf("advance %q status %d: %v", input, w.Code, body)
		}
		if body["stage"] != wantStage {
			t.Fatalf("advance %q reached %v, want %s", input, body["stage"], wantStage)
		}
		return body
	}

	advance("hello", "confirm_info")
	body = advance("yes", "review_trials")
	facts := body["facts"].(map[string]any)
	if facts["eligible_count"].(float64) != 1 {
		t.Fatalf("eligible count %v, want 1", facts["eligible_count"])
	}

	// Con un único elegible se omiten las preguntas de preferencia.
	advance("ok", "final_recommendation")
	advance("thanks", "done")

	w, body = doJSON(t, r, http.MethodPost, "/session/"+sessionID+"/advance", map[string]string{"input": "more"})
	if w.Code != http.StatusConflict {
		t.Fatalf("advancing a finished session: status %d, want 409 (%v)", w.Code, body)
	}

	w, body = doJSON(t, r, http.MethodGet, "/session/"+sessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session status %d", w.Code)
	}
	session := body["session"].(map[string]any)
	if session["stage"] != "done" {
		t.Fatalf("persisted stage %v, want done", session["stage"])
	}
}

// Los Advance sobre una sesión se serializan y los GET leen copias: el
// martilleo concurrente no debe corromper el estado ni producir errores 5xx.
func TestConcurrentAdvanceAndGetKeepSessionConsistent(t *testing.T) {
	r := newTestRouter(t, nil)

	_, body := doJSON(t, r, http.MethodPost, "/session", map[string]string{"patient_id": "patient_001"})
	sessionID := body["session_id"].(string)

	var wg sync.WaitGroup
	codes := make(chan int, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/session/"+sessionID+"/advance",
				bytes.NewBufferString(`{"input":"yes"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes <- w.Code
		}()
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session/"+sessionID, nil))
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK && code != http.StatusConflict {
			t.Fatalf("concurrent request returned %d", code)
		}
	}

	w, body := doJSON(t, r, http.MethodGet, "/session/"+sessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session status %d", w.Code)
	}
	session := body["session"].(map[string]any)
	if session["stage"] != "done" {
		t.Fatalf("after 20 affirmative turns the session should be done, got %v", session["stage"])
	}
}

func TestAdvanceUnknownSessionIs404(t *testing.T) {
	r := newTestRouter(t, nil)
	w, _ := doJSON(t, r, http.MethodPost, "/session/ghost/advance", map[string]string{"input": "hi"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestCreateSessionWithUnknownPatientIs404(t *testing.T) {
	r := newTestRouter(t, nil)
	w, _ := doJSON(t, r, http.MethodPost, "/session", map[string]string{"patient_id": "patient_999"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestCreateSessionWithoutPatientStartsAtSelection(t *testing.T) {
	r := newTestRouter(t, nil)
	w, body := doJSON(t, r, http.MethodPost, "/session", map[string]string{})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %v", w.Code, body)
	}
	if body["stage"] != "select_patient" {
		t.Fatalf("stage %v, want select_patient", body["stage"])
	}
	sessionID := body["session_id"].(string)

	w, body = doJSON(t, r, http.MethodPost, "/session/"+sessionID+"/advance", map[string]string{"input": "patient_001"})
	if w.Code != http.StatusOK || body["stage"] != "introduce" {
		t.Fatalf("selecting over HTTP failed: %d %v", w.Code, body)
	}
	if fmt.Sprint(body["message"]) == "" {
		t.Fatalf("fallback narration missing")
	}
}
