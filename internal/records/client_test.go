package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
)

func clientSubmission() *explore.Submission {
	return &explore.Submission{
		Cards:           []int{2, 15},
		BeforeLevels:    map[int]int{2: 4, 15: 3},
		AfterLevels:     map[int]int{2: 1},
		StoryBackground: "a long week",
		StoryExpect:     explore.ExpectYes,
	}
}

func TestClient_CreateRecord(t *testing.T) {
	var _ explore.Recorder = (*Client)(nil)

	var got struct {
		Cards        []int          `json:"cards"`
		BeforeLevels map[string]int `json:"beforeLevels"`
		StoryExpect  *int           `json:"storyExpect"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/records" {
			t.Errorf("request = %s %s, want POST /api/records", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode error = %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.CreateRecord(context.Background(), clientSubmission()); err != nil {
		t.Fatalf("CreateRecord error = %v", err)
	}

	if len(got.Cards) != 2 || got.Cards[0] != 2 {
		t.Errorf("cards on the wire = %v", got.Cards)
	}
	if got.BeforeLevels["15"] != 3 {
		t.Errorf("beforeLevels on the wire = %v", got.BeforeLevels)
	}
	// ExpectYes travels as 0
	if got.StoryExpect == nil || *got.StoryExpect != 0 {
		t.Errorf("storyExpect on the wire = %v, want 0", got.StoryExpect)
	}
}

func TestClient_StructuredErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "SELECTION_TOO_LARGE",
				"message": "too many cards selected: 4 (max 3)",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	err := c.CreateRecord(context.Background(), clientSubmission())
	if !errors.Is(err, errors.ErrSelectionTooLarge) {
		t.Fatalf("CreateRecord = %v, want SELECTION_TOO_LARGE", err)
	}
	wErr := err.(*errors.WavemoError)
	if wErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d, want 422", wErr.Status)
	}
}

func TestClient_OpaqueFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	err := c.CreateRecord(context.Background(), clientSubmission())
	if !errors.Is(err, errors.ErrSubmitFailed) {
		t.Fatalf("CreateRecord = %v, want SUBMIT_FAILED", err)
	}
	wErr := err.(*errors.WavemoError)
	if retryable, _ := wErr.Details["retryable"].(bool); !retryable {
		t.Error("opaque failures must be marked retryable")
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // the port is now dead

	c := NewClient(srv.URL, 2*time.Second)
	err := c.CreateRecord(context.Background(), clientSubmission())
	if !errors.Is(err, errors.ErrSubmitFailed) {
		t.Fatalf("CreateRecord = %v, want SUBMIT_FAILED", err)
	}
}

func TestClient_FailedSubmitLeavesWorkflowState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store, err := explore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error = %v", err)
	}
	if err := store.AddCard(explore.SelectedCard{ID: 2, Name: "快樂", CategoryID: 1, CategoryName: "快樂"}); err != nil {
		t.Fatalf("AddCard error = %v", err)
	}
	before := store.State()

	c := NewClient(srv.URL, 2*time.Second)
	if err := store.Submit(context.Background(), c); err == nil {
		t.Fatal("Submit against a failing server should error")
	}

	after := store.State()
	if len(after.SelectedCards) != len(before.SelectedCards) {
		t.Error("failed submit changed the workflow selection")
	}
}
