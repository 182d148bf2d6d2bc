package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/wavemo/wavemo/internal/catalog"
	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/db"
	"github.com/wavemo/wavemo/internal/explore"
	"github.com/wavemo/wavemo/internal/records"
)

// setupCLI creates an app backed by a temporary database and flow state.
func setupCLI(t *testing.T) (*cli.App, *sql.DB, *explore.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := catalog.EnsureSeed(database); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	flow, err := explore.Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open flow state: %v", err)
	}

	return newCLIApp(database, config.DefaultConfig(), flow), database, flow
}

// runApp runs the app with the given args, capturing stdout.
func runApp(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"wavemo"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// mustJSON runs the app and decodes its JSON output into out.
func mustJSON(t *testing.T, app *cli.App, out any, args ...string) {
	t.Helper()

	output, err := runApp(t, app, args...)
	if err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	if err := json.Unmarshal([]byte(output), out); err != nil {
		t.Fatalf("failed to parse output of %v: %v\nOutput: %s", args, err, output)
	}
}

// TestArgInt tests the argInt helper function.
func TestArgInt(t *testing.T) {
	app := &cli.App{
		Name: "test",
		Action: func(c *cli.Context) error {
			v, err := argInt(c, 0, "card-id")
			if err != nil {
				return err
			}
			if v != 42 {
				t.Errorf("expected 42, got %d", v)
			}
			return nil
		},
	}

	if err := app.Run([]string{"test", "42"}); err != nil {
		t.Errorf("valid integer: %v", err)
	}
	if err := app.Run([]string{"test", "forty-two"}); err == nil {
		t.Error("expected error for non-integer argument")
	}
	if err := app.Run([]string{"test"}); err == nil {
		t.Error("expected error for missing argument")
	}
}

// TestDateRange tests the dateRange helper function.
func TestDateRange(t *testing.T) {
	tests := []struct {
		name        string
		from        string
		to          string
		wantFrom    int64
		wantTo      int64
		expectError bool
	}{
		{
			name: "both empty",
		},
		{
			name:     "from only",
			from:     "2026-01-01",
			wantFrom: 1767225600,
		},
		{
			name:   "to covers the whole day",
			to:     "2026-01-01",
			wantTo: 1767311999,
		},
		{
			name:        "bad from",
			from:        "January 1st",
			expectError: true,
		},
		{
			name:        "bad to",
			to:          "2026-13-99",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := dateRange(tt.from, tt.to)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if from != tt.wantFrom || to != tt.wantTo {
				t.Errorf("got (%d, %d), want (%d, %d)", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

// TestCLICards tests the cards command.
func TestCLICards(t *testing.T) {
	app, _, _ := setupCLI(t)

	var output struct {
		Categories []struct {
			Category catalog.Category `json:"category"`
			Cards    []catalog.Card   `json:"cards"`
		} `json:"categories"`
	}
	mustJSON(t, app, &output, "cards")

	if len(output.Categories) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(output.Categories))
	}
	if output.Categories[0].Category.Slug != "happy" {
		t.Errorf("first category = %q, want happy", output.Categories[0].Category.Slug)
	}
	if len(output.Categories[0].Cards) == 0 {
		t.Error("first category has no cards")
	}

	var filtered struct {
		Category catalog.Category `json:"category"`
		Cards    []catalog.Card   `json:"cards"`
	}
	mustJSON(t, app, &filtered, "cards", "--category", "anger")
	if filtered.Category.Slug != "anger" {
		t.Errorf("filtered category = %q, want anger", filtered.Category.Slug)
	}

	if _, err := runApp(t, app, "cards", "--category", "joyfulness"); err == nil {
		t.Error("expected error for unknown category")
	} else if !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("unknown category error = %q, want NOT_FOUND code", err.Error())
	}
}

// TestCLICard tests the card command.
func TestCLICard(t *testing.T) {
	app, _, _ := setupCLI(t)

	var card catalog.Card
	mustJSON(t, app, &card, "card", "2")
	if card.Name != "快樂" {
		t.Errorf("card 2 name = %q, want 快樂", card.Name)
	}

	if _, err := runApp(t, app, "card", "9999"); err == nil {
		t.Error("expected error for unknown card")
	} else if !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("unknown card error = %q, want NOT_FOUND code", err.Error())
	}
}

// TestCLIFlow walks the whole journaling flow through CLI commands.
func TestCLIFlow(t *testing.T) {
	app, database, flow := setupCLI(t)

	// Selection step requires exactly three cards.
	var status statusOutput
	mustJSON(t, app, &status, "pick", "2")
	mustJSON(t, app, &status, "pick", "51")
	if status.Valid {
		t.Error("two cards should not satisfy the selection gate")
	}
	mustJSON(t, app, &status, "pick", "15")
	if !status.Valid {
		t.Errorf("three cards should satisfy the selection gate: %s", status.Message)
	}
	if status.State.SelectedCards[0].Name != "快樂" {
		t.Errorf("first snapshot = %+v", status.State.SelectedCards[0])
	}

	mustJSON(t, app, &status, "next")
	if status.Step != "strength-1" {
		t.Fatalf("step after next = %q, want strength-1", status.Step)
	}

	// The rating gate refuses next until all three cards have a level.
	if _, err := runApp(t, app, "next"); err == nil {
		t.Error("expected next to be refused before rating")
	} else if !strings.Contains(err.Error(), "[STEP_INCOMPLETE]") {
		t.Errorf("ungated next error = %q, want STEP_INCOMPLETE code", err.Error())
	}
	for _, id := range []string{"2", "51", "15"} {
		mustJSON(t, app, &status, "rate", id, "4")
	}
	mustJSON(t, app, &status, "next")

	mustJSON(t, app, &status, "story",
		"--background", "missed the bus in the rain",
		"--feeling", "soaked and annoyed",
		"--expect", "no",
	)
	if status.State.StoryBackground != "missed the bus in the rain" {
		t.Errorf("story background = %q", status.State.StoryBackground)
	}

	mustJSON(t, app, &status, "next")
	mustJSON(t, app, &status, "next")
	mustJSON(t, app, &status, "rate", "--after", "2", "1")
	if status.State.AfterLevels[2] != 1 {
		t.Errorf("after level for card 2 = %d, want 1", status.State.AfterLevels[2])
	}
	mustJSON(t, app, &status, "next")
	if status.Step != "complete" {
		t.Fatalf("step before submit = %q, want complete", status.Step)
	}

	var submitted struct {
		Submitted bool         `json:"submitted"`
		Status    statusOutput `json:"status"`
	}
	mustJSON(t, app, &submitted, "submit")
	if !submitted.Submitted {
		t.Error("submit did not report success")
	}
	if len(submitted.Status.State.SelectedCards) != 0 {
		t.Error("flow not reset after submit")
	}
	if flow.Step() != explore.StepSelection {
		t.Errorf("flow step after submit = %v, want selection", flow.Step())
	}

	// The record landed in the local store.
	store := records.NewStore(database)
	listed, err := store.List(t.Context(), records.ListInput{})
	if err != nil {
		t.Fatalf("list after submit: %v", err)
	}
	if listed.Pagination.Total != 1 {
		t.Errorf("records after submit = %d, want 1", listed.Pagination.Total)
	}
}

// TestCLIRateErrors tests rate command validation.
func TestCLIRateErrors(t *testing.T) {
	app, _, _ := setupCLI(t)

	var status statusOutput
	mustJSON(t, app, &status, "pick", "2")

	if _, err := runApp(t, app, "rate", "51", "3"); err == nil {
		t.Error("expected error for unselected card")
	} else if !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("unselected card error = %q, want INVALID_REQUEST code", err.Error())
	}
	if _, err := runApp(t, app, "rate", "2", "6"); err == nil {
		t.Error("expected error for out-of-range level")
	}
}

// TestCLIGoto tests the goto command.
func TestCLIGoto(t *testing.T) {
	app, _, _ := setupCLI(t)

	if _, err := runApp(t, app, "goto", "strength-2"); err == nil {
		t.Error("expected forward jump to be refused")
	}
	if _, err := runApp(t, app, "goto", "nowhere"); err == nil {
		t.Error("expected error for unknown step")
	}
}

// TestCLIRecords tests the records subcommands.
func TestCLIRecords(t *testing.T) {
	app, _, _ := setupCLI(t)

	// Seed one record through the flow.
	var status statusOutput
	mustJSON(t, app, &status, "pick", "51")
	var submitted map[string]any
	mustJSON(t, app, &submitted, "submit")

	var listed records.ListOutput
	mustJSON(t, app, &listed, "records", "list")
	if len(listed.Items) != 1 {
		t.Fatalf("expected 1 record, got %d", len(listed.Items))
	}
	id := listed.Items[0].ID

	var record records.Record
	mustJSON(t, app, &record, "records", "show", id)
	if record.Cards[0].Name != "煩躁" {
		t.Errorf("record card = %q, want 煩躁", record.Cards[0].Name)
	}

	// Flag parsing stops at the first positional arg, so flags come first.
	mustJSON(t, app, &record, "records", "update",
		"--story", "added afterwards",
		"--expect", "yes",
		id,
	)
	if record.Story != "added afterwards" {
		t.Errorf("updated story = %q", record.Story)
	}
	if record.Expect != explore.ExpectYes {
		t.Errorf("updated expect = %v, want yes", record.Expect)
	}

	if _, err := runApp(t, app, "records", "update", id); err == nil {
		t.Error("expected error for update with no fields")
	} else if !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Errorf("empty update error = %q, want INVALID_REQUEST code", err.Error())
	}

	var analysis records.AnalysisOutput
	mustJSON(t, app, &analysis, "records", "analysis")
	if analysis.TotalRecords != 1 {
		t.Errorf("analysis total = %d, want 1", analysis.TotalRecords)
	}

	var deleted struct {
		Deleted bool   `json:"deleted"`
		ID      string `json:"id"`
	}
	mustJSON(t, app, &deleted, "records", "delete", id)
	if !deleted.Deleted || deleted.ID != id {
		t.Errorf("delete output = %+v", deleted)
	}

	if _, err := runApp(t, app, "records", "show", id); err == nil {
		t.Error("expected error after delete")
	} else if !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("show after delete error = %q, want NOT_FOUND code", err.Error())
	}
}

// TestIsCLIMode tests command detection.
func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"wavemo"}, false},
		{[]string{"wavemo", "status"}, true},
		{[]string{"wavemo", "records", "list"}, true},
		{[]string{"wavemo", "serve"}, true},
		{[]string{"wavemo", "--help"}, true},
		{[]string{"wavemo", "bogus"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
