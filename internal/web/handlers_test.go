package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wavemo/wavemo/internal/catalog"
	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/db"
	"github.com/wavemo/wavemo/internal/explore"
	"github.com/wavemo/wavemo/internal/records"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := catalog.EnsureSeed(database); err != nil {
		t.Fatalf("EnsureSeed: %v", err)
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	return &Handlers{
		db:       database,
		cfg:      config.DefaultConfig(),
		store:    records.NewStore(database),
		renderer: NewRenderer(templateSub, "test"),
	}
}

// seedRecord saves a record and returns its ID.
func seedRecord(t *testing.T, h *Handlers, story string, cards ...int) string {
	t.Helper()
	sub := &explore.Submission{
		Cards:           cards,
		BeforeLevels:    map[int]int{},
		AfterLevels:     map[int]int{},
		StoryBackground: story,
	}
	rec, err := h.store.Create(context.Background(), sub)
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return rec.ID
}

// --- HTML pages ---

func TestHandleRecords(t *testing.T) {
	h := setupTest(t)
	seedRecord(t, h, "a slow afternoon", 2)

	req := httptest.NewRequest("GET", "/records", nil)
	rec := httptest.NewRecorder()
	h.HandleRecords(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "a slow afternoon") {
		t.Error("expected seeded story in response")
	}
	if !strings.Contains(body, "快樂") {
		t.Error("expected card name in response")
	}
}

func TestHandleRecords_KeywordFilter(t *testing.T) {
	h := setupTest(t)
	seedRecord(t, h, "about the exam", 2)
	seedRecord(t, h, "about the trip", 15)

	req := httptest.NewRequest("GET", "/records?q=exam", nil)
	rec := httptest.NewRecorder()
	h.HandleRecords(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "about the exam") {
		t.Error("expected matching record in response")
	}
	if strings.Contains(body, "about the trip") {
		t.Error("did not expect non-matching record in response")
	}
}

func TestHandleRecords_BadDateParam(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/records?from=lastweek", nil)
	rec := httptest.NewRecorder()
	h.HandleRecords(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRecord(t *testing.T) {
	h := setupTest(t)
	id := seedRecord(t, h, "detail page story", 2, 51)

	req := httptest.NewRequest("GET", "/records/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleRecord(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "detail page story") || !strings.Contains(body, "煩躁") {
		t.Error("expected story and card names in detail page")
	}
}

func TestHandleRecord_NotFound(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/records/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.HandleRecord(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCards(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/cards", nil)
	rec := httptest.NewRecorder()
	h.HandleCards(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"快樂", "生氣", "anger"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in catalog page", want)
		}
	}
}

func TestHandleAbout_RendersMarkdown(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/about", nil)
	rec := httptest.NewRecorder()
	h.HandleAbout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// Seed articles are markdown; headings or paragraphs should come out
	// as HTML, not raw markup.
	if !strings.Contains(rec.Body.String(), "<p>") {
		t.Error("expected rendered markdown in about page")
	}
}

func TestHandleAnalysis(t *testing.T) {
	h := setupTest(t)
	seedRecord(t, h, "s", 2)

	req := httptest.NewRequest("GET", "/records/analysis", nil)
	rec := httptest.NewRecorder()
	h.HandleAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Analysis") {
		t.Error("expected analysis page content")
	}
}

// --- JSON API ---

func TestHandleAPICreateRecord(t *testing.T) {
	h := setupTest(t)

	body := `{
		"cards": [2, 15],
		"beforeLevels": {"2": 4, "15": 3},
		"afterLevels": {"2": 1},
		"storyBackground": "posted from a client",
		"storyExpect": 0
	}`
	req := httptest.NewRequest("POST", "/api/records", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleAPICreateRecord(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var created records.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" || len(created.Cards) != 2 {
		t.Errorf("created = %+v", created)
	}
	if created.Expect != explore.ExpectYes {
		t.Errorf("Expect = %v, want yes", created.Expect)
	}
}

func TestHandleAPICreateRecord_ValidationError(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/api/records", strings.NewReader(`{"cards": []}`))
	rec := httptest.NewRecorder()
	h.HandleAPICreateRecord(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if env.Error.Code != "SELECTION_TOO_SMALL" {
		t.Errorf("code = %q, want SELECTION_TOO_SMALL", env.Error.Code)
	}
}

func TestHandleAPICreateRecord_BadJSON(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/api/records", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	h.HandleAPICreateRecord(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAPIListRecords(t *testing.T) {
	h := setupTest(t)
	seedRecord(t, h, "one", 2)
	seedRecord(t, h, "two", 15)

	req := httptest.NewRequest("GET", "/api/records?limit=1", nil)
	rec := httptest.NewRecorder()
	h.HandleAPIListRecords(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out records.ListOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Pagination.Total != 2 || len(out.Items) != 1 || !out.Pagination.HasMore {
		t.Errorf("list = %+v", out.Pagination)
	}
}

func TestHandleAPIUpdateRecord(t *testing.T) {
	h := setupTest(t)
	id := seedRecord(t, h, "before edit", 2)

	body := `{"story": "after edit", "expect": "no"}`
	req := httptest.NewRequest("PUT", "/api/records/"+id, strings.NewReader(body))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleAPIUpdateRecord(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var updated records.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if updated.Story != "after edit" || updated.Expect != explore.ExpectNo {
		t.Errorf("updated = %+v", updated)
	}
}

func TestHandleAPIUpdateRecord_BadExpect(t *testing.T) {
	h := setupTest(t)
	id := seedRecord(t, h, "s", 2)

	req := httptest.NewRequest("PUT", "/api/records/"+id, strings.NewReader(`{"expect": "maybe"}`))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleAPIUpdateRecord(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAPIDeleteRecord(t *testing.T) {
	h := setupTest(t)
	id := seedRecord(t, h, "s", 2)

	req := httptest.NewRequest("DELETE", "/api/records/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleAPIDeleteRecord(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/records/"+id, nil)
	req.SetPathValue("id", id)
	rec = httptest.NewRecorder()
	h.HandleAPIGetRecord(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestHandleAPIAnalysis(t *testing.T) {
	h := setupTest(t)
	seedRecord(t, h, "s", 2, 51)

	req := httptest.NewRequest("GET", "/api/records/analysis", nil)
	rec := httptest.NewRecorder()
	h.HandleAPIAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out records.AnalysisOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.TotalRecords != 1 || out.CardPicks != 2 {
		t.Errorf("analysis = %+v", out)
	}
}

func TestHandleAPICards(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/api/cards", nil)
	rec := httptest.NewRecorder()
	h.HandleAPICards(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var out struct {
		Categories []struct {
			Slug  string         `json:"slug"`
			Cards []catalog.Card `json:"cards"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Categories) != 9 {
		t.Fatalf("categories = %d, want 9", len(out.Categories))
	}
	if out.Categories[0].Slug != "happy" || len(out.Categories[0].Cards) != 7 {
		t.Errorf("first category = %+v", out.Categories[0])
	}
}

// --- End to end: flow submits over HTTP into this server ---

func TestSubmitOverHTTP(t *testing.T) {
	h := setupTest(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/records", h.HandleAPICreateRecord)
	srv := httptest.NewServer(securityHeaders(mux))
	defer srv.Close()

	flow, err := explore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, id := range []int{2, 15, 51} {
		if err := flow.AddCard(explore.SelectedCard{ID: id, Name: "n", CategoryID: 1, CategoryName: "c"}); err != nil {
			t.Fatalf("AddCard: %v", err)
		}
	}
	if err := flow.SetBeforeLevel(2, 4); err != nil {
		t.Fatalf("SetBeforeLevel: %v", err)
	}

	client := records.NewClient(srv.URL, 0)
	if err := flow.Submit(context.Background(), client); err != nil {
		t.Fatalf("Submit over HTTP: %v", err)
	}

	out, err := h.store.List(context.Background(), records.ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Pagination.Total != 1 {
		t.Fatalf("total = %d, want 1", out.Pagination.Total)
	}
	if got := out.Items[0].Cards[0].ID; got != 2 {
		t.Errorf("first card = %d, want 2", got)
	}
	// Flow reset after the round trip
	if len(flow.State().SelectedCards) != 0 {
		t.Error("workflow not reset after successful HTTP submit")
	}
}
