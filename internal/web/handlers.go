package web

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wavemo/wavemo/internal/catalog"
	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
	"github.com/wavemo/wavemo/internal/records"
)

const dateLayout = "2006-01-02"

// Handlers contains HTTP route handlers for the web UI and the JSON API.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	store    *records.Store
	renderer *Renderer
}

// HandleRecords handles GET /records — the record journal page.
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	input, err := listInputFromQuery(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := h.store.List(r.Context(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "records", RecordsPageData{
		PageData: PageData{
			Title:   "Records",
			Version: h.renderer.version,
			Nav:     "records",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Query:      r.URL.Query().Get("q"),
		From:       r.URL.Query().Get("from"),
		To:         r.URL.Query().Get("to"),
	})
}

// HandleRecord handles GET /records/{id} — a single saved flow.
func (h *Handlers) HandleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "record", RecordPageData{
		PageData: PageData{
			Title:   "Record " + formatTime(rec.CreatedAt),
			Version: h.renderer.version,
			Nav:     "records",
		},
		Record: rec,
	})
}

// HandleRecordDelete handles POST /records/{id}/delete — form-based delete
// from the detail page.
func (h *Handlers) HandleRecordDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/records", http.StatusFound)
}

// HandleAnalysis handles GET /records/analysis — aggregate view.
func (h *Handlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRangeFromQuery(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := h.store.Analysis(r.Context(), records.AnalysisInput{From: from, To: to})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "analysis", AnalysisPageData{
		PageData: PageData{
			Title:   "Analysis",
			Version: h.renderer.version,
			Nav:     "records",
		},
		Analysis: result,
		From:     r.URL.Query().Get("from"),
		To:       r.URL.Query().Get("to"),
	})
}

// HandleCards handles GET /cards — the emotion card catalog.
func (h *Handlers) HandleCards(w http.ResponseWriter, r *http.Request) {
	categories, err := catalog.ListCategories(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	grouped, err := catalog.CardsGroupedByCategory(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "cards", CardsPageData{
		PageData: PageData{
			Title:   "Emotion Cards",
			Version: h.renderer.version,
			Nav:     "cards",
		},
		Categories: categories,
		Cards:      grouped,
	})
}

// HandleAbout handles GET /about — the about-emotions articles, with their
// markdown content rendered to HTML.
func (h *Handlers) HandleAbout(w http.ResponseWriter, r *http.Request) {
	articles, err := catalog.ListAboutEmotions(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	rendered := make([]AboutArticle, 0, len(articles))
	for _, a := range articles {
		rendered = append(rendered, AboutArticle{
			Title: a.Title,
			HTML:  renderMarkdown(a.Content),
		})
	}

	h.renderer.renderPage(w, "about", AboutPageData{
		PageData: PageData{
			Title:   "About Emotions",
			Version: h.renderer.version,
			Nav:     "about",
		},
		Articles: rendered,
	})
}

// HandleAPICreateRecord handles POST /api/records — the submission endpoint
// the guided flow posts to when configured against a server.
func (h *Handlers) HandleAPICreateRecord(w http.ResponseWriter, r *http.Request) {
	var sub explore.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}

	rec, err := h.store.Create(r.Context(), &sub)
	if err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, rec)
}

// HandleAPIListRecords handles GET /api/records.
func (h *Handlers) HandleAPIListRecords(w http.ResponseWriter, r *http.Request) {
	input, err := listInputFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.store.List(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAPIGetRecord handles GET /api/records/{id}.
func (h *Handlers) HandleAPIGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, rec)
}

// updateRequest is the PUT body for record updates. Expect travels as a
// word here ("yes", "no", "unclear") so that absence and "set to unclear"
// stay distinguishable.
type updateRequest struct {
	Story    *string `json:"story"`
	Actions  *string `json:"actions"`
	Results  *string `json:"results"`
	Feelings *string `json:"feelings"`
	Reaction *string `json:"reaction"`
	Expect   *string `json:"expect"`
}

// HandleAPIUpdateRecord handles PUT /api/records/{id}.
func (h *Handlers) HandleAPIUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}

	input := records.UpdateInput{
		Story:    req.Story,
		Actions:  req.Actions,
		Results:  req.Results,
		Feelings: req.Feelings,
		Reaction: req.Reaction,
	}
	if req.Expect != nil {
		expect, err := explore.ParseExpectation(*req.Expect)
		if err != nil {
			writeError(w, errors.NewInvalidRequest(err.Error()))
			return
		}
		input.Expect = &expect
	}

	rec, err := h.store.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, rec)
}

// HandleAPIDeleteRecord handles DELETE /api/records/{id}.
func (h *Handlers) HandleAPIDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"deleted": true,
		"id":      id,
	})
}

// HandleAPIAnalysis handles GET /api/records/analysis.
func (h *Handlers) HandleAPIAnalysis(w http.ResponseWriter, r *http.Request) {
	from, to, err := timeRangeFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.store.Analysis(r.Context(), records.AnalysisInput{From: from, To: to})
	if err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// categoryWithCards is the /api/cards response shape.
type categoryWithCards struct {
	catalog.Category
	Cards []catalog.Card `json:"cards"`
}

// HandleAPICards handles GET /api/cards — the full catalog grouped by
// category in display order.
func (h *Handlers) HandleAPICards(w http.ResponseWriter, r *http.Request) {
	categories, err := catalog.ListCategories(h.db)
	if err != nil {
		writeError(w, err)
		return
	}
	grouped, err := catalog.CardsGroupedByCategory(h.db)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]categoryWithCards, 0, len(categories))
	for _, c := range categories {
		cards := grouped[c.ID]
		if cards == nil {
			cards = []catalog.Card{}
		}
		out = append(out, categoryWithCards{Category: c, Cards: cards})
	}
	renderJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// HandleAPIAbout handles GET /api/about.
func (h *Handlers) HandleAPIAbout(w http.ResponseWriter, r *http.Request) {
	articles, err := catalog.ListAboutEmotions(h.db)
	if err != nil {
		writeError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// listInputFromQuery builds a ListInput from q/from/to/limit/offset params.
func listInputFromQuery(r *http.Request) (records.ListInput, error) {
	from, to, err := timeRangeFromQuery(r)
	if err != nil {
		return records.ListInput{}, err
	}
	return records.ListInput{
		From:   from,
		To:     to,
		Query:  r.URL.Query().Get("q"),
		Limit:  parseIntParam(r, "limit", records.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	}, nil
}

// timeRangeFromQuery parses from/to date params. The "to" bound is
// inclusive through the end of that day.
func timeRangeFromQuery(r *http.Request) (int64, int64, error) {
	var from, to int64

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return 0, 0, errors.NewInvalidRequest("from must be a date like 2026-01-31")
		}
		from = t.Unix()
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return 0, 0, errors.NewInvalidRequest("to must be a date like 2026-01-31")
		}
		to = t.AddDate(0, 0, 1).Unix() - 1
	}
	return from, to, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
