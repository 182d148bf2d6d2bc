package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wavemo/wavemo/internal/catalog"
	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
	"github.com/wavemo/wavemo/internal/records"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	flow     *explore.Store
	store    *records.Store
	recorder explore.Recorder
}

// NewHandlers creates a new Handlers instance. Submissions go to the local
// database unless the config points at a remote API base URL.
func NewHandlers(db *sql.DB, cfg *config.Config, flow *explore.Store) *Handlers {
	store := records.NewStore(db)

	var recorder explore.Recorder = store
	if cfg.APIBaseURL != "" {
		recorder = records.NewClient(cfg.APIBaseURL, time.Duration(cfg.SubmitTimeoutSecs)*time.Second)
	}

	return &Handlers{
		db:       db,
		cfg:      cfg,
		flow:     flow,
		store:    store,
		recorder: recorder,
	}
}

// Request types for each tool

// PickRequest represents the arguments for explore_pick and explore_drop.
type PickRequest struct {
	CardID int `json:"card_id"`
}

// RateRequest represents the arguments for explore_rate.
type RateRequest struct {
	CardID int    `json:"card_id"`
	Level  int    `json:"level"`
	When   string `json:"when,omitempty"`
}

// StoryRequest represents the arguments for explore_story.
type StoryRequest struct {
	Background   *string `json:"background,omitempty"`
	Action       *string `json:"action,omitempty"`
	Result       *string `json:"result,omitempty"`
	Feeling      *string `json:"feeling,omitempty"`
	Expect       *string `json:"expect,omitempty"`
	BetterAction *string `json:"better_action,omitempty"`
}

// GotoRequest represents the arguments for explore_goto.
type GotoRequest struct {
	Step string `json:"step"`
}

// RecordListRequest represents the arguments for record_list.
type RecordListRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// RecordIDRequest represents the arguments for record_get and record_delete.
type RecordIDRequest struct {
	ID string `json:"id"`
}

// RecordUpdateRequest represents the arguments for record_update.
type RecordUpdateRequest struct {
	ID       string  `json:"id"`
	Story    *string `json:"story,omitempty"`
	Actions  *string `json:"actions,omitempty"`
	Results  *string `json:"results,omitempty"`
	Feelings *string `json:"feelings,omitempty"`
	Expect   *string `json:"expect,omitempty"`
	Reaction *string `json:"reaction,omitempty"`
}

// AnalysisRequest represents the arguments for record_analysis.
type AnalysisRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// CardListRequest represents the arguments for card_list.
type CardListRequest struct {
	Category string `json:"category,omitempty"`
}

// CardGetRequest represents the arguments for card_get.
type CardGetRequest struct {
	CardID int `json:"card_id"`
}

// statusPayload is the explore_status (and mutation) response shape.
type statusPayload struct {
	State   explore.State `json:"state"`
	Step    stepInfo      `json:"step"`
	Valid   bool          `json:"valid"`
	Message string        `json:"message,omitempty"`
}

type stepInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// status snapshots the flow with the active step's gate evaluated, so a
// client always knows whether explore_next would succeed.
func (h *Handlers) status() statusPayload {
	state := h.flow.State()
	step := state.Step
	result := explore.Validate(&state, step)
	return statusPayload{
		State: state,
		Step: stepInfo{
			Index: int(step),
			Name:  step.String(),
			Title: step.Title(),
		},
		Valid:   result.Valid,
		Message: result.Message,
	}
}

// Handler implementations

// HandleStatus handles the explore_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.status())
}

// HandlePick handles the explore_pick tool call.
func (h *Handlers) HandlePick(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PickRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	card, err := catalog.CardByID(h.db, input.CardID)
	if err != nil {
		return errorResult(err), nil
	}
	category, err := catalog.CategoryByID(h.db, card.CategoryID)
	if err != nil {
		return errorResult(err), nil
	}

	snapshot := explore.SelectedCard{
		ID:           card.ID,
		Name:         card.Name,
		CategoryID:   category.ID,
		CategoryName: category.Name,
	}
	if card.Description != nil {
		snapshot.Description = *card.Description
	}
	if card.Example != nil {
		snapshot.Example = *card.Example
	}
	if card.ImagePath != nil {
		snapshot.ImagePath = *card.ImagePath
	}

	if err := h.flow.AddCard(snapshot); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleDrop handles the explore_drop tool call.
func (h *Handlers) HandleDrop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PickRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.flow.RemoveCard(input.CardID); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleClear handles the explore_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.flow.ClearCards(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleRate handles the explore_rate tool call.
func (h *Handlers) HandleRate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	switch input.When {
	case "", "before":
		err = h.flow.SetBeforeLevel(input.CardID, input.Level)
	case "after":
		err = h.flow.SetAfterLevel(input.CardID, input.Level)
	default:
		err = errors.NewInvalidRequest("when must be \"before\" or \"after\"")
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleStory handles the explore_story tool call.
func (h *Handlers) HandleStory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Background != nil {
		if err := h.flow.SetStoryBackground(*input.Background); err != nil {
			return errorResult(err), nil
		}
	}
	if input.Action != nil {
		if err := h.flow.SetStoryAction(*input.Action); err != nil {
			return errorResult(err), nil
		}
	}
	if input.Result != nil {
		if err := h.flow.SetStoryResult(*input.Result); err != nil {
			return errorResult(err), nil
		}
	}
	if input.Feeling != nil {
		if err := h.flow.SetStoryFeeling(*input.Feeling); err != nil {
			return errorResult(err), nil
		}
	}
	if input.Expect != nil {
		expect, err := explore.ParseExpectation(*input.Expect)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}
		if err := h.flow.SetStoryExpect(expect); err != nil {
			return errorResult(err), nil
		}
	}
	if input.BetterAction != nil {
		if err := h.flow.SetStoryBetterAction(*input.BetterAction); err != nil {
			return errorResult(err), nil
		}
	}
	return successResult(h.status())
}

// HandleNext handles the explore_next tool call.
func (h *Handlers) HandleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.flow.Next(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleBack handles the explore_back tool call.
func (h *Handlers) HandleBack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.flow.Back(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleGoto handles the explore_goto tool call.
func (h *Handlers) HandleGoto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GotoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	step, ok := explore.ParseStep(input.Step)
	if !ok {
		return errorResult(errors.NewInvalidRequest("unknown step: " + input.Step)), nil
	}
	if err := h.flow.JumpTo(step); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleSubmit handles the explore_submit tool call.
func (h *Handlers) HandleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.flow.Submit(ctx, h.recorder); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"submitted": true,
		"status":    h.status(),
	})
}

// HandleReset handles the explore_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.flow.Reset(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.status())
}

// HandleRecordList handles the record_list tool call.
func (h *Handlers) HandleRecordList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	from, to, err := parseDateRange(input.From, input.To)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.store.List(ctx, records.ListInput{
		From:   from,
		To:     to,
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordGet handles the record_get tool call.
func (h *Handlers) HandleRecordGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.store.Get(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordUpdate handles the record_update tool call.
func (h *Handlers) HandleRecordUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	update := records.UpdateInput{
		Story:    input.Story,
		Actions:  input.Actions,
		Results:  input.Results,
		Feelings: input.Feelings,
		Reaction: input.Reaction,
	}
	if input.Expect != nil {
		expect, err := explore.ParseExpectation(*input.Expect)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}
		update.Expect = &expect
	}

	result, err := h.store.Update(ctx, input.ID, update)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordDelete handles the record_delete tool call.
func (h *Handlers) HandleRecordDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordIDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.Delete(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"deleted": true,
		"id":      input.ID,
	})
}

// HandleRecordAnalysis handles the record_analysis tool call.
func (h *Handlers) HandleRecordAnalysis(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnalysisRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	from, to, err := parseDateRange(input.From, input.To)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.store.Analysis(ctx, records.AnalysisInput{From: from, To: to})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCardList handles the card_list tool call.
func (h *Handlers) HandleCardList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CardListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Category != "" {
		category, err := catalog.CategoryBySlug(h.db, input.Category)
		if err != nil {
			return errorResult(err), nil
		}
		cards, err := catalog.CardsByCategory(h.db, category.ID)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{
			"category": category,
			"cards":    cards,
		})
	}

	categories, err := catalog.ListCategories(h.db)
	if err != nil {
		return errorResult(err), nil
	}
	grouped, err := catalog.CardsGroupedByCategory(h.db)
	if err != nil {
		return errorResult(err), nil
	}

	out := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		cards := grouped[c.ID]
		if cards == nil {
			cards = []catalog.Card{}
		}
		out = append(out, map[string]any{
			"category": c,
			"cards":    cards,
		})
	}
	return successResult(map[string]any{"categories": out})
}

// HandleCardGet handles the card_get tool call.
func (h *Handlers) HandleCardGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CardGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	card, err := catalog.CardByID(h.db, input.CardID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(card)
}

// parseDateRange turns optional "2006-01-02" strings into inclusive unix
// bounds. The "to" side covers the whole day.
func parseDateRange(fromStr, toStr string) (int64, int64, error) {
	var from, to int64

	if fromStr != "" {
		t, err := time.ParseInLocation("2006-01-02", fromStr, time.UTC)
		if err != nil {
			return 0, 0, errors.NewInvalidRequest("from must be a date like 2026-01-31")
		}
		from = t.Unix()
	}
	if toStr != "" {
		t, err := time.ParseInLocation("2006-01-02", toStr, time.UTC)
		if err != nil {
			return 0, 0, errors.NewInvalidRequest("to must be a date like 2026-01-31")
		}
		to = t.AddDate(0, 0, 1).Unix() - 1
	}
	return from, to, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if wErr, ok := err.(*errors.WavemoError); ok {
		errorObj := map[string]any{
			"code":    wErr.Code,
			"message": wErr.Message,
			"status":  wErr.Status,
		}
		if wErr.Code != errors.ErrInternal && wErr.Details != nil {
			errorObj["details"] = wErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
