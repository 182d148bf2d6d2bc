package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the guided exploration flow.

var exploreStatusToolDef = mcp.NewTool("explore_status",
	mcp.WithDescription("Show the current exploration flow: selected cards, ratings, narrative answers, the active step, and whether the step's gate would allow moving forward."),
)

var explorePickToolDef = mcp.NewTool("explore_pick",
	mcp.WithDescription("Add an emotion card to the current selection (max 3, duplicates ignored). Use card_list to find card ids."),
	mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Catalog id of the card to pick")),
)

var exploreDropToolDef = mcp.NewTool("explore_drop",
	mcp.WithDescription("Remove a card from the selection. Its strength ratings are discarded with it."),
	mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Catalog id of the card to drop")),
)

var exploreClearToolDef = mcp.NewTool("explore_clear",
	mcp.WithDescription("Clear the whole selection and all strength ratings, keeping narrative answers."),
)

var exploreRateToolDef = mcp.NewTool("explore_rate",
	mcp.WithDescription("Rate the strength of a selected card's emotion on a 1-5 scale."),
	mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Catalog id of a selected card")),
	mcp.WithNumber("level", mcp.Required(), mcp.Description("Strength from 1 (weak) to 5 (strong)")),
	mcp.WithString("when", mcp.Description("Which rating to set: \"before\" (default) or \"after\"")),
)

var exploreStoryToolDef = mcp.NewTool("explore_story",
	mcp.WithDescription("Set one or more narrative answers. Omitted fields are left unchanged."),
	mcp.WithString("background", mcp.Description("What happened")),
	mcp.WithString("action", mcp.Description("What you did")),
	mcp.WithString("result", mcp.Description("How it turned out")),
	mcp.WithString("feeling", mcp.Description("How you felt about the outcome")),
	mcp.WithString("expect", mcp.Description("Was the outcome expected: \"yes\", \"no\", or \"unclear\"")),
	mcp.WithString("better_action", mcp.Description("What you would do differently")),
)

var exploreNextToolDef = mcp.NewTool("explore_next",
	mcp.WithDescription("Advance to the next step. Refused if the current step's gate is not satisfied."),
)

var exploreBackToolDef = mcp.NewTool("explore_back",
	mcp.WithDescription("Go back one step. Always allowed; nothing is lost."),
)

var exploreGotoToolDef = mcp.NewTool("explore_goto",
	mcp.WithDescription("Jump directly to an earlier step. Forward jumps are refused; use explore_next."),
	mcp.WithString("step", mcp.Required(), mcp.Description("Step name: selection, strength-1, story-background, story-action, strength-2, complete")),
)

var exploreSubmitToolDef = mcp.NewTool("explore_submit",
	mcp.WithDescription("Submit the finished flow as an emotion record and reset the flow. On failure the flow is untouched and can be retried."),
)

var exploreResetToolDef = mcp.NewTool("explore_reset",
	mcp.WithDescription("Abandon the current flow and start over. Nothing is saved."),
)

// Tool definitions for saved records.

var recordListToolDef = mcp.NewTool("record_list",
	mcp.WithDescription("List saved emotion records, newest first, with optional date-range and keyword filters."),
	mcp.WithString("from", mcp.Description("Earliest date to include, e.g. 2026-01-31")),
	mcp.WithString("to", mcp.Description("Latest date to include (whole day), e.g. 2026-01-31")),
	mcp.WithString("query", mcp.Description("Keyword matched against stories and card/category names")),
	mcp.WithNumber("limit", mcp.Description("Max records to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Records to skip for pagination")),
)

var recordGetToolDef = mcp.NewTool("record_get",
	mcp.WithDescription("Fetch one saved record by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
)

var recordUpdateToolDef = mcp.NewTool("record_update",
	mcp.WithDescription("Edit a saved record's narrative. Cards and ratings are immutable once saved."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	mcp.WithString("story", mcp.Description("What happened")),
	mcp.WithString("actions", mcp.Description("What you did")),
	mcp.WithString("results", mcp.Description("How it turned out")),
	mcp.WithString("feelings", mcp.Description("How you felt about the outcome")),
	mcp.WithString("expect", mcp.Description("Was the outcome expected: \"yes\", \"no\", or \"unclear\"")),
	mcp.WithString("reaction", mcp.Description("What you would do differently")),
)

var recordDeleteToolDef = mcp.NewTool("record_delete",
	mcp.WithDescription("Delete a saved record permanently."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
)

var recordAnalysisToolDef = mcp.NewTool("record_analysis",
	mcp.WithDescription("Aggregate saved records: totals, picks per category, and average strength ratings and change."),
	mcp.WithString("from", mcp.Description("Earliest date to include, e.g. 2026-01-31")),
	mcp.WithString("to", mcp.Description("Latest date to include (whole day), e.g. 2026-01-31")),
)

// Tool definitions for the card catalog.

var cardListToolDef = mcp.NewTool("card_list",
	mcp.WithDescription("List emotion cards grouped by category, or just one category."),
	mcp.WithString("category", mcp.Description("Optional category slug, e.g. \"anger\"")),
)

var cardGetToolDef = mcp.NewTool("card_get",
	mcp.WithDescription("Fetch one emotion card by id."),
	mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Catalog id of the card")),
)
