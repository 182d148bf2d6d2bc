package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/wavemo/wavemo/internal/catalog"
	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
	"github.com/wavemo/wavemo/internal/records"
	"github.com/wavemo/wavemo/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, flow *explore.Store) *cli.App {
	app := &cli.App{
		Name:    "wavemo",
		Usage:   "Guided emotion journaling",
		Version: Version,
		Commands: []*cli.Command{
			cardsCmd(db),
			cardCmd(db),
			aboutCmd(db),
			statusCmd(flow),
			pickCmd(db, flow),
			dropCmd(flow),
			clearCmd(flow),
			rateCmd(flow),
			storyCmd(flow),
			nextCmd(flow),
			backCmd(flow),
			gotoCmd(flow),
			submitCmd(db, cfg, flow),
			resetCmd(flow),
			recordsCmd(db),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// statusOutput is the shared shape for commands that show or mutate the flow.
type statusOutput struct {
	State   explore.State `json:"state"`
	Step    string        `json:"step"`
	Title   string        `json:"title"`
	Valid   bool          `json:"valid"`
	Message string        `json:"message,omitempty"`
}

// flowStatus snapshots the flow with the active step's gate evaluated.
func flowStatus(flow *explore.Store) statusOutput {
	state := flow.State()
	result := explore.Validate(&state, state.Step)
	return statusOutput{
		State:   state,
		Step:    state.Step.String(),
		Title:   state.Step.Title(),
		Valid:   result.Valid,
		Message: result.Message,
	}
}

// cardsCmd creates the cards command.
func cardsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "cards",
		Usage: "List emotion cards grouped by category",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Only this category (slug, e.g. anger)"},
		},
		Action: func(c *cli.Context) error {
			if slug := c.String("category"); slug != "" {
				category, err := catalog.CategoryBySlug(db, slug)
				if err != nil {
					return outputError(err)
				}
				cards, err := catalog.CardsByCategory(db, category.ID)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{
					"category": category,
					"cards":    cards,
				})
			}

			categories, err := catalog.ListCategories(db)
			if err != nil {
				return outputError(err)
			}
			grouped, err := catalog.CardsGroupedByCategory(db)
			if err != nil {
				return outputError(err)
			}

			out := make([]map[string]any, 0, len(categories))
			for _, cat := range categories {
				cards := grouped[cat.ID]
				if cards == nil {
					cards = []catalog.Card{}
				}
				out = append(out, map[string]any{
					"category": cat,
					"cards":    cards,
				})
			}
			return outputJSON(map[string]any{"categories": out})
		},
	}
}

// cardCmd creates the card command.
func cardCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "card",
		Usage:     "Show one emotion card",
		ArgsUsage: "<card-id>",
		Action: func(c *cli.Context) error {
			id, err := argInt(c, 0, "card-id")
			if err != nil {
				return outputError(err)
			}
			card, err := catalog.CardByID(db, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(card)
		},
	}
}

// aboutCmd creates the about command.
func aboutCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "about",
		Usage: "Show the emotion knowledge articles",
		Action: func(c *cli.Context) error {
			articles, err := catalog.ListAboutEmotions(db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"articles": articles})
		},
	}
}

// statusCmd creates the status command.
func statusCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the in-progress flow and the active step's gate",
		Action: func(c *cli.Context) error {
			return outputJSON(flowStatus(flow))
		},
	}
}

// pickCmd creates the pick command.
func pickCmd(db *sql.DB, flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:      "pick",
		Usage:     "Add an emotion card to the selection (max 3)",
		ArgsUsage: "<card-id>",
		Action: func(c *cli.Context) error {
			id, err := argInt(c, 0, "card-id")
			if err != nil {
				return outputError(err)
			}

			card, err := catalog.CardByID(db, id)
			if err != nil {
				return outputError(err)
			}
			category, err := catalog.CategoryByID(db, card.CategoryID)
			if err != nil {
				return outputError(err)
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

			if err := flow.AddCard(snapshot); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// dropCmd creates the drop command.
func dropCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:      "drop",
		Usage:     "Remove a card from the selection",
		ArgsUsage: "<card-id>",
		Action: func(c *cli.Context) error {
			id, err := argInt(c, 0, "card-id")
			if err != nil {
				return outputError(err)
			}
			if err := flow.RemoveCard(id); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Clear the selection and all strength ratings",
		Action: func(c *cli.Context) error {
			if err := flow.ClearCards(); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// rateCmd creates the rate command.
func rateCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:      "rate",
		Usage:     "Rate a selected card's emotion strength (1-5)",
		ArgsUsage: "<card-id> <level>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "after", Usage: "Set the second (after) rating instead of the first"},
		},
		Action: func(c *cli.Context) error {
			id, err := argInt(c, 0, "card-id")
			if err != nil {
				return outputError(err)
			}
			level, err := argInt(c, 1, "level")
			if err != nil {
				return outputError(err)
			}

			if c.Bool("after") {
				err = flow.SetAfterLevel(id, level)
			} else {
				err = flow.SetBeforeLevel(id, level)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// storyCmd creates the story command.
func storyCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "story",
		Usage: "Set narrative answers (omitted flags are left unchanged)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "background", Aliases: []string{"b"}, Usage: "What happened"},
			&cli.StringFlag{Name: "action", Aliases: []string{"a"}, Usage: "What you did"},
			&cli.StringFlag{Name: "result", Aliases: []string{"r"}, Usage: "How it turned out"},
			&cli.StringFlag{Name: "feeling", Aliases: []string{"f"}, Usage: "How you felt about the outcome"},
			&cli.StringFlag{Name: "expect", Aliases: []string{"e"}, Usage: "Was the outcome expected: yes|no|unclear"},
			&cli.StringFlag{Name: "better-action", Usage: "What you would do differently"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("background") {
				if err := flow.SetStoryBackground(c.String("background")); err != nil {
					return outputError(err)
				}
			}
			if c.IsSet("action") {
				if err := flow.SetStoryAction(c.String("action")); err != nil {
					return outputError(err)
				}
			}
			if c.IsSet("result") {
				if err := flow.SetStoryResult(c.String("result")); err != nil {
					return outputError(err)
				}
			}
			if c.IsSet("feeling") {
				if err := flow.SetStoryFeeling(c.String("feeling")); err != nil {
					return outputError(err)
				}
			}
			if c.IsSet("expect") {
				expect, err := explore.ParseExpectation(c.String("expect"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				if err := flow.SetStoryExpect(expect); err != nil {
					return outputError(err)
				}
			}
			if c.IsSet("better-action") {
				if err := flow.SetStoryBetterAction(c.String("better-action")); err != nil {
					return outputError(err)
				}
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// nextCmd creates the next command.
func nextCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Advance to the next step (refused if the gate is not satisfied)",
		Action: func(c *cli.Context) error {
			if err := flow.Next(); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// backCmd creates the back command.
func backCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "back",
		Usage: "Go back one step",
		Action: func(c *cli.Context) error {
			if err := flow.Back(); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// gotoCmd creates the goto command.
func gotoCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:      "goto",
		Usage:     "Jump back to an already-visited step",
		ArgsUsage: "<step>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("step name is required"))
			}
			step, ok := explore.ParseStep(c.Args().First())
			if !ok {
				return outputError(errors.NewInvalidRequest("unknown step: " + c.Args().First()))
			}
			if err := flow.JumpTo(step); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// submitCmd creates the submit command.
func submitCmd(db *sql.DB, cfg *config.Config, flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Save the finished flow as an emotion record and reset the flow",
		Action: func(c *cli.Context) error {
			var recorder explore.Recorder = records.NewStore(db)
			if cfg.APIBaseURL != "" {
				recorder = records.NewClient(cfg.APIBaseURL, time.Duration(cfg.SubmitTimeoutSecs)*time.Second)
			}

			if err := flow.Submit(context.Background(), recorder); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"submitted": true,
				"status":    flowStatus(flow),
			})
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(flow *explore.Store) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Abandon the current flow and start over",
		Action: func(c *cli.Context) error {
			if err := flow.Reset(); err != nil {
				return outputError(err)
			}
			return outputJSON(flowStatus(flow))
		},
	}
}

// recordsCmd creates the records command with its subcommands.
func recordsCmd(db *sql.DB) *cli.Command {
	store := records.NewStore(db)

	return &cli.Command{
		Name:  "records",
		Usage: "Work with saved emotion records",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved records, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Earliest date to include (2026-01-31)"},
					&cli.StringFlag{Name: "to", Usage: "Latest date to include, whole day (2026-01-31)"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Keyword matched against stories and card/category names"},
					&cli.IntFlag{Name: "limit", Value: records.DefaultListLimit, Usage: "Max records to return"},
					&cli.IntFlag{Name: "offset", Usage: "Records to skip"},
				},
				Action: func(c *cli.Context) error {
					from, to, err := dateRange(c.String("from"), c.String("to"))
					if err != nil {
						return outputError(err)
					}
					output, err := store.List(c.Context, records.ListInput{
						From:   from,
						To:     to,
						Query:  c.String("query"),
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "show",
				Usage:     "Show one saved record",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("record id is required"))
					}
					record, err := store.Get(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(record)
				},
			},
			{
				Name:      "update",
				Usage:     "Edit a saved record's narrative",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "story", Usage: "What happened"},
					&cli.StringFlag{Name: "actions", Usage: "What you did"},
					&cli.StringFlag{Name: "results", Usage: "How it turned out"},
					&cli.StringFlag{Name: "feelings", Usage: "How you felt about the outcome"},
					&cli.StringFlag{Name: "expect", Usage: "Was the outcome expected: yes|no|unclear"},
					&cli.StringFlag{Name: "reaction", Usage: "What you would do differently"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("record id is required"))
					}

					var input records.UpdateInput
					if c.IsSet("story") {
						v := c.String("story")
						input.Story = &v
					}
					if c.IsSet("actions") {
						v := c.String("actions")
						input.Actions = &v
					}
					if c.IsSet("results") {
						v := c.String("results")
						input.Results = &v
					}
					if c.IsSet("feelings") {
						v := c.String("feelings")
						input.Feelings = &v
					}
					if c.IsSet("expect") {
						expect, err := explore.ParseExpectation(c.String("expect"))
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.Expect = &expect
					}
					if c.IsSet("reaction") {
						v := c.String("reaction")
						input.Reaction = &v
					}

					record, err := store.Update(c.Context, c.Args().First(), input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(record)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved record permanently",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("record id is required"))
					}
					id := c.Args().First()
					if err := store.Delete(c.Context, id); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"deleted": true,
						"id":      id,
					})
				},
			},
			{
				Name:  "analysis",
				Usage: "Aggregate saved records: totals, picks per category, average strength",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Earliest date to include (2026-01-31)"},
					&cli.StringFlag{Name: "to", Usage: "Latest date to include, whole day (2026-01-31)"},
				},
				Action: func(c *cli.Context) error {
					from, to, err := dateRange(c.String("from"), c.String("to"))
					if err != nil {
						return outputError(err)
					}
					output, err := store.Analysis(c.Context, records.AnalysisInput{From: from, To: to})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind to"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8787, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// argInt parses a required positional integer argument.
func argInt(c *cli.Context, index int, name string) (int, error) {
	if c.NArg() <= index {
		return 0, errors.NewInvalidRequest(name + " is required")
	}
	v, err := strconv.Atoi(c.Args().Get(index))
	if err != nil {
		return 0, errors.NewInvalidRequest(name + " must be an integer")
	}
	return v, nil
}

// dateRange turns optional "2006-01-02" strings into inclusive unix bounds.
// The "to" side covers the whole day.
func dateRange(fromStr, toStr string) (int64, int64, error) {
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

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if wErr, ok := err.(*errors.WavemoError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", wErr.Code, wErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
