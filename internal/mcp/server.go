// Package mcp exposes the exploration flow, the record store, and the card
// catalog as MCP tools over stdio.
package mcp

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wavemo/wavemo/internal/config"
	"github.com/wavemo/wavemo/internal/explore"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"explore", "record", "card"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"explore_status": {
		def:     exploreStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"explore_pick": {
		def:     explorePickToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePick },
	},
	"explore_drop": {
		def:     exploreDropToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDrop },
	},
	"explore_clear": {
		def:     exploreClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"explore_rate": {
		def:     exploreRateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRate },
	},
	"explore_story": {
		def:     exploreStoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStory },
	},
	"explore_next": {
		def:     exploreNextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNext },
	},
	"explore_back": {
		def:     exploreBackToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBack },
	},
	"explore_goto": {
		def:     exploreGotoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGoto },
	},
	"explore_submit": {
		def:     exploreSubmitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubmit },
	},
	"explore_reset": {
		def:     exploreResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
	"record_list": {
		def:     recordListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordList },
	},
	"record_get": {
		def:     recordGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordGet },
	},
	"record_update": {
		def:     recordUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordUpdate },
	},
	"record_delete": {
		def:     recordDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordDelete },
	},
	"record_analysis": {
		def:     recordAnalysisToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordAnalysis },
	},
	"card_list": {
		def:     cardListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCardList },
	},
	"card_get": {
		def:     cardGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCardGet },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "explore_pick" → "explore").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with wavemo tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, flow *explore.Store, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"wavemo",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, flow)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, flow *explore.Store, version string) error {
	s := NewServer(db, cfg, flow, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
