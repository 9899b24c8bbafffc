package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/dwell/internal/app"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"tracking", "summary", "data", "screenshot"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"tracking_status": {
		def:     trackingStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTrackingStatus },
	},
	"tracking_current_session": {
		def:     trackingCurrentSessionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCurrentSession },
	},
	"tracking_session_stats": {
		def:     trackingSessionStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionStats },
	},
	"tracking_start": {
		def:     trackingStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStart },
	},
	"tracking_stop": {
		def:     trackingStopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStop },
	},
	"summary_get": {
		def:     summaryGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryGet },
	},
	"summary_clear": {
		def:     summaryClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryClear },
	},
	"data_today": {
		def:     dataTodayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleToday },
	},
	"data_yesterday": {
		def:     dataYesterdayToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleYesterday },
	},
	"data_all_time": {
		def:     dataAllTimeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAllTime },
	},
	"data_clear": {
		def:     dataClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClearData },
	},
	"data_report": {
		def:     dataReportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReport },
	},
	"screenshot_status": {
		def:     screenshotStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotStatus },
	},
	"screenshot_enable": {
		def:     screenshotEnableToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotEnable },
	},
	"screenshot_disable": {
		def:     screenshotDisableToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotDisable },
	},
	"screenshot_take": {
		def:     screenshotTakeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotTake },
	},
	"screenshot_list": {
		def:     screenshotListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotList },
	},
	"screenshot_get": {
		def:     screenshotGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotGet },
	},
	"screenshot_delete_old": {
		def:     screenshotDeleteOldToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotDeleteOld },
	},
	"screenshot_clear": {
		def:     screenshotClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScreenshotClear },
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
// Tool names follow the pattern "type_action" (e.g., "data_today" → "data").
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

// NewServer creates a new MCP server with Dwell tools registered.
// Tools listed in DisabledTools or belonging to DisabledTypes are excluded.
func NewServer(svc *app.Services, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"dwell",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(svc.Config.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range svc.Config.DisabledTools {
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
func Run(svc *app.Services, version string) error {
	s := NewServer(svc, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
