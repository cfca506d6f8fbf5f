package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/ops"
)

// ServerName is the name reported to MCP clients.
const ServerName = "site-content"

// KnownGroups lists the tool groups that can be disabled as a whole by
// naming the group in disabled_tools.
var KnownGroups = []string{"content", "sequence"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"content_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"content_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"content_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"content_types": {
		def:     typesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTypes },
	},
	"content_tags": {
		def:     tagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTags },
	},
	"content_categories": {
		def:     categoriesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCategories },
	},
	"sequence_get": {
		def:     sequenceGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSequenceGet },
	},
	"sequence_list": {
		def:     sequenceListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSequenceList },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the entries of names that are neither a
// tool name nor a tool group.
func ValidateDisabledTools(names []string) []string {
	groups := make(map[string]bool, len(KnownGroups))
	for _, g := range KnownGroups {
		groups[g] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; ok {
			continue
		}
		if groups[name] {
			continue
		}
		unknown = append(unknown, name)
	}
	return unknown
}

// GetGroupForTool extracts the group name from a tool name.
// Tool names follow the pattern "group_action" (e.g., "content_list" → "content").
func GetGroupForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// disabledSet expands group entries to their tools and adds plain tool names.
func disabledSet(names []string) map[string]bool {
	entries := make(map[string]bool, len(names))
	for _, n := range names {
		entries[n] = true
	}

	disabled := make(map[string]bool)
	for name := range toolRegistry {
		if entries[name] || entries[GetGroupForTool(name)] {
			disabled[name] = true
		}
	}
	return disabled
}

// NewServer creates an MCP server with the content tools registered.
// Tools named in cfg.DisabledTools, directly or by group, are left out.
func NewServer(repo *ops.Repository, cfg *config.Config, log *zap.Logger, version string) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(repo, cfg, log)
	disabled := disabledSet(cfg.DisabledTools)

	for _, name := range AllToolNames() {
		if disabled[name] {
			continue
		}
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server using stdio transport.
func Run(repo *ops.Repository, cfg *config.Config, log *zap.Logger, version string) error {
	s := NewServer(repo, cfg, log, version)
	return server.ServeStdio(s)
}
