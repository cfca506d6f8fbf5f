package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
	"github.com/krisyotam/krisyotam.com-sub010/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	repo    *ops.Repository
	log     *zap.Logger
	preview bool
}

// NewHandlers creates a new Handlers instance. include_hidden is honored
// only when cfg enables preview.
func NewHandlers(repo *ops.Repository, cfg *config.Config, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{repo: repo, log: log, preview: cfg != nil && cfg.AllowPreview}
}

// Request types for each tool

// ListRequest represents the arguments for content_list.
type ListRequest struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// GetRequest represents the arguments for content_get.
type GetRequest struct {
	Type          string `json:"type"`
	Slug          string `json:"slug"`
	IncludeHidden bool   `json:"include_hidden,omitempty"`
}

// SearchRequest represents the arguments for content_search.
type SearchRequest struct {
	Query    string `json:"query"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// TypeRequest carries the optional type filter of the tag and category tools.
type TypeRequest struct {
	Type string `json:"type,omitempty"`
}

// SequenceGetRequest represents the arguments for sequence_get.
type SequenceGetRequest struct {
	Slug          string `json:"slug"`
	IncludeHidden bool   `json:"include_hidden,omitempty"`
}

// HandleList handles the content_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return h.errorResult(req, errors.NewValidation(err.Error())), nil
	}

	result, err := h.repo.List(ctx, ops.ListInput{
		Type:     input.Type,
		Category: input.Category,
		Tag:      input.Tag,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(result)
}

// HandleGet handles the content_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return h.errorResult(req, errors.NewValidation(err.Error())), nil
	}

	result, err := h.repo.Fetch(ctx, ops.FetchInput{
		Type:          input.Type,
		Slug:          input.Slug,
		IncludeHidden: h.preview && input.IncludeHidden,
	})
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(result)
}

// HandleSearch handles the content_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return h.errorResult(req, errors.NewValidation(err.Error())), nil
	}

	result, err := h.repo.Search(ctx, ops.SearchInput{
		Query:    input.Query,
		Type:     input.Type,
		Category: input.Category,
		Tag:      input.Tag,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(result)
}

// HandleTypes handles the content_types tool call.
func (h *Handlers) HandleTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.repo.Inventory(ctx)
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(result)
}

// HandleTags handles the content_tags tool call.
func (h *Handlers) HandleTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TypeRequest](req)
	if err != nil {
		return h.errorResult(req, errors.NewValidation(err.Error())), nil
	}

	var tags []content.Tag
	if isSingleType(input.Type) {
		var t content.Type
		if t, err = h.repo.ResolveType(input.Type); err == nil {
			tags, err = h.repo.TagsByType(ctx, t)
		}
	} else {
		tags, err = h.repo.AllTags(ctx)
	}
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(map[string]any{"tags": tags})
}

// HandleCategories handles the content_categories tool call.
func (h *Handlers) HandleCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TypeRequest](req)
	if err != nil {
		return h.errorResult(req, errors.NewValidation(err.Error())), nil
	}

	var categories []content.Category
	if isSingleType(input.Type) {
		var t content.Type
		if t, err = h.repo.ResolveType(input.Type); err == nil {
			categories, err = h.repo.CategoriesByType(ctx, t)
		}
	} else {
		categories, err = h.repo.AllCategories(ctx)
	}
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(map[string]any{"categories": categories})
}

// HandleSequenceGet handles the sequence_get tool call.
func (h *Handlers) HandleSequenceGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SequenceGetRequest](req)
	if err != nil {
		return h.errorResult(req, errors.NewValidation(err.Error())), nil
	}
	if strings.TrimSpace(input.Slug) == "" {
		return h.errorResult(req, errors.NewValidation("slug is required")), nil
	}

	result, err := h.repo.SequenceBySlug(ctx, input.Slug, h.preview && input.IncludeHidden)
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(result)
}

// HandleSequenceList handles the sequence_list tool call.
func (h *Handlers) HandleSequenceList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.repo.Sequences(ctx)
	if err != nil {
		return h.errorResult(req, err), nil
	}
	return successResult(map[string]any{content.SequenceRoute: result})
}

func isSingleType(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && !strings.EqualFold(name, content.AllRoute)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Server-side failures are logged and reported with a generic message.
func (h *Handlers) errorResult(req mcp.CallToolRequest, err error) *mcp.CallToolResult {
	status := errors.StatusOf(err)
	code := errors.CodeOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("tool call failed",
			zap.String("tool", req.Params.Name),
			zap.String("code", string(code)),
			zap.Error(err))
	}

	errorObj := map[string]any{
		"code":    code,
		"message": errors.PublicMessage(err),
		"status":  status,
	}
	var cErr *errors.ContentError
	if errors.As(err, &cErr) && status < http.StatusInternalServerError && cErr.Details != nil {
		errorObj["details"] = cErr.Details
	}

	payload, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
