package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/docstore"
	"github.com/krisyotam/krisyotam.com-sub010/internal/ops"
)

const essaysJSON = `[
  {"slug": "older", "title": "Older Essay", "start_date": "2023-05-01", "category": "phil", "tags": ["time"], "preview": "About clocks"},
  {"slug": "newer", "title": "Newer Essay", "start_date": "2024-05-01", "category": "phil", "tags": ["time", "go"]},
  {"slug": "draft", "title": "Draft", "start_date": "2025-01-01", "state": "hidden"}
]`

const noteMD = `---
title: Clock Notes
start_date: 2024-06-01
category: math
tags: [go]
---
Some *clock* text.
`

const sequencesJSON = `[
  {"slug": "path", "title": "Reading Path", "start_date": "2024-07-01",
   "posts": [
     {"slug": "newer", "order": 2, "type": "essay"},
     {"slug": "older", "order": 1, "type": "essay"}
   ]},
  {"slug": "secret", "title": "Secret", "start_date": "2024-08-01", "state": "hidden"}
]`

// testSetup writes a document tree and returns handlers over it.
func testSetup(t *testing.T, opts ...func(*config.Config)) (*Handlers, string, *observer.ObservedLogs) {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "content", "essays.json"), essaysJSON)
	writeFile(t, filepath.Join(dir, "content", "notes", "clock-notes.md"), noteMD)
	writeFile(t, filepath.Join(dir, "categories.json"), `[{"slug": "phil", "title": "Philosophy"}]`)
	writeFile(t, filepath.Join(dir, "sequences.json"), sequencesJSON)

	return newHandlers(t, dir, opts...)
}

func allowPreview(cfg *config.Config) { cfg.AllowPreview = true }

func newHandlers(t *testing.T, dir string, opts ...func(*config.Config)) (*Handlers, string, *observer.ObservedLogs) {
	t.Helper()
	store, err := docstore.New(dir)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	repo := ops.New(store, ops.Options{Logger: log, Config: cfg})
	return NewHandlers(repo, cfg, log), dir, logs
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload))
	return payload
}

func slugsIn(t *testing.T, v any) []string {
	t.Helper()
	list, ok := v.([]any)
	require.True(t, ok, "expected a list, got %T", v)
	slugs := make([]string, 0, len(list))
	for _, it := range list {
		slugs = append(slugs, it.(map[string]any)["slug"].(string))
	}
	return slugs
}

func errorOf(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.True(t, result.IsError, "expected an error result")
	return resultJSON(t, result)["error"].(map[string]any)
}

func TestHandleList(t *testing.T) {
	h, _, _ := testSetup(t)
	ctx := context.Background()

	result, err := h.HandleList(ctx, makeRequest("content_list", map[string]any{"type": "essays"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	payload := resultJSON(t, result)
	require.Equal(t, []string{"newer", "older"}, slugsIn(t, payload["items"]))
	require.Equal(t, "start_date_desc", payload["sort"])

	result, err = h.HandleList(ctx, makeRequest("content_list", map[string]any{"type": "all", "limit": 1, "offset": 1}))
	require.NoError(t, err)
	payload = resultJSON(t, result)
	require.Equal(t, []string{"newer"}, slugsIn(t, payload["items"]))
	pagination := payload["pagination"].(map[string]any)
	require.Equal(t, true, pagination["has_more"])
	require.Equal(t, float64(3), pagination["total"])

	result, err = h.HandleList(ctx, makeRequest("content_list", map[string]any{"type": "essay", "tag": "go"}))
	require.NoError(t, err)
	require.Equal(t, []string{"newer"}, slugsIn(t, resultJSON(t, result)["items"]))
}

func TestHandleList_Errors(t *testing.T) {
	h, _, _ := testSetup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"missing type", map[string]any{}, "VALIDATION_ERROR"},
		{"unknown type", map[string]any{"type": "podcasts"}, "VALIDATION_ERROR"},
		{"wrong arg type", map[string]any{"type": 5}, "VALIDATION_ERROR"},
		{"unknown argument", map[string]any{"type": "essays", "sort": "title"}, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleList(ctx, makeRequest("content_list", tt.args))
			require.NoError(t, err)
			e := errorOf(t, result)
			require.Equal(t, tt.code, e["code"])
			require.Equal(t, float64(400), e["status"])
		})
	}
}

func TestDecode(t *testing.T) {
	got, err := decode[GetRequest](makeRequest("content_get", map[string]any{"type": "essay", "slug": "a", "include_hidden": true}))
	require.NoError(t, err)
	require.Equal(t, GetRequest{Type: "essay", Slug: "a", IncludeHidden: true}, got)

	_, err = decode[GetRequest](makeRequest("content_get", map[string]any{"type": "essay", "slug": 7}))
	require.EqualError(t, err, `argument "slug" must be a string`)

	_, err = decode[SequenceGetRequest](makeRequest("sequence_get", map[string]any{"slug": "a", "hidden": true}))
	require.ErrorContains(t, err, `unknown field "hidden"`)

	empty, err := decode[TypeRequest](makeRequest("content_tags", nil))
	require.NoError(t, err)
	require.Equal(t, TypeRequest{}, empty)
}

func TestHandleGet(t *testing.T) {
	h, _, _ := testSetup(t, allowPreview)
	ctx := context.Background()

	result, err := h.HandleGet(ctx, makeRequest("content_get", map[string]any{"type": "notes", "slug": "clock-notes"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	payload := resultJSON(t, result)
	require.Equal(t, "Clock Notes", payload["title"])
	require.Contains(t, payload["body_html"], "<em>clock</em>")

	// hidden items need include_hidden
	result, err = h.HandleGet(ctx, makeRequest("content_get", map[string]any{"type": "essay", "slug": "draft"}))
	require.NoError(t, err)
	e := errorOf(t, result)
	require.Equal(t, "NOT_FOUND", e["code"])
	require.Equal(t, map[string]any{"kind": "essay", "slug": "draft"}, e["details"])

	result, err = h.HandleGet(ctx, makeRequest("content_get", map[string]any{"type": "essay", "slug": "draft", "include_hidden": true}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "hidden", resultJSON(t, result)["state"])
}

func TestIncludeHiddenNeedsPreview(t *testing.T) {
	ctx := context.Background()
	getDraft := makeRequest("content_get", map[string]any{"type": "essay", "slug": "draft", "include_hidden": true})
	getSecret := makeRequest("sequence_get", map[string]any{"slug": "secret", "include_hidden": true})

	h, _, _ := testSetup(t)
	result, err := h.HandleGet(ctx, getDraft)
	require.NoError(t, err)
	require.Equal(t, "NOT_FOUND", errorOf(t, result)["code"])
	result, err = h.HandleSequenceGet(ctx, getSecret)
	require.NoError(t, err)
	require.Equal(t, "NOT_FOUND", errorOf(t, result)["code"])

	h, _, _ = testSetup(t, allowPreview)
	result, err = h.HandleSequenceGet(ctx, getSecret)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "Secret", resultJSON(t, result)["title"])
}

func TestHandleSearch(t *testing.T) {
	h, _, _ := testSetup(t)
	ctx := context.Background()

	result, err := h.HandleSearch(ctx, makeRequest("content_search", map[string]any{"query": "clock"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	payload := resultJSON(t, result)
	require.Equal(t, []string{"clock-notes", "older"}, slugsIn(t, payload["items"]), "title match ranks first")
	require.Equal(t, "relevance", payload["sort"])

	result, err = h.HandleSearch(ctx, makeRequest("content_search", map[string]any{"query": "   "}))
	require.NoError(t, err)
	require.Equal(t, "VALIDATION_ERROR", errorOf(t, result)["code"])
}

func TestHandleTypes(t *testing.T) {
	h, _, _ := testSetup(t)

	result, err := h.HandleTypes(context.Background(), makeRequest("content_types", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	payload := resultJSON(t, result)
	require.Equal(t, float64(3), payload["total"])

	byRoute := make(map[string]map[string]any)
	for _, s := range payload["types"].([]any) {
		summary := s.(map[string]any)
		byRoute[summary["route"].(string)] = summary
	}
	require.Equal(t, float64(2), byRoute["essays"]["active"])
	require.Equal(t, float64(1), byRoute["essays"]["hidden"])
	require.Equal(t, float64(1), byRoute["notes"]["active"])
}

func TestHandleTagsAndCategories(t *testing.T) {
	h, _, _ := testSetup(t)
	ctx := context.Background()

	result, err := h.HandleTags(ctx, makeRequest("content_tags", nil))
	require.NoError(t, err)
	tags := resultJSON(t, result)["tags"].([]any)
	require.Len(t, tags, 2)
	first := tags[0].(map[string]any)
	require.Equal(t, "go", first["slug"])
	require.Equal(t, float64(2), first["count"])

	result, err = h.HandleTags(ctx, makeRequest("content_tags", map[string]any{"type": "notes"}))
	require.NoError(t, err)
	require.Equal(t, []string{"go"}, slugsIn(t, resultJSON(t, result)["tags"]))

	result, err = h.HandleCategories(ctx, makeRequest("content_categories", map[string]any{"type": "essays"}))
	require.NoError(t, err)
	categories := resultJSON(t, result)["categories"].([]any)
	require.Len(t, categories, 1)
	require.Equal(t, "Philosophy", categories[0].(map[string]any)["title"])

	result, err = h.HandleCategories(ctx, makeRequest("content_categories", map[string]any{"type": "podcasts"}))
	require.NoError(t, err)
	require.Equal(t, "VALIDATION_ERROR", errorOf(t, result)["code"])
}

func TestHandleSequences(t *testing.T) {
	h, _, _ := testSetup(t)
	ctx := context.Background()

	result, err := h.HandleSequenceList(ctx, makeRequest("sequence_list", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"path"}, slugsIn(t, resultJSON(t, result)["sequences"]))

	result, err = h.HandleSequenceGet(ctx, makeRequest("sequence_get", map[string]any{"slug": "path"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, []string{"older", "newer"}, slugsIn(t, resultJSON(t, result)["posts"]))

	result, err = h.HandleSequenceGet(ctx, makeRequest("sequence_get", map[string]any{"slug": "secret"}))
	require.NoError(t, err)
	require.Equal(t, "NOT_FOUND", errorOf(t, result)["code"])

	result, err = h.HandleSequenceGet(ctx, makeRequest("sequence_get", map[string]any{}))
	require.NoError(t, err)
	require.Equal(t, "VALIDATION_ERROR", errorOf(t, result)["code"])
}

func TestErrorResult_HidesStoreDetails(t *testing.T) {
	h, dir, logs := testSetup(t)
	writeFile(t, filepath.Join(dir, "content", "essays.json"), `{"essays": [`)

	result, err := h.HandleList(context.Background(), makeRequest("content_list", map[string]any{"type": "essays"}))
	require.NoError(t, err)
	e := errorOf(t, result)
	require.Equal(t, "DATA_UNAVAILABLE", e["code"])
	require.Equal(t, "content is temporarily unavailable", e["message"])
	require.Equal(t, float64(500), e["status"])
	require.NotContains(t, e, "details")

	failed := logs.FilterMessage("tool call failed").All()
	require.Len(t, failed, 1)
	require.Equal(t, "content_list", failed[0].ContextMap()["tool"])
	require.Contains(t, failed[0].ContextMap()["error"], "essays.json")
}

func TestValidateDisabledTools(t *testing.T) {
	require.Empty(t, ValidateDisabledTools([]string{"content_search", "sequence"}))
	require.Equal(t, []string{"content_delete", "nope"}, ValidateDisabledTools([]string{"content_delete", "content", "nope"}))
}

func TestGetGroupForTool(t *testing.T) {
	require.Equal(t, "content", GetGroupForTool("content_list"))
	require.Equal(t, "sequence", GetGroupForTool("sequence_get"))
	require.Equal(t, "", GetGroupForTool("standalone"))
	require.Equal(t, "", GetGroupForTool("_leading"))
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	require.True(t, sort.StringsAreSorted(names))
	require.Equal(t, []string{
		"content_categories", "content_get", "content_list", "content_search",
		"content_tags", "content_types", "sequence_get", "sequence_list",
	}, names)
	for _, name := range names {
		require.Equal(t, name, toolRegistry[name].def.Name)
	}
}

func TestDisabledSet(t *testing.T) {
	require.Empty(t, disabledSet(nil))

	disabled := disabledSet([]string{"sequence", "content_search", "unknown"})
	require.Equal(t, map[string]bool{
		"sequence_get":   true,
		"sequence_list":  true,
		"content_search": true,
	}, disabled)

	require.Len(t, disabledSet([]string{"content"}), 6)
}

func TestNewServer(t *testing.T) {
	h, _, _ := testSetup(t)
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"sequence"}
	require.NotNil(t, NewServer(h.repo, cfg, nil, "test"))
}
