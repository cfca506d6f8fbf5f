package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
	"github.com/krisyotam/krisyotam.com-sub010/internal/errors"
	"github.com/krisyotam/krisyotam.com-sub010/internal/ops"
)

// Handlers contains HTTP route handlers for the content API.
type Handlers struct {
	repo    *ops.Repository
	cfg     *config.Config
	log     *zap.Logger
	version string
}

// HandleContent handles GET /api/content. The type parameter selects an
// item listing, a single item (with slug), the combined listing ("all"), or
// sequences.
func (h *Handlers) HandleContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := strings.TrimSpace(q.Get("type"))
	slug := strings.TrimSpace(q.Get("slug"))
	if typ == "" {
		h.writeError(w, r, errors.NewValidation("type parameter is required"))
		return
	}

	if strings.EqualFold(typ, content.SequenceRoute) {
		h.handleSequences(w, r, slug)
		return
	}

	if slug != "" {
		item, err := h.repo.Fetch(r.Context(), ops.FetchInput{
			Type:          typ,
			Slug:          slug,
			IncludeHidden: h.includeHidden(r),
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		renderJSON(w, http.StatusOK, item)
		return
	}

	limit, offset, err := parsePaging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.repo.List(r.Context(), ops.ListInput{
		Type:     typ,
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		result.Route: result.Items,
		"pagination": result.Pagination,
		"sort":       result.Sort,
	})
}

func (h *Handlers) handleSequences(w http.ResponseWriter, r *http.Request, slug string) {
	if slug != "" {
		seq, err := h.repo.SequenceBySlug(r.Context(), slug, h.includeHidden(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		renderJSON(w, http.StatusOK, seq)
		return
	}

	seqs, err := h.repo.Sequences(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{content.SequenceRoute: seqs})
}

// HandleSearch handles GET /api/search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePaging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	result, err := h.repo.Search(r.Context(), ops.SearchInput{
		Query:    q.Get("q"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleTags handles GET /api/tags, for one type or across all types.
func (h *Handlers) HandleTags(w http.ResponseWriter, r *http.Request) {
	var (
		tags []content.Tag
		err  error
	)
	if typ := strings.TrimSpace(r.URL.Query().Get("type")); typ != "" && !strings.EqualFold(typ, content.AllRoute) {
		var t content.Type
		if t, err = h.repo.ResolveType(typ); err == nil {
			tags, err = h.repo.TagsByType(r.Context(), t)
		}
	} else {
		tags, err = h.repo.AllTags(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// HandleCategories handles GET /api/categories, for one type or across all types.
func (h *Handlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	var (
		categories []content.Category
		err        error
	)
	if typ := strings.TrimSpace(r.URL.Query().Get("type")); typ != "" && !strings.EqualFold(typ, content.AllRoute) {
		var t content.Type
		if t, err = h.repo.ResolveType(typ); err == nil {
			categories, err = h.repo.CategoriesByType(r.Context(), t)
		}
	} else {
		categories, err = h.repo.AllCategories(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// HandleTypes handles GET /api/types.
func (h *Handlers) HandleTypes(w http.ResponseWriter, r *http.Request) {
	result, err := h.repo.Inventory(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleFeed handles GET /feed.xml.
func (h *Handlers) HandleFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := h.repo.Feed(r.Context(), ops.FeedInput{
		Type:  r.URL.Query().Get("type"),
		Limit: limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"backend": h.cfg.Backend,
	})
}

// writeError renders the error envelope. Server-side failures are logged
// with their detail and answered with a generic message.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.String("code", string(errors.CodeOf(err))),
			zap.Error(err))
	}
	renderJSON(w, status, map[string]any{
		"error": errors.PublicMessage(err),
		"code":  string(errors.CodeOf(err)),
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func parsePaging(r *http.Request) (limit, offset int, err error) {
	if limit, err = parseIntParam(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = parseIntParam(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// parseIntParam parses an integer query parameter with a default value.
// A present but malformed or negative value is a validation error.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.NewValidation(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}

// includeHidden reports whether the request asks for hidden records and
// preview is enabled. Without allow_preview the parameter is ignored.
func (h *Handlers) includeHidden(r *http.Request) bool {
	return h.cfg.AllowPreview && parseBoolParam(r, "include_hidden")
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
