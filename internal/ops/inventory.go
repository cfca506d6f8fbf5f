package ops

import (
	"context"

	"github.com/krisyotam/krisyotam.com-sub010/internal/content"
)

// TypeSummary describes one enabled content type.
type TypeSummary struct {
	Type   content.Type `json:"type"`
	Route  string       `json:"route"`
	Title  string       `json:"title"`
	Active int          `json:"active"`
	Hidden int          `json:"hidden"`

	// Latest is the start date of the newest active item, if any
	Latest string `json:"latest,omitempty"`

	// Available is false when the store could not be read for this type
	Available bool `json:"available"`
}

// InventoryOutput contains the result of the Inventory operation.
type InventoryOutput struct {
	Types []TypeSummary `json:"types"`
	Total int           `json:"total"`
}

// Inventory summarizes every enabled type in canonical order. A type whose
// store read fails is reported as unavailable with zero counts.
func (r *Repository) Inventory(ctx context.Context) (*InventoryOutput, error) {
	gathered, err := r.gatherActive(ctx, "inventory")
	if err != nil {
		return nil, err
	}

	out := &InventoryOutput{Types: make([]TypeSummary, 0, len(gathered))}
	for _, g := range gathered {
		s := TypeSummary{
			Type:      g.t,
			Route:     g.t.Route(),
			Title:     content.TitleFromSlug(g.t.Route()),
			Available: !g.failed,
		}
		for _, rec := range g.records {
			if rec.IsActive() {
				s.Active++
			} else {
				s.Hidden++
			}
		}
		if active := shapeActive(g.records, nil); len(active) > 0 {
			s.Latest = active[0].StartDate
		}
		out.Total += s.Active
		out.Types = append(out.Types, s)
	}
	return out, nil
}
