package order

import (
	"errors"
	"log/slog"

	"orderagent/catalog"
)

// Merge folds candidates into existing and returns the new order. existing is not modified.
//
// A candidate whose item already has a line adds its quantity to that line and the line is
// repriced; otherwise a new line is appended. Existing lines keep their order. Candidates that
// are not records with an item, or whose item is not in the catalog, are skipped.
func Merge(cat *catalog.Catalog, existing []Line, candidates []Candidate) []Line {
	merged := Clone(existing)
	if merged == nil {
		merged = []Line{}
	}

	index := make(map[string]int, len(merged))
	for i, l := range merged {
		if _, seen := index[l.Item]; !seen {
			index[l.Item] = i
		}
	}

	for _, cand := range candidates {
		raw, err := cand.item()
		if err != nil {
			slog.Warn("MERGE: Skipping candidate", "candidate", cand.String(), "error", err)
			continue
		}
		name, ok := cat.Resolve(raw)
		if !ok {
			slog.Warn("MERGE: Skipping candidate not in catalog", "item", raw)
			continue
		}
		qty, err := cand.quantity()
		if err != nil {
			slog.Warn("MERGE: Defaulting quantity", "item", name, "error", err)
		}

		if i, found := index[name]; found {
			line, err := NewLine(cat, name, AddQuantity(merged[i].Quantity, qty))
			if err != nil {
				slog.Error("MERGE: Failed to reprice line", "item", name, "error", err)
				continue
			}
			merged[i] = line
			continue
		}

		line, err := NewLine(cat, name, qty)
		if err != nil {
			if errors.Is(err, catalog.ErrUnknownItem) {
				slog.Error("MERGE: Resolved item has no price", "item", name)
			}
			continue
		}
		index[name] = len(merged)
		merged = append(merged, line)
	}

	return merged
}
