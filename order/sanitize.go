package order

import (
	"fmt"
	"log/slog"

	"orderagent/catalog"
)

// Rejection records why a proposed line was dropped or repaired.
type Rejection struct {
	Index     int
	Candidate string
	Err       error
}

// Report is the outcome of Sanitize.
type Report struct {
	// Dropped lists lines that were removed from the order.
	Dropped []Rejection
	// Repaired lists lines that were kept with a defaulted quantity.
	Repaired []Rejection
}

// Sanitize is the trust boundary between model output and the committed order. proposed is
// the decoded "order" field of a model reply. Every kept line uses the catalog's canonical
// name and catalog price; repeated items are combined into one line. A proposal that is not a
// list sanitizes to an empty order.
func Sanitize(cat *catalog.Catalog, proposed any) ([]Line, Report) {
	var report Report
	lines := []Line{}

	cands, ok := Candidates(proposed)
	if !ok {
		if proposed != nil {
			slog.Warn("SANITIZE: Proposed order is not a list; resetting", "type", fmt.Sprintf("%T", proposed))
		}
		return lines, report
	}

	index := make(map[string]int, len(cands))
	for i, cand := range cands {
		raw, err := cand.item()
		if err != nil {
			slog.Warn("SANITIZE: Invalid line structure; skipping", "index", i, "candidate", cand.String())
			report.Dropped = append(report.Dropped, Rejection{Index: i, Candidate: cand.String(), Err: err})
			continue
		}

		name, ok := cat.Resolve(raw)
		if !ok {
			slog.Warn("SANITIZE: Item not in catalog; removing", "index", i, "item", raw)
			report.Dropped = append(report.Dropped, Rejection{
				Index:     i,
				Candidate: cand.String(),
				Err:       fmt.Errorf("%w: %q", catalog.ErrUnknownItem, raw),
			})
			continue
		}

		qty, err := cand.quantity()
		if err != nil {
			slog.Warn("SANITIZE: Quantity defaulted to 1", "index", i, "item", name, "error", err)
			report.Repaired = append(report.Repaired, Rejection{Index: i, Candidate: cand.String(), Err: err})
		}

		if j, seen := index[name]; seen {
			qty = AddQuantity(lines[j].Quantity, qty)
			line, err := NewLine(cat, name, qty)
			if err != nil {
				report.Dropped = append(report.Dropped, Rejection{Index: i, Candidate: cand.String(), Err: err})
				continue
			}
			lines[j] = line
			continue
		}

		line, err := NewLine(cat, name, qty)
		if err != nil {
			report.Dropped = append(report.Dropped, Rejection{Index: i, Candidate: cand.String(), Err: err})
			continue
		}
		index[name] = len(lines)
		lines = append(lines, line)
	}

	return lines, report
}
