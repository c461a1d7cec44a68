// Package mock provides a deterministic generation.Generator for offline runs and tests. It
// answers in the same strict JSON shape a real model is asked for, reading the order from the
// customer's text with the extractor.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"orderagent/catalog"
	"orderagent/extract"
	"orderagent/generation"
	"orderagent/order"
)

var closing = regexp.MustCompile(`\b(no|nope|nothing( else)?|that'?s (all|it)|done)\b`)

type Generator struct {
	cat *catalog.Catalog
	ex  *extract.Extractor
}

func NewGenerator(cat *catalog.Catalog, ex *extract.Extractor) *Generator {
	return &Generator{cat: cat, ex: ex}
}

type answer struct {
	ChainOfThought string       `json:"chain of thought"`
	StepNumber     string       `json:"step number"`
	Order          []order.Line `json:"order"`
	Response       string       `json:"response"`
}

func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var latest string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == generation.RoleUser {
			latest = req.Messages[i].Content
			break
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no user message in request")
	}

	prior, text, _ := generation.ParseEnriched(latest)
	found := g.ex.Extract(text)
	current := order.Merge(g.cat, prior.Order, order.CandidatesOf(found))

	var a answer
	switch {
	case len(found) > 0:
		a = answer{
			ChainOfThought: fmt.Sprintf("Step 1: customer ordered %d item(s); added to the order.", len(found)),
			StepNumber:     "3",
			Order:          current,
			Response:       fmt.Sprintf("Got it: %s. Would you like anything else?", describe(found)),
		}
	case len(current) > 0 && closing.MatchString(strings.ToLower(text)):
		a = answer{
			ChainOfThought: "Step 4: customer has nothing to add; finalizing.",
			StepNumber:     "4",
			Order:          current,
			Response:       g.summary(current),
		}
	default:
		a = answer{
			ChainOfThought: "Step 1: no menu items recognised.",
			StepNumber:     "1",
			Order:          current,
			Response:       "What would you like to order from our menu?",
		}
	}

	out, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	slog.Debug("LLM_CLIENT: Mock answer", "step", a.StepNumber, "lines", len(a.Order))
	return string(out), nil
}

func describe(lines []order.Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%d x %s", l.Quantity, l.Item))
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) summary(lines []order.Line) string {
	var b strings.Builder
	b.WriteString("Here is your order:\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "- %d x %s: %s\n", l.Quantity, l.Item, l.Price)
	}
	if total, err := order.Total(g.cat, lines); err == nil {
		fmt.Fprintf(&b, "Total: %s\n", total)
	}
	b.WriteString("Thank you for ordering!")
	return b.String()
}
