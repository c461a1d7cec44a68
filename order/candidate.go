package order

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"orderagent/catalog"
)

// Candidate is an order entry from an untrusted source (model output, caller input) in its
// decoded JSON form. Nothing about its shape is assumed until Merge or Sanitize reads it.
type Candidate struct {
	value any
}

// CandidateOf wraps a decoded JSON value.
func CandidateOf(v any) Candidate { return Candidate{value: v} }

// CandidatesOf wraps lines that are already typed, such as extractor output.
func CandidatesOf(lines []Line) []Candidate {
	out := make([]Candidate, 0, len(lines))
	for _, l := range lines {
		out = append(out, Candidate{value: map[string]any{
			"item":     l.Item,
			"quantity": l.Quantity,
			"price":    l.Price,
		}})
	}
	return out
}

// Candidates splits a decoded JSON value into candidates. ok is false when v is not a list.
func Candidates(v any) (cands []Candidate, ok bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	cands = make([]Candidate, 0, len(list))
	for _, item := range list {
		cands = append(cands, Candidate{value: item})
	}
	return cands, true
}

func (c Candidate) String() string {
	b, err := json.Marshal(c.value)
	if err != nil {
		return fmt.Sprintf("%v", c.value)
	}
	return string(b)
}

// item returns the raw item name when the candidate is a record with a non-empty string item.
func (c Candidate) item() (string, error) {
	rec, ok := c.value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: not a record", ErrInvalidLine)
	}
	raw, ok := rec["item"]
	if !ok {
		return "", fmt.Errorf("%w: missing item", ErrInvalidLine)
	}
	name, ok := raw.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: item is not a name", ErrInvalidLine)
	}
	return name, nil
}

// quantity reads the quantity field. A missing field means 1; anything that is not a
// positive integer after coercion yields 1 and ErrQuantity.
func (c Candidate) quantity() (int, error) {
	rec, _ := c.value.(map[string]any)
	raw, ok := rec["quantity"]
	if !ok {
		return 1, nil
	}
	q, err := coerceQuantity(raw)
	if err != nil {
		return 1, fmt.Errorf("%w: %v", ErrQuantity, err)
	}
	if q < 1 {
		return 1, fmt.Errorf("%w: %d is not positive", ErrQuantity, q)
	}
	return q, nil
}

func coerceQuantity(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return fromFloat(float64(v))
	case int64:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return fromFloat(float64(i))
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return fromFloat(f)
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.Atoi(s); err == nil {
			return fromFloat(float64(i))
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromFloat(f)
		}
		return 0, fmt.Errorf("%q is not a number", v)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

// fromFloat truncates toward zero and rejects values above MaxQuantity or below the int32 range.
func fromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > MaxQuantity || f < math.MinInt32 {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(f), nil
}

// Line reads the candidate as a line committed on an earlier turn, without consulting a
// catalog. The item is kept as written and the quantity is coerced like Merge does. A quantity
// error is returned together with the line defaulted to 1; ErrInvalidLine means no line.
func (c Candidate) Line() (Line, error) {
	name, err := c.item()
	if err != nil {
		return Line{}, err
	}
	qty, qerr := c.quantity()
	rec := c.value.(map[string]any)
	return Line{Item: name, Quantity: qty, Price: priceText(rec["price"])}, qerr
}

func priceText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return catalog.MoneyFromFloat(v).String()
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return catalog.MoneyFromFloat(f).String()
		}
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
