// Package reply recovers the structured answer from raw generation output.
package reply

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed is returned when raw output holds no JSON object with the required keys.
var ErrMalformed = errors.New("malformed generation output")

const (
	KeyChainOfThought = "chain of thought"
	KeyStepNumber     = "step number"
	KeyOrder          = "order"
	KeyResponse       = "response"
)

var requiredKeys = []string{KeyStepNumber, KeyOrder, KeyResponse}

// objectSpan matches from the first '{' to the last '}'.
var objectSpan = regexp.MustCompile(`\{[\s\S]*\}`)

// Reply is the allow-listed content of a model answer. Every other key the model returns is
// discarded.
type Reply struct {
	ChainOfThought string
	StepNumber     string
	Response       string
	// Order is the proposed order in decoded JSON form. It has not been validated against
	// the catalog; pass it through order.Sanitize before use.
	Order any
}

// Parse extracts the JSON object embedded in raw and validates the required keys. Any
// failure is reported as ErrMalformed.
func Parse(raw string) (Reply, error) {
	text := raw
	if span := objectSpan.FindString(raw); span != "" {
		text = span
	} else {
		slog.Warn("REPLY: No JSON object found in output")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if fields == nil {
		return Reply{}, fmt.Errorf("%w: output is null", ErrMalformed)
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Reply{}, fmt.Errorf("%w: missing keys %s", ErrMalformed, strings.Join(missing, ", "))
	}

	r := Reply{
		StepNumber: StepNumber(fields[KeyStepNumber]),
		Response:   asText(fields[KeyResponse]),
		Order:      proposedOrder(fields[KeyOrder]),
	}
	if cot, ok := fields[KeyChainOfThought]; ok {
		r.ChainOfThought = asText(cot)
	}
	return r, nil
}

// proposedOrder unwraps an order that was sent as a JSON-encoded string. A string that does
// not decode yields an empty list.
func proposedOrder(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		slog.Warn("REPLY: Order string is not JSON; resetting", "error", err)
		return []any{}
	}
	return decoded
}

// StepNumber renders a step value as the string form stored in memory. Missing or empty
// values are step "1".
func StepNumber(v any) string {
	switch s := v.(type) {
	case nil:
		return "1"
	case string:
		if strings.TrimSpace(s) == "" {
			return "1"
		}
		return s
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return asText(v)
	}
}

// asText returns strings unchanged and encodes anything else as JSON.
func asText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
