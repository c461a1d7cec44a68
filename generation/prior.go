package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"orderagent/order"
)

// PriorState is the conversation state restated to the model at the top of the latest user
// message.
type PriorState struct {
	StepNumber string
	Order      []order.Line
}

var (
	priorStepLine  = regexp.MustCompile(`(?m)^\s*PREVIOUS step number:\s*(.*?)\s*$`)
	priorOrderLine = regexp.MustCompile(`(?m)^\s*PREVIOUS order:\s*(.*?)\s*$`)
)

const userMarker = " \n User message: "

// Enrich prepends the prior state block to a user message.
func (p PriorState) Enrich(content string) string {
	lines := p.Order
	if lines == nil {
		lines = []order.Line{}
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		encoded = []byte("[]")
	}
	return fmt.Sprintf("\n        PREVIOUS step number: %s\n        PREVIOUS order: %s\n        ", p.StepNumber, encoded) +
		userMarker + content
}

// ParseEnriched splits a message built by Enrich back into its prior state and the user's
// own text. ok is false when content carries no prior state block.
func ParseEnriched(content string) (prior PriorState, userText string, ok bool) {
	idx := strings.Index(content, userMarker)
	if idx < 0 {
		return PriorState{}, content, false
	}
	head, userText := content[:idx], content[idx+len(userMarker):]

	step := priorStepLine.FindStringSubmatch(head)
	ord := priorOrderLine.FindStringSubmatch(head)
	if step == nil || ord == nil {
		return PriorState{}, content, false
	}

	prior.StepNumber = step[1]
	if err := json.Unmarshal([]byte(ord[1]), &prior.Order); err != nil {
		prior.Order = nil
	}
	return prior, userText, true
}
