package reply

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

// Schema describes the JSON object the model is asked to answer with. Backends that support
// constrained decoding pass it along with the request.
func Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			KeyChainOfThought: {
				Type:        "string",
				Description: "Reasoning: current step, analysis of the user input, response plan.",
			},
			KeyStepNumber: {
				Type:        "string",
				Description: "Current task step number.",
			},
			KeyOrder: {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"item":     {Type: "string"},
						"quantity": {Type: "integer"},
						"price":    {Type: "string"},
					},
					Required: []string{"item", "quantity"},
				},
			},
			KeyResponse: {
				Type:        "string",
				Description: "The reply shown to the customer.",
			},
		},
		Required: []string{KeyChainOfThought, KeyStepNumber, KeyOrder, KeyResponse},
	}
}
