// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"fmt"

	"github.com/pdiddy/protocol-engine/pkg/types"
)

// systemPrompt fixes the assistant's role and the required JSON shape. The
// field names here must stay in sync with protocolResponse in synth.go.
const systemPrompt = `You are an expert in molecular biology and biochemistry with 20 years of
experience writing laboratory protocols. Your task is to convert methods
descriptions from scientific articles into clear, reproducible step-by-step
protocols.

You must ALWAYS respond with valid JSON in the following structure:
{
    "title": "Descriptive protocol title",
    "reagents": ["List of reagents with concentrations"],
    "materials": ["List of required materials and equipment"],
    "preparation": ["Advance preparation steps"],
    "procedure": [
        {"step": 1, "action": "Description", "time": "X min", "temp": "X C", "notes": ""}
    ],
    "conditions": {
        "total_time": "X hours",
        "temperature": "X C",
        "special_conditions": ""
    },
    "critical_notes": ["Notes critical to success"],
    "safety_warnings": ["Safety warnings"]
}`

// styleInstructions maps each protocol style to its user-prompt emphasis.
// Unknown styles fall back to detailed.
var styleInstructions = map[types.Style]string{
	types.StyleDetailed:    "Include EVERY detail, exact volumes, precise timings, and alternatives.",
	types.StyleConcise:     "Be concise but complete. Include only essential information.",
	types.StyleEducational: "Explain the why of each step. Include the scientific principles.",
}

// buildPrompt assembles the user prompt for one synthesis request.
func buildPrompt(methodsText string, style types.Style) string {
	instruction, ok := styleInstructions[style]
	if !ok {
		instruction = styleInstructions[types.StyleDetailed]
	}

	return fmt.Sprintf(`Convert the following methods text into a standardized laboratory protocol.

Requested style: %s

Original methods text:
%s

Requirements:
1. Extract EVERY reagent mentioned with its exact concentration
2. List all required equipment and materials
3. Identify preparation steps that must happen before the experiment
4. Number the procedure step by step with times and temperatures
5. Highlight critical conditions (pH, temperature, time)
6. Add relevant safety notes
7. If critical information is missing, say so in the notes

Respond ONLY with the protocol JSON, no additional text.`, instruction, methodsText)
}
