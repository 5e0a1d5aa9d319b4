package remote

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaURL = "https://intent-gate.local/schemas/process-response.json"

const responseSchema = `{
  "type": "object",
  "required": ["token"],
  "properties": {
    "token": {
      "type": "object",
      "required": ["issued_at", "expires_at", "step_tokens"],
      "anyOf": [
        {"required": ["intent_reference"]},
        {"required": ["plan_hash"]}
      ],
      "properties": {
        "intent_reference": {"type": "string", "minLength": 1},
        "plan_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
        "policy_digest": {"type": "string"},
        "issued_at": {"type": "string", "format": "date-time"},
        "expires_at": {"type": "string", "format": "date-time"},
        "step_tokens": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["token"],
            "properties": {
              "action": {"type": "string"},
              "mcp": {"type": "string"},
              "token": {"type": "string", "minLength": 1, "pattern": "^[0-9a-fA-F]+$"}
            }
          }
        }
      }
    }
  }
}`

func compileResponseSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(responseSchemaURL, strings.NewReader(responseSchema)); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	schema, err := c.Compile(responseSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}
