package brain

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// replySchema constrains the decision object before it is trusted.
// Keeping it strict on types but loose on extra fields lets prompt
// iterations add fields without breaking older binaries.
const replySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string"},
    "content": {"type": "string"},
    "memory_updates": {
      "type": "object",
      "properties": {
        "contact": {"$ref": "#/definitions/profile"},
        "user": {"$ref": "#/definitions/profile"}
      }
    }
  },
  "definitions": {
    "profile": {
      "type": "object",
      "properties": {
        "notes": {"type": "array", "items": {"type": "string"}},
        "topics": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledReplySchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("reply.schema.json", strings.NewReader(replySchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("reply.schema.json")
	})
	return compiledSchema, schemaErr
}

// validateReply checks a candidate JSON block against the reply schema.
func validateReply(block string) error {
	schema, err := compiledReplySchema()
	if err != nil {
		return fmt.Errorf("compile reply schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal([]byte(block), &instance); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("reply failed validation: %w", err)
	}
	return nil
}
