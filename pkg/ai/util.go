package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// GenerateSchema reflects a JSON Schema for value's type, with additional
// properties disallowed and definitions inlined, the shape structured-output
// endpoints expect.
func GenerateSchema(value any) any {
	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(reflect.New(t).Interface())
}

// Models occasionally open an object twice ("{ {"). Dropping the outer
// brace lets the repair pass close the object correctly.
func trimDoubledBrace(s string) string {
	rest, found := strings.CutPrefix(strings.TrimSpace(s), "{")
	if !found {
		return s
	}
	if trimmed := strings.TrimSpace(rest); strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	return s
}

// UnmarshalFlexible decodes model-produced JSON into out, tolerating the
// defects models actually emit: double-encoded payloads, a duplicated
// opening brace, and structurally broken JSON that a repair pass can fix.
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if json.Unmarshal([]byte(input), out) == nil {
		return nil
	}

	// A top-level JSON string means the payload was encoded twice.
	var nested string
	if json.Unmarshal([]byte(input), &nested) == nil {
		nested = strings.TrimSpace(nested)
		if json.Unmarshal([]byte(nested), out) == nil {
			return nil
		}
		input = nested
	}

	input = trimDoubledBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}
	if json.Unmarshal([]byte(repaired), out) == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}
