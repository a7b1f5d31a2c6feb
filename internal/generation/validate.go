package generation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiledSchemas holds the stage response schemas compiled once at package
// init, keyed by schema name. The schemas are static, so a compile failure
// here is a programming error.
var compiledSchemas = map[string]*jsonschema.Schema{
	SchemaNameSummary:   mustCompile(SchemaNameSummary, SummarySchema()),
	SchemaNameTermCards: mustCompile(SchemaNameTermCards, TermCardsSchema()),
	SchemaNameInsight:   mustCompile(SchemaNameInsight, InsightSchema()),
	SchemaNameQuiz:      mustCompile(SchemaNameQuiz, QuizSchema()),
}

func mustCompile(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %q: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %q: %v", name, err))
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		panic(fmt.Sprintf("compile schema %q: %v", name, err))
	}
	return schema
}

// ValidateResponse validates data against the pre-compiled stage schema
// registered under name. The same schema the provider was asked to honor is
// enforced on the way back in, so malformed responses fail before a
// processor ever sees them.
func ValidateResponse(name string, data []byte) error {
	schema, ok := compiledSchemas[name]
	if !ok {
		return fmt.Errorf("%w: unknown schema %q", ErrInvalidConfig, name)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: response is not JSON: %v", ErrInvalidResponse, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
