package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	schemaTaskFields = "task_fields.json"
	schemaCompletion = "completion.json"
	schemaOpenDialog = "open_dialog.json"

	schemaBaseURL = "https://taskdesk.local/schema/"
)

//go:embed schema/*.json
var embeddedSchemas embed.FS

var requestSchemas = mustCompileSchemas(schemaTaskFields, schemaCompletion, schemaOpenDialog)

func mustCompileSchemas(names ...string) map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	for _, name := range names {
		data, err := embeddedSchemas.ReadFile("schema/" + name)
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", name, err))
		}
		if err := compiler.AddResource(schemaBaseURL+name, bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", name, err))
		}
	}

	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		out[name] = compiler.MustCompile(schemaBaseURL + name)
	}
	return out
}

// checkShape validates raw JSON against a request schema. It only checks
// types and formats; required/unique field rules belong to the validator.
func checkShape(name string, raw []byte) error {
	schema, ok := requestSchemas[name]
	if !ok {
		return fmt.Errorf("unknown request schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return errors.New(strings.Join(collectSchemaErrors(nil, ve), "; "))
		}
		return err
	}
	return nil
}

func collectSchemaErrors(out []string, err *jsonschema.ValidationError) []string {
	if err == nil {
		return out
	}
	if len(err.Causes) == 0 {
		loc := strings.TrimPrefix(err.InstanceLocation, "/")
		if loc == "" {
			loc = "body"
		}
		return append(out, loc+": "+err.Message)
	}
	for _, cause := range err.Causes {
		out = collectSchemaErrors(out, cause)
	}
	return out
}
