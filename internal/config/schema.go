package config

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaData []byte

var compiled *jsonschema.Schema

func init() {
	var err error

	compiled, err = jsonschema.CompileString(FileName+".schema.json", string(schemaData))
	if err != nil {
		panic(fmt.Errorf("compile settings schema: %w", err))
	}
}

// validateDocument checks the raw settings document for unknown keys and mistyped values.
func validateDocument(data []byte) error {
	var doc any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return err
	}

	// Empty file.
	if doc == nil {
		return nil
	}

	// The validator works on JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	var value any

	err = json.Unmarshal(raw, &value)
	if err != nil {
		return err
	}

	return compiled.Validate(value)
}
