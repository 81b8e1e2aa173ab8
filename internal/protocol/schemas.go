package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	actSchema         = mustCompile("act.schema.json")
	observationSchema = mustCompile("observation.schema.json")
)

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return s
}

func validateJSON(s *jsonschema.Schema, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

// ValidateActBody checks an /act request body against the embedded
// schema before the strict union decode runs.
func ValidateActBody(body []byte) error {
	return validateJSON(actSchema, body)
}

// ValidateObservationBody checks an /observe POST body against the
// embedded schema.
func ValidateObservationBody(body []byte) error {
	return validateJSON(observationSchema, body)
}
