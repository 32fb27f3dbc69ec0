package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/income-verifier/constants"
)

var (
	schemaMu    sync.Mutex
	schemaCache = map[constants.DocumentType]*jsonschema.Schema{}
)

// recordSchema compiles the record schema of a document type once.
func recordSchema(docType constants.DocumentType) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[docType]; ok {
		return s, nil
	}
	s, err := compileSchema(string(docType)+".json", BuildRecordJSONSchema(docType))
	if err != nil {
		return nil, fmt.Errorf("%s schema: %w", docType, err)
	}
	schemaCache[docType] = s
	return s, nil
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile(name)
}

// ValidateRecordJSON checks a sanitized record against the schema of its
// document type.
func ValidateRecordJSON(docType constants.DocumentType, data []byte) error {
	schema, err := recordSchema(docType)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s record does not match schema: %w", docType, err)
	}
	return nil
}
