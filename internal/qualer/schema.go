package qualer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

// Response schemas. Only the fields the sync reads are constrained; Qualer
// adds properties freely so additionalProperties stays open.
func serviceRecordsSchema() map[string]any {
	return arrayOf(map[string]any{
		"AssetId":           intProp(),
		"AssetTag":          nullable("string"),
		"SerialNumber":      nullable("string"),
		"CustomOrderNumber": nullable("string"),
		"CertificateNumber": nullable("string"),
		"ServiceDate":       nullable("string"),
		"NextServiceDate":   nullable("string"),
	}, "AssetId")
}

func workItemsSchema() map[string]any {
	return arrayOf(map[string]any{
		"WorkItemNumber": nullable("string"),
		"ServiceOrderId": intProp(),
		"AssetId":        nullable("integer"),
	}, "ServiceOrderId")
}

func documentsSchema() map[string]any {
	return arrayOf(map[string]any{
		"DocumentName": map[string]any{"type": "string"},
		"Guid":         map[string]any{"type": "string", "minLength": 1},
	}, "DocumentName", "Guid")
}

func assetsSchema() map[string]any {
	return arrayOf(map[string]any{
		"AssetId":      intProp(),
		"AssetName":    nullable("string"),
		"AssetTag":     nullable("string"),
		"SerialNumber": nullable("string"),
	}, "AssetId")
}

func arrayOf(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

func intProp() map[string]any { return map[string]any{"type": "integer"} }

func nullable(t string) map[string]any { return map[string]any{"type": []string{t, "null"}} }

type schemaSet struct {
	serviceRecords *jsonschema.Schema
	workItems      *jsonschema.Schema
	documents      *jsonschema.Schema
	assets         *jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	var (
		s   schemaSet
		err error
	)
	if s.serviceRecords, err = compile("service_records.json", serviceRecordsSchema()); err != nil {
		return nil, err
	}
	if s.workItems, err = compile("work_items.json", workItemsSchema()); err != nil {
		return nil, err
	}
	if s.documents, err = compile("documents.json", documentsSchema()); err != nil {
		return nil, err
	}
	if s.assets, err = compile("assets.json", assetsSchema()); err != nil {
		return nil, err
	}
	return &s, nil
}

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	return compiler.Compile(name)
}

// decode validates raw against schema and then unmarshals it into out.
func decode(schema *jsonschema.Schema, raw []byte, out any) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return common.NewAppError(common.CodeDecode, "response is not json", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError(common.CodeDecode, "response does not match schema", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.NewAppError(common.CodeDecode, "unmarshal response", err)
	}
	return nil
}
