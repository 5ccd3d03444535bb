package posts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchemaInvalid is returned when a front matter schema does not compile.
var ErrSchemaInvalid = errors.New("posts: front matter schema invalid")

// SchemaValidator checks raw front matter against a JSON Schema document.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles a Draft 2020-12 schema.
func NewSchemaValidator(document []byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("frontmatter.json", bytes.NewReader(document)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	schema, err := compiler.Compile("frontmatter.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// LoadSchemaValidator reads and compiles the schema at name inside fsys.
func LoadSchemaValidator(fsys fs.FS, name string) (*SchemaValidator, error) {
	document, err := fs.ReadFile(fsys, strings.TrimPrefix(name, "/"))
	if err != nil {
		return nil, fmt.Errorf("posts: read schema %s: %w", name, err)
	}
	return NewSchemaValidator(document)
}

// Validate checks raw front matter of the file at path.
func (v *SchemaValidator) Validate(path string, raw map[string]any) error {
	if v == nil || v.schema == nil {
		return nil
	}
	encoded, err := json.Marshal(cloneRaw(raw))
	if err != nil {
		return &ValidationError{Path: path, Issues: []Issue{{Field: "front_matter", Message: err.Error()}}}
	}
	var document any
	if err := json.Unmarshal(encoded, &document); err != nil {
		return &ValidationError{Path: path, Issues: []Issue{{Field: "front_matter", Message: err.Error()}}}
	}

	err = v.schema.Validate(document)
	if err == nil {
		return nil
	}
	var schemaErr *jsonschema.ValidationError
	if !errors.As(err, &schemaErr) {
		return &ValidationError{Path: path, Issues: []Issue{{Field: "front_matter", Message: err.Error()}}}
	}
	out := &ValidationError{Path: path}
	collectSchemaIssues(schemaErr, out)
	return out
}

func collectSchemaIssues(node *jsonschema.ValidationError, out *ValidationError) {
	if node == nil {
		return
	}
	if len(node.Causes) == 0 {
		field := strings.TrimPrefix(strings.TrimSpace(node.InstanceLocation), "/")
		if field == "" {
			field = "front_matter"
		}
		out.Issues = append(out.Issues, Issue{Field: field, Message: strings.TrimSpace(node.Message)})
		return
	}
	for _, cause := range node.Causes {
		collectSchemaIssues(cause, out)
	}
}
