// Package schemas checks documents returned by the text-generation
// collaborator against the embedded JSON Schemas.
package schemas

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	rootschemas "github.com/jonathan/site-generator/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// maxReported caps how many violations ContractError.Error lists.
const maxReported = 5

// Violation is one schema failure at a dotted document path.
type Violation struct {
	Path   string
	Reason string
}

// ContractError reports a document that does not satisfy its schema.
type ContractError struct {
	Schema     string
	Violations []Violation
}

func (e *ContractError) Error() string {
	parts := make([]string, 0, maxReported+1)
	for i, v := range e.Violations {
		if i == maxReported {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Violations)-maxReported))
			break
		}
		parts = append(parts, v.Path+": "+v.Reason)
	}
	return fmt.Sprintf("%s: %d violation(s): %s", e.Schema, len(e.Violations), strings.Join(parts, "; "))
}

// Paths returns the offending document paths.
func (e *ContractError) Paths() []string {
	paths := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		paths[i] = v.Path
	}
	return paths
}

// LoadError means a schema is missing or does not compile.
type LoadError struct {
	Schema string
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("schema %s unusable: %v", e.Schema, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

var (
	mu       sync.Mutex
	compiled = map[string]*gojsonschema.Schema{}
)

func schemaFor(name string) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	data, err := rootschemas.Load(name)
	if err != nil {
		return nil, &LoadError{Schema: name, Cause: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &LoadError{Schema: name, Cause: err}
	}
	compiled[name] = s
	return s, nil
}

// Validate checks doc against the embedded schema name. Violations come back
// as a *ContractError sorted by path.
func Validate(name string, doc []byte) error {
	schema, err := schemaFor(name)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("document is not JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	cerr := &ContractError{Schema: name}
	for _, desc := range result.Errors() {
		path := desc.Field()
		if path == "" {
			path = "(root)"
		}
		cerr.Violations = append(cerr.Violations, Violation{Path: path, Reason: desc.Description()})
	}
	sort.SliceStable(cerr.Violations, func(i, j int) bool {
		return cerr.Violations[i].Path < cerr.Violations[j].Path
	})
	return cerr
}
