// Package schemas embeds the JSON Schemas that define the structured
// documents exchanged with the text-generation collaborator.
package schemas

import (
	"embed"
	"fmt"
)

//go:embed *.schema.json
var files embed.FS

// BusinessRecord is the schema name of the extractor's output contract.
const BusinessRecord = "business_record.schema.json"

// Load returns the raw schema document by file name.
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("schema %s not found: %w", name, err)
	}
	return data, nil
}

// Names lists the embedded schema files.
func Names() []string {
	entries, _ := files.ReadDir(".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
