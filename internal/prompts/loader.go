// Package prompts holds the LLM prompt templates. Each embedded YAML file maps
// a prompt key to a text/template body.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var files embed.FS

// set is one parsed prompt file.
type set struct {
	raw       map[string]string
	templates map[string]*template.Template
}

var (
	mu     sync.Mutex
	loaded = map[string]*set{}
)

func load(filename string) (*set, error) {
	mu.Lock()
	defer mu.Unlock()
	if s, ok := loaded[filename]; ok {
		return s, nil
	}

	data, err := files.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	s := &set{raw: raw, templates: make(map[string]*template.Template, len(raw))}
	for key, body := range raw {
		tmpl, err := template.New(key).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s/%s: %w", filename, key, err)
		}
		s.templates[key] = tmpl
	}
	loaded[filename] = s
	return s, nil
}

// Get returns the unrendered body of a prompt, e.g. ("extraction.yaml", "gap-fill").
func Get(filename, key string) (string, error) {
	s, err := load(filename)
	if err != nil {
		return "", err
	}
	body, ok := s.raw[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return body, nil
}

// Render executes a prompt against data. Missing map keys are errors.
func Render(filename, key string, data any) (string, error) {
	s, err := load(filename)
	if err != nil {
		return "", err
	}
	tmpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s/%s: %w", filename, key, err)
	}
	return buf.String(), nil
}

// List returns the sorted prompt keys in a file.
func List(filename string) ([]string, error) {
	s, err := load(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.raw))
	for key := range s.raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
