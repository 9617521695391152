// Package capability loads function definitions available to assistants and
// tracks which of them are selected on a profile.
package capability

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Spec is the full specification of a callable function in the format stored
// on assistant profiles and shipped with exports.
type Spec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes a single function's invocation schema.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Module      string          `json:"module,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Definition is a known function, grouped under a category such as "system"
// or "user". Definitions are read-only once loaded.
type Definition struct {
	Name     string
	Category string
	Spec     Spec
}

// Registry holds all known function definitions grouped by category.
type Registry struct {
	byCategory map[string][]Definition
	byName     map[string]Definition
}

// NewRegistry builds a Registry from specs grouped by category. A spec with
// an empty function name is skipped.
func NewRegistry(specsByCategory map[string][]Spec) *Registry {
	r := &Registry{
		byCategory: make(map[string][]Definition),
		byName:     make(map[string]Definition),
	}
	for category, specs := range specsByCategory {
		for _, spec := range specs {
			if spec.Function.Name == "" {
				continue
			}
			def := Definition{
				Name:     spec.Function.Name,
				Category: category,
				Spec:     spec,
			}
			r.byCategory[category] = append(r.byCategory[category], def)
			r.byName[def.Name] = def
		}
	}
	return r
}

// LoadRegistry reads a function-specs file: a JSON object mapping category
// names to lists of function specifications.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading function specs: %w", err)
	}

	var specsByCategory map[string][]Spec
	if err := json.Unmarshal(data, &specsByCategory); err != nil {
		return nil, fmt.Errorf("parsing function specs %s: %w", path, err)
	}
	return NewRegistry(specsByCategory), nil
}

// Categories returns the category names in sorted order.
func (r *Registry) Categories() []string {
	categories := make([]string, 0, len(r.byCategory))
	for c := range r.byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Definitions returns the definitions in the given category.
func (r *Registry) Definitions(category string) []Definition {
	return r.byCategory[category]
}

// Find looks up a definition by function name across all categories.
func (r *Registry) Find(name string) (Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Len returns the total number of known definitions.
func (r *Registry) Len() int {
	return len(r.byName)
}
