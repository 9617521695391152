package capability

import "log/slog"

// Selection is the ordered set of function specs currently selected on a
// profile. Membership is keyed by function name, never by spec identity, so
// toggling the same function twice cannot produce duplicates.
type Selection struct {
	specs []Spec
}

// Toggle adds the definition's full spec when selected is true and removes
// it by name when false. Adding an already-selected function is a no-op.
func (s *Selection) Toggle(def Definition, selected bool) {
	if selected {
		if s.Selected(def.Name) {
			return
		}
		s.specs = append(s.specs, def.Spec)
		return
	}

	kept := s.specs[:0]
	for _, spec := range s.specs {
		if spec.Function.Name != def.Name {
			kept = append(kept, spec)
		}
	}
	s.specs = kept
}

// Selected reports whether a function with the given name is selected.
func (s *Selection) Selected(name string) bool {
	for _, spec := range s.specs {
		if spec.Function.Name == name {
			return true
		}
	}
	return false
}

// Specs returns a copy of the selected specs in selection order.
func (s *Selection) Specs() []Spec {
	out := make([]Spec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Names returns the selected function names in selection order.
func (s *Selection) Names() []string {
	names := make([]string, len(s.specs))
	for i, spec := range s.specs {
		names[i] = spec.Function.Name
	}
	return names
}

// Len returns the number of selected functions.
func (s *Selection) Len() int {
	return len(s.specs)
}

// Reset clears the selection.
func (s *Selection) Reset() {
	s.specs = nil
}

// Reconcile rebuilds a Selection from specs stored on a saved profile.
// Each stored spec is matched by name against the registry; matches are
// selected using the registry's current spec. A stored name the registry no
// longer knows is dropped without error, but a diagnostic is logged so the
// data loss is visible.
func Reconcile(stored []Spec, reg *Registry) *Selection {
	sel := &Selection{}
	for _, spec := range stored {
		def, ok := reg.Find(spec.Function.Name)
		if !ok {
			slog.Warn("dropping unknown function from stored selection",
				"function", spec.Function.Name)
			continue
		}
		sel.Toggle(def, true)
	}
	return sel
}
