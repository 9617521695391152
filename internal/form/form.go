// Package form holds the in-progress assistant profile a configuration UI
// edits, with working copies of the capability selection and knowledge-file
// set that are independent of any widget state.
package form

import (
	"fmt"

	"github.com/aide-tools/aide/internal/capability"
	"github.com/aide-tools/aide/internal/dictation"
	"github.com/aide-tools/aide/internal/knowledge"
	"github.com/aide-tools/aide/internal/profile"
)

// Defaults seed a fresh form and fill gaps when loading older documents.
type Defaults struct {
	OutputFolder  string
	ActiveClient  profile.ClientType
	AssistantType profile.AssistantType
}

// Form is the mutable state behind a configuration dialog. All mutation
// happens on the caller's (UI) goroutine; background workers only hand
// results back.
type Form struct {
	Profile   profile.AssistantProfile
	Selection *capability.Selection
	Files     *knowledge.FileSet
	Dictation *dictation.Buffer

	defaults Defaults
}

// New creates an empty form for a new assistant.
func New(defaults Defaults) *Form {
	if defaults.AssistantType == "" {
		defaults.AssistantType = profile.TypeAssistant
	}
	f := &Form{defaults: defaults}
	f.Reset()
	return f
}

// Reset returns every field to its initial empty state, including the
// transient selection, file set, and dictation buffer.
func (f *Form) Reset() {
	f.Profile = profile.AssistantProfile{
		OutputFolderPath: f.defaults.OutputFolder,
		ClientType:       f.defaults.ActiveClient,
		AssistantType:    f.defaults.AssistantType,
	}
	f.Selection = &capability.Selection{}
	f.Files = knowledge.NewFileSet()
	if f.Dictation == nil {
		f.Dictation = &dictation.Buffer{}
	} else {
		f.Dictation.Reset()
	}
}

// Load replaces the form state with a stored profile. The capability
// selection is reconciled against the registry's current definitions, the
// knowledge files become an independent working copy, and transient state
// from the previously shown profile is discarded.
func (f *Form) Load(p profile.AssistantProfile, reg *capability.Registry) {
	f.Reset()
	f.Profile = p
	f.Selection = capability.Reconcile(p.SelectedFunctions, reg)
	f.Files = knowledge.LoadFileSet(p.KnowledgeFiles)
}

// fieldSpec maps a settable field key to its typed apply function,
// mirroring how config keys are dispatched.
type fieldSpec struct {
	key   string
	apply func(f *Form, v any) error
}

var fieldSpecs = []fieldSpec{
	{"name", func(f *Form, v any) error { return setString(&f.Profile.Name, v) }},
	{"instructions", func(f *Form, v any) error { return setString(&f.Profile.Instructions, v) }},
	{"model", func(f *Form, v any) error { return setString(&f.Profile.Model, v) }},
	{"assistant_id", func(f *Form, v any) error { return setString(&f.Profile.AssistantID, v) }},
	{"output_folder_path", func(f *Form, v any) error { return setString(&f.Profile.OutputFolderPath, v) }},
	{"knowledge_retrieval", func(f *Form, v any) error { return setBool(&f.Profile.KnowledgeRetrieval, v) }},
	{"code_interpreter", func(f *Form, v any) error {
		if f.Profile.AssistantType != profile.TypeAssistant {
			return fmt.Errorf("code_interpreter only applies to %q profiles", profile.TypeAssistant)
		}
		return setBool(&f.Profile.CodeInterpreter, v)
	}},
	{"ai_client_type", func(f *Form, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		ct, err := profile.ParseClientType(s)
		if err != nil {
			return err
		}
		f.Profile.ClientType = ct
		return nil
	}},
}

// SetField mutates a single profile attribute by key, validating the
// value's type. Unknown keys are rejected.
func (f *Form) SetField(key string, value any) error {
	for _, spec := range fieldSpecs {
		if spec.key != key {
			continue
		}
		if err := spec.apply(f, value); err != nil {
			return fmt.Errorf("setting field %q: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("unknown field %q", key)
}

// Fields returns the settable field keys.
func Fields() []string {
	keys := make([]string, len(fieldSpecs))
	for i, spec := range fieldSpecs {
		keys[i] = spec.key
	}
	return keys
}

// Validate returns the required fields still missing; an empty result means
// the form can be persisted.
func (f *Form) Validate() []string {
	return f.snapshot().MissingFields()
}

// Document assembles the working copies back into the profile and encodes
// the persistable document. It fails with a *profile.ValidationError while
// required fields are missing.
func (f *Form) Document() ([]byte, error) {
	return profile.Encode(f.snapshot())
}

// Snapshot returns the profile as currently edited, with the working
// selection and file set folded in.
func (f *Form) Snapshot() profile.AssistantProfile {
	return f.snapshot()
}

func (f *Form) snapshot() profile.AssistantProfile {
	p := f.Profile
	p.SelectedFunctions = f.Selection.Specs()
	p.KnowledgeFiles = f.Files.Map()
	return p
}

func setString(dst *string, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	*dst = s
	return nil
}

func setBool(dst *bool, v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", v)
	}
	*dst = b
	return nil
}
