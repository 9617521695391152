package profile

import (
	"encoding/json"
	"fmt"
)

// DecodeOptions supplies fallbacks for fields older documents may omit.
type DecodeOptions struct {
	// DefaultOutputFolder is used when the document has no output folder path.
	DefaultOutputFolder string
	// ActiveClient is used when the document has no AI client type.
	ActiveClient ClientType
}

// Encode serializes the profile to its persisted JSON document. It fails
// with a *ValidationError when a required field is empty; nothing is written
// for an invalid profile.
func Encode(p AssistantProfile) ([]byte, error) {
	if missing := p.MissingFields(); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	if p.KnowledgeFiles == nil {
		p.KnowledgeFiles = map[string]*string{}
	}
	if p.AssistantType == "" {
		p.AssistantType = TypeAssistant
	}

	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshalling profile %q: %w", p.Name, err)
	}
	return data, nil
}

// Decode parses a persisted profile document. It tolerates a missing output
// folder path and an unset client type by falling back to opts; knowledge
// file IDs that were unresolved at save time stay nil.
func Decode(data []byte, opts DecodeOptions) (AssistantProfile, error) {
	var p AssistantProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return AssistantProfile{}, fmt.Errorf("parsing profile document: %w", err)
	}

	if p.OutputFolderPath == "" {
		p.OutputFolderPath = opts.DefaultOutputFolder
	}
	if p.ClientType == "" {
		p.ClientType = opts.ActiveClient
	}
	if p.AssistantType == "" {
		p.AssistantType = TypeAssistant
	}
	if p.KnowledgeFiles == nil {
		p.KnowledgeFiles = map[string]*string{}
	}
	return p, nil
}
