// Package profile defines the assistant profile value type and its persisted
// JSON document form.
package profile

import (
	"fmt"
	"strings"

	"github.com/aide-tools/aide/internal/capability"
)

// ClientType identifies which AI backend an assistant is configured against.
type ClientType string

const (
	ClientOpenAI      ClientType = "OPEN_AI"
	ClientAzureOpenAI ClientType = "AZURE_OPEN_AI"
)

// ClientTypes returns the supported client types in a fixed order.
func ClientTypes() []ClientType {
	return []ClientType{ClientOpenAI, ClientAzureOpenAI}
}

// ParseClientType validates a client type name.
func ParseClientType(s string) (ClientType, error) {
	for _, ct := range ClientTypes() {
		if string(ct) == s {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown AI client type %q", s)
}

// AssistantType is the profile subtype. Code interpreter support is only
// meaningful for TypeAssistant.
type AssistantType string

const (
	TypeAssistant AssistantType = "assistant"
	TypeChat      AssistantType = "chat"
)

// AssistantProfile is the in-progress, mutable assistant configuration.
// Field tags match the persisted document format exactly.
type AssistantProfile struct {
	Name               string             `json:"name"`
	Instructions       string             `json:"instructions"`
	Model              string             `json:"model"`
	AssistantID        string             `json:"assistant_id"`
	KnowledgeFiles     map[string]*string `json:"knowledge_files"`
	SelectedFunctions  []capability.Spec  `json:"selected_functions"`
	KnowledgeRetrieval bool               `json:"knowledge_retrieval"`
	CodeInterpreter    bool               `json:"code_interpreter"`
	OutputFolderPath   string             `json:"output_folder_path"`
	ClientType         ClientType         `json:"ai_client_type"`
	AssistantType      AssistantType      `json:"assistant_type"`
}

// MissingFields returns the names of required fields that are empty.
// Name, instructions, and model must all be set before a profile can be
// persisted.
func (p AssistantProfile) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Instructions) == "" {
		missing = append(missing, "instructions")
	}
	if strings.TrimSpace(p.Model) == "" {
		missing = append(missing, "model")
	}
	return missing
}

// ValidationError reports required profile fields that are missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}
