package profile

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aide-tools/aide/internal/capability"
)

func validProfile() AssistantProfile {
	return AssistantProfile{
		Name:         "helper",
		Instructions: "Assist with tests",
		Model:        "gpt-4o",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fileID := "file-42"
	p := validProfile()
	p.AssistantID = "asst_123"
	p.KnowledgeFiles = map[string]*string{
		"/docs/a.pdf": &fileID,
		"/docs/b.pdf": nil,
	}
	p.SelectedFunctions = []capability.Spec{
		{Type: "function", Function: capability.FunctionSpec{Name: "read_file", Module: "files"}},
	}
	p.KnowledgeRetrieval = true
	p.OutputFolderPath = "/tmp/out"
	p.ClientType = ClientAzureOpenAI
	p.AssistantType = TypeChat

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Name != p.Name || got.AssistantID != p.AssistantID {
		t.Errorf("got %+v", got)
	}
	if got.KnowledgeFiles["/docs/a.pdf"] == nil || *got.KnowledgeFiles["/docs/a.pdf"] != "file-42" {
		t.Error("resolved file ID lost in round trip")
	}
	if got.KnowledgeFiles["/docs/b.pdf"] != nil {
		t.Error("unresolved file ID should stay nil")
	}
	if len(got.SelectedFunctions) != 1 || got.SelectedFunctions[0].Function.Name != "read_file" {
		t.Errorf("SelectedFunctions = %+v", got.SelectedFunctions)
	}
	if got.ClientType != ClientAzureOpenAI || got.AssistantType != TypeChat {
		t.Errorf("types = %q/%q", got.ClientType, got.AssistantType)
	}
}

func TestEncodeRejectsMissingFields(t *testing.T) {
	p := AssistantProfile{Name: "   ", Model: "gpt-4o"}

	_, err := Encode(p)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %T, want *ValidationError", err)
	}
	if len(verr.Missing) != 2 || verr.Missing[0] != "name" || verr.Missing[1] != "instructions" {
		t.Errorf("Missing = %v, want [name instructions]", verr.Missing)
	}
	if !strings.Contains(verr.Error(), "name, instructions") {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestEncodeDefaults(t *testing.T) {
	data, err := Encode(validProfile())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}

	if string(doc["knowledge_files"]) != "{}" {
		t.Errorf("knowledge_files = %s, want {}", doc["knowledge_files"])
	}
	if string(doc["assistant_type"]) != `"assistant"` {
		t.Errorf("assistant_type = %s, want \"assistant\"", doc["assistant_type"])
	}
}

func TestEncodeUsesFourSpaceIndent(t *testing.T) {
	data, err := Encode(validProfile())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "\n    \"name\"") {
		t.Errorf("document not indented with four spaces:\n%s", data)
	}
}

func TestDecodeAppliesFallbacks(t *testing.T) {
	doc := `{"name":"helper","instructions":"x","model":"gpt-4o"}`

	p, err := Decode([]byte(doc), DecodeOptions{
		DefaultOutputFolder: "/srv/output",
		ActiveClient:        ClientOpenAI,
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if p.OutputFolderPath != "/srv/output" {
		t.Errorf("OutputFolderPath = %q", p.OutputFolderPath)
	}
	if p.ClientType != ClientOpenAI {
		t.Errorf("ClientType = %q", p.ClientType)
	}
	if p.AssistantType != TypeAssistant {
		t.Errorf("AssistantType = %q", p.AssistantType)
	}
	if p.KnowledgeFiles == nil {
		t.Error("KnowledgeFiles = nil, want empty map")
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte("{nope"), DecodeOptions{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseClientType(t *testing.T) {
	ct, err := ParseClientType("OPEN_AI")
	if err != nil || ct != ClientOpenAI {
		t.Errorf("ParseClientType(OPEN_AI) = %q, %v", ct, err)
	}
	ct, err = ParseClientType("AZURE_OPEN_AI")
	if err != nil || ct != ClientAzureOpenAI {
		t.Errorf("ParseClientType(AZURE_OPEN_AI) = %q, %v", ct, err)
	}
	if _, err := ParseClientType("GEMINI"); err == nil {
		t.Error("expected error for unknown client type")
	}
}

func TestMissingFieldsWhitespaceOnly(t *testing.T) {
	p := AssistantProfile{Name: "\t\n", Instructions: " ", Model: ""}
	missing := p.MissingFields()
	if len(missing) != 3 {
		t.Errorf("missing = %v, want all three", missing)
	}
}
