package form

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aide-tools/aide/internal/capability"
	"github.com/aide-tools/aide/internal/profile"
)

func testDefaults() Defaults {
	return Defaults{
		OutputFolder: "/tmp/output",
		ActiveClient: profile.ClientOpenAI,
	}
}

func testRegistry() *capability.Registry {
	return capability.NewRegistry(map[string][]capability.Spec{
		"Files": {
			{Type: "function", Function: capability.FunctionSpec{Name: "read_file", Module: "files"}},
			{Type: "function", Function: capability.FunctionSpec{Name: "write_file", Module: "files"}},
		},
	})
}

func TestNewAppliesDefaults(t *testing.T) {
	f := New(testDefaults())

	if f.Profile.OutputFolderPath != "/tmp/output" {
		t.Errorf("OutputFolderPath = %q, want /tmp/output", f.Profile.OutputFolderPath)
	}
	if f.Profile.ClientType != profile.ClientOpenAI {
		t.Errorf("ClientType = %q, want %q", f.Profile.ClientType, profile.ClientOpenAI)
	}
	if f.Profile.AssistantType != profile.TypeAssistant {
		t.Errorf("AssistantType = %q, want %q", f.Profile.AssistantType, profile.TypeAssistant)
	}
}

func TestSetField(t *testing.T) {
	f := New(testDefaults())

	if err := f.SetField("name", "helper"); err != nil {
		t.Fatalf("SetField(name): %v", err)
	}
	if err := f.SetField("instructions", "Be helpful"); err != nil {
		t.Fatalf("SetField(instructions): %v", err)
	}
	if err := f.SetField("knowledge_retrieval", true); err != nil {
		t.Fatalf("SetField(knowledge_retrieval): %v", err)
	}
	if err := f.SetField("ai_client_type", "AZURE_OPEN_AI"); err != nil {
		t.Fatalf("SetField(ai_client_type): %v", err)
	}

	if f.Profile.Name != "helper" {
		t.Errorf("Name = %q", f.Profile.Name)
	}
	if !f.Profile.KnowledgeRetrieval {
		t.Error("KnowledgeRetrieval = false, want true")
	}
	if f.Profile.ClientType != profile.ClientAzureOpenAI {
		t.Errorf("ClientType = %q", f.Profile.ClientType)
	}
}

func TestSetField_TypeMismatch(t *testing.T) {
	f := New(testDefaults())

	if err := f.SetField("name", 42); err == nil {
		t.Error("expected error for int value on string field")
	}
	if err := f.SetField("knowledge_retrieval", "yes"); err == nil {
		t.Error("expected error for string value on bool field")
	}
}

func TestSetField_Unknown(t *testing.T) {
	f := New(testDefaults())

	if err := f.SetField("nope", "x"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestSetField_BadClientType(t *testing.T) {
	f := New(testDefaults())

	if err := f.SetField("ai_client_type", "WATSON"); err == nil {
		t.Error("expected error for unknown client type")
	}
}

func TestSetField_CodeInterpreterOnChatProfile(t *testing.T) {
	f := New(Defaults{AssistantType: profile.TypeChat})

	if err := f.SetField("code_interpreter", true); err == nil {
		t.Error("expected error enabling code interpreter on a chat profile")
	}
}

func TestValidate(t *testing.T) {
	f := New(testDefaults())

	missing := f.Validate()
	if len(missing) != 3 {
		t.Fatalf("missing = %v, want name, instructions, model", missing)
	}

	f.SetField("name", "helper")
	f.SetField("instructions", "x")
	f.SetField("model", "gpt-4o")

	if missing := f.Validate(); len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestDocumentFoldsInWorkingCopies(t *testing.T) {
	f := New(testDefaults())
	reg := testRegistry()

	f.SetField("name", "helper")
	f.SetField("instructions", "x")
	f.SetField("model", "gpt-4o")

	def, _ := reg.Find("read_file")
	f.Selection.Toggle(def, true)
	if err := f.Files.Add("/docs/a.pdf"); err != nil {
		t.Fatal(err)
	}

	data, err := f.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}

	var funcs []capability.Spec
	if err := json.Unmarshal(doc["selected_functions"], &funcs); err != nil {
		t.Fatalf("selected_functions: %v", err)
	}
	if len(funcs) != 1 || funcs[0].Function.Name != "read_file" {
		t.Errorf("selected_functions = %+v", funcs)
	}

	var files map[string]*string
	if err := json.Unmarshal(doc["knowledge_files"], &files); err != nil {
		t.Fatalf("knowledge_files: %v", err)
	}
	if _, ok := files["/docs/a.pdf"]; !ok {
		t.Errorf("knowledge_files = %v, want /docs/a.pdf entry", files)
	}
}

func TestDocument_InvalidProfile(t *testing.T) {
	f := New(testDefaults())

	_, err := f.Document()
	if err == nil {
		t.Fatal("expected validation error for empty form")
	}
	var verr *profile.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *profile.ValidationError", err)
	}
}

func TestLoadResetsTransientState(t *testing.T) {
	f := New(testDefaults())
	reg := testRegistry()

	// Dirty the form first.
	def, _ := reg.Find("write_file")
	f.Selection.Toggle(def, true)
	f.Files.Add("/docs/old.pdf")
	f.Dictation.Partial("half-typed hyp")

	stored := profile.AssistantProfile{
		Name:         "helper",
		Instructions: "x",
		Model:        "gpt-4o",
		SelectedFunctions: []capability.Spec{
			{Type: "function", Function: capability.FunctionSpec{Name: "read_file", Module: "files"}},
			{Type: "function", Function: capability.FunctionSpec{Name: "gone_function", Module: "files"}},
		},
		KnowledgeFiles: map[string]*string{"/docs/new.pdf": nil},
	}

	f.Load(stored, reg)

	names := f.Selection.Names()
	if len(names) != 1 || names[0] != "read_file" {
		t.Errorf("selection after load = %v, want unknown function dropped", names)
	}
	if f.Files.Contains("/docs/old.pdf") || !f.Files.Contains("/docs/new.pdf") {
		t.Errorf("files after load = %v", f.Files.Paths())
	}
	if f.Dictation.Hypothesis() != "" || f.Dictation.String() != "" {
		t.Error("dictation buffer not reset on load")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	f := New(testDefaults())

	f.SetField("name", "helper")
	f.SetField("output_folder_path", "/elsewhere")
	f.Reset()

	if f.Profile.Name != "" {
		t.Errorf("Name = %q after reset", f.Profile.Name)
	}
	if f.Profile.OutputFolderPath != "/tmp/output" {
		t.Errorf("OutputFolderPath = %q after reset", f.Profile.OutputFolderPath)
	}
}

func TestFieldsListsAllKeys(t *testing.T) {
	keys := Fields()
	if len(keys) != len(fieldSpecs) {
		t.Fatalf("Fields() returned %d keys, want %d", len(keys), len(fieldSpecs))
	}
}
