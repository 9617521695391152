package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aide-tools/aide/internal/export"
	"github.com/aide-tools/aide/internal/profile"
	"github.com/aide-tools/aide/internal/store"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles *store.Store
	Exporter *export.Exporter
}

// NewMCPServer creates an MCP server with the assistant management tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"aide",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("aide — manage AI assistant configuration profiles: list, inspect, save, and export them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_assistants",
			mcp.WithDescription("List the names of all stored assistant profiles."),
		),
		mcpListAssistants(deps),
	)

	s.AddTool(
		mcp.NewTool("get_assistant",
			mcp.WithDescription("Return the stored configuration document of an assistant as JSON."),
			mcp.WithString("name", mcp.Description("Assistant name"), mcp.Required()),
		),
		mcpGetAssistant(deps),
	)

	s.AddTool(
		mcp.NewTool("save_assistant",
			mcp.WithDescription("Save an assistant configuration document. The profile must carry name, instructions, and model."),
			mcp.WithString("profile", mcp.Description("Assistant configuration document as a JSON object string"), mcp.Required()),
		),
		mcpSaveAssistant(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_assistant",
			mcp.WithDescription("Delete a stored assistant profile."),
			mcp.WithString("name", mcp.Description("Assistant name"), mcp.Required()),
		),
		mcpDeleteAssistant(deps),
	)

	s.AddTool(
		mcp.NewTool("export_assistant",
			mcp.WithDescription("Export an assistant's configuration, functions, and launcher script into a standalone directory."),
			mcp.WithString("name", mcp.Description("Assistant name"), mcp.Required()),
			mcp.WithString("destination", mcp.Description("Export directory (default export/<name>)")),
		),
		mcpExportAssistant(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"aide://assistants",
			"Assistant Profiles",
			mcp.WithResourceDescription("All stored assistant profiles as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceAssistants(deps),
	)

	return s
}

func mcpListAssistants(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := deps.Profiles.Names()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list assistants: %v", err)), nil
		}
		if names == nil {
			names = []string{}
		}

		b, err := json.Marshal(names)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal names: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetAssistant(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		p, err := deps.Profiles.Get(name)
		if errors.Is(err, store.ErrNotFound) {
			return mcpError(fmt.Sprintf("assistant %q not found", name)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get assistant: %v", err)), nil
		}

		doc, err := profile.Encode(p)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode assistant: %v", err)), nil
		}
		return mcpText(string(doc)), nil
	}
}

func mcpSaveAssistant(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("profile")
		if err != nil {
			return mcpError("profile is required"), nil
		}

		var p profile.AssistantProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return mcpError(fmt.Sprintf("invalid profile JSON: %v", err)), nil
		}

		if err := deps.Profiles.Save(p); err != nil {
			var verr *profile.ValidationError
			if errors.As(err, &verr) {
				return mcpError(verr.Error()), nil
			}
			return mcpError(fmt.Sprintf("failed to save assistant: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Saved assistant %q", p.Name)), nil
	}
}

func mcpDeleteAssistant(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		if err := deps.Profiles.Delete(name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return mcpError(fmt.Sprintf("assistant %q not found", name)), nil
			}
			return mcpError(fmt.Sprintf("failed to delete assistant: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Deleted assistant %q", name)), nil
	}
}

func mcpExportAssistant(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		dest := req.GetString("destination", "")
		if dest == "" {
			dest = export.DefaultRoot(name)
		}

		if _, err := deps.Profiles.Get(name); errors.Is(err, store.ErrNotFound) {
			return mcpError(fmt.Sprintf("assistant %q not found", name)), nil
		} else if err != nil {
			return mcpError(fmt.Sprintf("failed to get assistant: %v", err)), nil
		}

		if err := deps.Exporter.Export(name, dest); err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Exported assistant %q to %s", name, dest)), nil
	}
}

func mcpResourceAssistants(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := deps.Profiles.Names()
		if err != nil {
			return nil, fmt.Errorf("failed to list assistants: %w", err)
		}

		profiles := make(map[string]profile.AssistantProfile, len(names))
		for _, name := range names {
			p, err := deps.Profiles.Get(name)
			if err != nil {
				continue
			}
			profiles[name] = p
		}

		b, err := json.Marshal(profiles)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
