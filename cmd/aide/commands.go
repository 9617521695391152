package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aide-tools/aide/internal/config"
	"github.com/aide-tools/aide/internal/knowledge"
	"github.com/aide-tools/aide/internal/profile"
	"github.com/aide-tools/aide/internal/storage"
)

// --- assistant ---

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Manage assistant configuration profiles",
}

var assistantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored assistants",
	RunE: func(cmd *cobra.Command, args []string) error {
		clientType, _ := cmd.Flags().GetString("client-type")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/assistants"
		if clientType != "" {
			path += "?client_type=" + url.QueryEscape(clientType)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var names []string
		if err := decodeJSON(resp, &names); err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No assistants found.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var assistantShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an assistant's configuration as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/assistants/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var p any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var assistantSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Save an assistant from a configuration document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading profile file: %w", err)
		}

		var p profile.AssistantProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("invalid profile JSON: %w", err)
		}
		if p.Name == "" {
			return fmt.Errorf("profile is missing a name")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/assistants/"+url.PathEscape(p.Name), p)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Saved assistant %q", p.Name)
		return nil
	},
}

var assistantDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored assistant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/assistants/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted assistant %q", args[0])
		return nil
	},
}

func init() {
	assistantListCmd.Flags().String("client-type", "", "filter by AI client type (OPEN_AI or AZURE_OPEN_AI)")
	assistantCmd.AddCommand(assistantListCmd)
	assistantCmd.AddCommand(assistantShowCmd)
	assistantCmd.AddCommand(assistantSaveCmd)
	assistantCmd.AddCommand(assistantDeleteCmd)
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export an assistant into a standalone directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("dest")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{}
		if dest != "" {
			body["destination"] = dest
		}
		resp, err := client.post(cmd.Context(), "/assistants/"+url.PathEscape(args[0])+"/export", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Exported assistant %q to %s", args[0], result["destination"])
		return nil
	},
}

func init() {
	exportCmd.Flags().String("dest", "", "export directory (default export/<name>)")
}

// --- inspect ---

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Inspect knowledge files before attaching them to an assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		// The daemon runs on this machine, so it can read the same paths.
		q := url.Values{}
		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", path, err)
			}
			q.Add("path", abs)
		}

		resp, err := client.get(cmd.Context(), "/knowledge/inspect?"+q.Encode())
		if err != nil {
			return err
		}

		var infos []knowledge.Info
		if err := decodeJSON(resp, &infos); err != nil {
			return err
		}

		for _, info := range infos {
			fmt.Printf("%s (%d bytes)\n", info.Path, info.SizeBytes)
			if info.Pages > 0 {
				fmt.Printf("  pages: %d\n", info.Pages)
			}
			if info.Title != "" {
				fmt.Printf("  title: %s\n", info.Title)
			}
			if info.Preview != "" {
				fmt.Printf("  preview: %s\n", info.Preview)
			}
		}
		return nil
	},
}

// --- review ---

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review assistant instructions with the configured AI reviewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		text, _ := cmd.Flags().GetString("text")

		if file == "" && text == "" {
			return fmt.Errorf("one of --text or --file is required")
		}

		instructions := text
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading instructions file: %w", err)
			}
			instructions = string(data)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/reviews", map[string]string{"instructions": instructions})
		if err != nil {
			return err
		}

		var submitted map[string]string
		if err := decodeJSON(resp, &submitted); err != nil {
			return err
		}

		id := submitted["id"]
		printStep("Review %s submitted, waiting...", id)

		// Poll until the review leaves the pending state.
		for {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(time.Second):
			}

			resp, err := client.get(cmd.Context(), "/reviews/"+id)
			if err != nil {
				return err
			}

			var rec storage.ReviewRecord
			if err := decodeJSON(resp, &rec); err != nil {
				return err
			}

			switch rec.Status {
			case storage.ReviewCompleted:
				fmt.Println(rec.Result)
				return nil
			case storage.ReviewFailed:
				return fmt.Errorf("review failed: %s", rec.Error)
			}
		}
	},
}

func init() {
	reviewCmd.Flags().String("text", "", "instructions text to review")
	reviewCmd.Flags().String("file", "", "file containing instructions to review")
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured AI backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		clientType, _ := cmd.Flags().GetString("client-type")
		if clientType == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			clientType = cfg.AI.ActiveClient
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/models?client_type="+url.QueryEscape(clientType))
		if err != nil {
			return err
		}

		var models []string
		if err := decodeJSON(resp, &models); err != nil {
			return err
		}

		if len(models) == 0 {
			fmt.Println("No models found.")
			return nil
		}
		for _, m := range models {
			fmt.Println(m)
		}
		return nil
	},
}

func init() {
	modelsCmd.Flags().String("client-type", "", "AI client type (default: configured active client)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
