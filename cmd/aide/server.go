package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/aide-tools/aide/internal/aiclient"
	"github.com/aide-tools/aide/internal/api"
	"github.com/aide-tools/aide/internal/capability"
	"github.com/aide-tools/aide/internal/config"
	"github.com/aide-tools/aide/internal/dictation"
	"github.com/aide-tools/aide/internal/export"
	"github.com/aide-tools/aide/internal/profile"
	"github.com/aide-tools/aide/internal/review"
	"github.com/aide-tools/aide/internal/storage"
	"github.com/aide-tools/aide/internal/store"
)

const functionSpecsFile = "function_specs.json"

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the aide server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running aide server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aide system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "aide.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "aide version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	activeClient, err := cfg.ActiveClientType()
	if err != nil {
		return fmt.Errorf("invalid ai.active_client: %w", err)
	}

	// Ensure the API token exists in the secrets store.
	apiToken, err := config.GetAPIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if the server is already running via the health
	// endpoint.
	pidPath := pidFilePath(cfg.Paths.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("aide is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("aide is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the review/export history storage.
	history, err := storage.Open(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := history.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Open the assistant profile store.
	profiles, err := store.Open(cfg.Paths.ConfigDir, profile.DecodeOptions{
		DefaultOutputFolder: cfg.Paths.OutputDir,
		ActiveClient:        activeClient,
	})
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}

	// Load the capability registry. A missing specs file leaves the registry
	// empty rather than failing startup.
	registry, err := capability.LoadRegistry(filepath.Join(cfg.Paths.ConfigDir, functionSpecsFile))
	if err != nil {
		slog.Warn("function specs not loaded, capability registry is empty", "error", err)
		registry = capability.NewRegistry(nil)
	}

	exporter := &export.Exporter{
		ConfigDir:    cfg.Paths.ConfigDir,
		FunctionsDir: cfg.Paths.FunctionsDir,
		TemplatesDir: cfg.Paths.TemplatesDir,
	}

	models := aiclient.NewProvider(aiclient.Settings{
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		AzureEndpoint: cfg.Azure.Endpoint,
		AzureAPIKey:   cfg.Azure.APIKey,
	})

	reviewer := review.NewOpenAIReviewer(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.Review.Model)
	runner := review.NewRunner(reviewer, history)

	// Dictation buffer shared by UI front-ends over the API. The recognizer
	// is nil: speech engines run client-side and push partial/final events
	// through /dictation/events.
	dict := dictation.NewBridge(nil)
	defer dict.Close()

	// Drain review notifications into the log so the runner never blocks on
	// its channel.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-runner.Notifications():
				switch n.Phase {
				case review.PhaseStarted:
					slog.Info("instructions review started", "request_id", n.RequestID)
				case review.PhaseFinished:
					if n.Err != nil {
						slog.Warn("instructions review finished with error", "request_id", n.RequestID, "error", n.Err)
					} else {
						slog.Info("instructions review finished", "request_id", n.RequestID)
					}
				}
			}
		}
	}()

	appHandler := api.NewAppHandler(api.AppDeps{
		Profiles:  profiles,
		Registry:  registry,
		History:   history,
		Exporter:  exporter,
		Models:    models,
		Dictation: dict,
		Runner:    runner,
		Token:     apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// Build and start the MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Profiles: profiles,
		Exporter: exporter,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start the HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "aide listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Paths.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("aide is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop aide (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to aide (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Active AI client", "%s", cfg.AI.ActiveClient)
	printStatus("Review model", "%s", cfg.Review.Model)

	// Show assistant count if the server is running.
	if resp != nil && resp.StatusCode == 200 {
		if apiCli, err := newAPIClient(); err == nil {
			listResp, err := apiCli.get(context.Background(), "/assistants")
			if err == nil {
				var names []string
				if decodeJSON(listResp, &names) == nil {
					printStatus("Assistants", "%d", len(names))
				}
			}
		}
	}

	printStatus("Config dir", "%s", cfg.Paths.ConfigDir)
	printStatus("Data dir", "%s", cfg.Paths.DataDir)
	return nil
}
