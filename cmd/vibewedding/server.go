package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
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
	"golang.org/x/sync/errgroup"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/api"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/assistant"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/config"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/vendors"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vibewedding server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running vibewedding server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vibewedding server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "vibewedding.pid")
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

func healthURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/health", port)
}

func runServer(withMCP bool) error {
	fmt.Fprintln(os.Stderr, versionLine())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.RequireLLMKey(cfg); err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL(cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("vibewedding is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("vibewedding is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.OpenDriver(cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			printWarning("closing storage: %v", err)
		}
	}()
	slog.Info("storage ready", "driver", cfg.Storage.Driver)

	llm := gateway.NewClientWithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL,
		gateway.WithTimeout(cfg.LLM.Timeout),
		gateway.WithMaxRetries(cfg.LLM.MaxRetries),
	)
	directory := vendors.NewDirectoryWithTTL(store, cfg.Vendors.CacheTTL)
	svc := assistant.NewService(llm, store, directory, assistant.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		VendorLimit: cfg.Vendors.LookupLimit,
	})

	handler := api.NewRouter(
		api.NewAssistantHandler(svc, store),
		api.NewAppHandler(api.AppDeps{Store: store, Token: apiToken, Vendors: directory}),
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		printSuccess("vibewedding listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Store: store, Assistant: svc, Vendors: directory})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		printStep("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("vibewedding is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop vibewedding (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to vibewedding (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	httpClient := &http.Client{Timeout: 2 * time.Second}
	running := false
	resp, err := httpClient.Get(healthURL(cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		running = resp.StatusCode == http.StatusOK
		if running {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "unhealthy (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Storage", "%s", cfg.Storage.Driver)
	printStatus("Model", "%s", cfg.LLM.Model)
	if cfg.LLM.APIKey == "" {
		printStatus("LLM key", "missing")
	} else {
		printStatus("LLM key", "configured")
	}

	if running {
		client, err := newAPIClient(cfg)
		if err == nil {
			client.httpClient = httpClient
			if n, err := countItems(ctx, client, "/conversations?limit=100"); err == nil {
				printStatus("Conversations", "%s", countLabel(n, 100))
			}
			if n, err := countItems(ctx, client, "/vendors?limit=100"); err == nil {
				printStatus("Vendors", "%s", countLabel(n, 100))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countItems(ctx context.Context, client *apiClient, path string) (int, error) {
	resp, err := client.get(ctx, path)
	if err != nil {
		return 0, err
	}
	var items []json.RawMessage
	if err := decodeJSON(resp, &items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
