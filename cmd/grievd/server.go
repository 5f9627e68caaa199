package main

import (
	"context"
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
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/mkale/grievd/internal/api"
	"github.com/mkale/grievd/internal/composer"
	"github.com/mkale/grievd/internal/config"
	"github.com/mkale/grievd/internal/dialog"
	"github.com/mkale/grievd/internal/ingest"
	"github.com/mkale/grievd/internal/llm"
	"github.com/mkale/grievd/internal/nlp"
	"github.com/mkale/grievd/internal/session"
	"github.com/mkale/grievd/internal/storage"
	"github.com/mkale/grievd/internal/taxonomy"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the grievd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running grievd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show grievd system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "grievd.pid")
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

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "grievd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	// Refuse to double-start: probe the health endpoint before claiming
	// the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("grievd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("grievd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Department and category lists, either the built-in defaults or an
	// operator-supplied override file.
	tax := taxonomy.Default()
	if cfg.Taxonomy.Path != "" {
		tax, err = taxonomy.LoadFile(cfg.Taxonomy.Path)
		if err != nil {
			return fmt.Errorf("loading taxonomy: %w", err)
		}
		logger.Info("loaded taxonomy override", "path", cfg.Taxonomy.Path)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	sessions := session.NewMemoryStore(cfg.Session.TTL)

	// Without an API key the assistant degrades to canned replies; filing,
	// tracking, and stats all still work.
	var completer dialog.Completer
	if cfg.LLM.APIKey != "" {
		completer = llm.New(cfg.LLM.APIKey).WithModel(cfg.LLM.Model)
		logger.Info("completion service configured")
	} else {
		logger.Warn("no LLM API key set, using canned replies")
	}

	analyzer := nlp.New(tax)
	eng := dialog.New(sessions, tax, completer, logger)

	deps := api.Deps{
		Engine:     eng,
		Store:      store,
		Analyzer:   analyzer,
		Taxonomy:   tax,
		Composer:   composer.New(tax),
		AdminToken: cfg.API.AdminToken,
		Logger:     logger,
	}
	if cfg.API.AdminToken == "" {
		logger.Warn("no admin token set, admin endpoints disabled")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	ln = netutil.LimitListener(ln, cfg.Server.MaxConns)

	srv := &http.Server{
		Handler: api.NewHandler(deps),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
	mcpSrv := server.NewStreamableHTTPServer(api.NewMCPServer(deps))

	worker := ingest.NewWorker(store, analyzer, 500*time.Millisecond)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("grievd listening", "addr", addr, "max_conns", cfg.Server.MaxConns)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("mcp endpoint listening", "addr", mcpAddr)
		if err := mcpSrv.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		sessions.RunSweeper(gctx, cfg.Session.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mcpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp shutdown", "error", err)
		}
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
		printError("grievd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop grievd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to grievd (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}
	printStatus("MCP port", "%d", cfg.Server.MCPPort)

	if cfg.LLM.APIKey != "" {
		printStatus("Completions", "configured")
	} else {
		printStatus("Completions", "not configured (canned replies)")
	}

	// Complaint counts need the admin endpoints.
	if running && cfg.API.AdminToken != "" {
		adminClient, err := newAPIClient()
		if err == nil {
			listResp, listErr := adminClient.get(ctx, "/api/admin/complaints?limit=100")
			if listErr == nil {
				var complaints []struct {
					Status string `json:"status"`
				}
				if decodeJSON(listResp, &complaints) == nil {
					printStatus("Complaints", "%s", countLabel(len(complaints), 100))
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
