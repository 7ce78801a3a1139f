package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"propmon/internal/config"
	"propmon/internal/factindex"
	"propmon/internal/hostbrowser"
	"propmon/internal/mcp"
	"propmon/internal/monitor"
	"propmon/internal/recorder"
	"propmon/internal/runner"
	"propmon/internal/walker"
)

func main() {
	configPath := flag.String("config", "", "Path to the propmon config file (overrides workspace config)")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	noWorkspace := flag.Bool("no-workspace", false, "Disable .propmon/ workspace discovery")
	workspaceDir := flag.String("workspace-dir", "", "Explicit workspace root (skip walk-up discovery)")
	initWorkspace := flag.Bool("init-workspace", false, "Create .propmon/ template in current directory and exit")
	stdio := flag.Bool("stdio", true, "Serve the MCP tool surface over stdio/SSE; false runs one trace directly and exits")
	flag.Parse()

	if *initWorkspace {
		root := "."
		if *workspaceDir != "" {
			root = *workspaceDir
		}
		if err := config.InitWorkspace(root); err != nil {
			log.Fatalf("failed to initialize workspace: %v", err)
		}
		log.Printf("created .propmon/ workspace in %s", root)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := config.WorkspaceOptions{
		Disable:     *noWorkspace,
		ExplicitDir: *workspaceDir,
	}

	cfg, wsDir, err := config.LoadWithWorkspace(*configPath, opts)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if wsDir != "" {
		log.Printf("using workspace config from %s", wsDir)
	}

	if *stdio && cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			log.SetOutput(io.Discard)
		}
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	zapLog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLog.Sync()

	if cfg.Spec.Path == "" {
		log.Fatalf("spec.path is required (set it in the workspace config or via --config)")
	}
	specSource, err := os.ReadFile(cfg.Spec.Path)
	if err != nil {
		log.Fatalf("failed to read specification %s: %v", cfg.Spec.Path, err)
	}

	mon, err := monitor.New(string(specSource), cfg.Spec.Path, zapLog)
	if err != nil {
		log.Fatalf("failed to load specification: %v", err)
	}
	defer mon.Close()

	facts := factindex.NewStore()

	newHost := func(ctx context.Context) (*hostbrowser.Host, error) {
		return hostbrowser.New(ctx, cfg.Browser, zapLog)
	}

	if !*stdio {
		runDirect(ctx, cfg, mon, facts, newHost)
		return
	}

	server := mcp.NewServer(cfg, mon, facts, newHost)

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting propmon MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting propmon MCP stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}

// runDirect drives a single trace against the configured browser host and
// prints the result, for local development without an MCP client attached.
func runDirect(ctx context.Context, cfg config.Config, mon *monitor.Monitor, facts *factindex.Store, newHost func(context.Context) (*hostbrowser.Host, error)) {
	host, err := newHost(ctx)
	if err != nil {
		log.Fatalf("failed to start browser host: %v", err)
	}
	defer host.Close()

	trace, err := recorder.NewRecorder(cfg.Trace.Dir, cfg.Trace.MaxFileBytes)
	if err != nil {
		log.Fatalf("failed to start trace recorder: %v", err)
	}

	r := &runner.Runner{
		Host:    host,
		Monitor: mon,
		Walker:  walker.New(cfg.Walker.Seed),
		Trace:   trace,
		Facts:   facts,
	}

	result, err := r.Run(ctx, cfg.Walker.MaxTicks)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode run result: %v", err)
	}
	fmt.Println(string(out))
}
