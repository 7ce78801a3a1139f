package main

import (
	"context"
	"os"
	"testing"

	"propmon/internal/config"
	"propmon/internal/factindex"
	"propmon/internal/hostbrowser"
	"propmon/internal/mcp"
	"propmon/internal/monitor"
)

const lifecycleSpec = `
const hit = extract(() => false);
exports.eventuallyHit = eventually(() => hit.current === true).within(3, "milliseconds");
`

// TestServerInitializationWithoutBrowser covers the wiring main() performs
// before it ever touches a real browser: config, monitor, fact index, and
// the MCP server's tool registration.
func TestServerInitializationWithoutBrowser(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Name = "integration-test-server"

	mon, err := monitor.New(lifecycleSpec, "spec.js", nil)
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	defer mon.Close()

	facts := factindex.NewStore()
	newHost := func(context.Context) (*hostbrowser.Host, error) {
		return nil, context.DeadlineExceeded
	}

	server := mcp.NewServer(cfg, mon, facts, newHost)
	if server == nil {
		t.Fatal("expected non-nil server")
	}

	result, err := server.ExecuteTool("list-properties", map[string]interface{}{})
	if err != nil {
		t.Fatalf("ExecuteTool: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil result")
	}
}

// TestFullLifecycleWithBrowser drives an actual headless-Chrome trace
// through the wiring main() assembles. Skipped when SKIP_LIVE_TESTS is set.
func TestFullLifecycleWithBrowser(t *testing.T) {
	if os.Getenv("SKIP_LIVE_TESTS") != "" {
		t.Skip("Skipping integration tests (SKIP_LIVE_TESTS set)")
	}

	cfg := config.DefaultConfig()
	cfg.Browser.StartURL = "data:text/html,<html><body><h1>ok</h1></body></html>"
	headless := true
	cfg.Browser.Headless = &headless

	mon, err := monitor.New(lifecycleSpec, "spec.js", nil)
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	defer mon.Close()

	facts := factindex.NewStore()
	newHost := func(ctx context.Context) (*hostbrowser.Host, error) {
		return hostbrowser.New(ctx, cfg.Browser, nil)
	}

	server := mcp.NewServer(cfg, mon, facts, newHost)
	result, err := server.ExecuteTool("run-trace", map[string]interface{}{"max_ticks": float64(5)})
	if err != nil {
		t.Fatalf("run-trace failed: %v", err)
	}
	resultMap := result.(map[string]interface{})
	if resultMap["ticks"] == nil {
		t.Error("expected ticks in result")
	}
}
