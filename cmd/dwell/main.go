package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hpungsan/dwell/internal/app"
	"github.com/hpungsan/dwell/internal/mcp"
	"github.com/hpungsan/dwell/internal/web"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "status": true,
	"today": true, "yesterday": true, "all": true,
	"summary": true, "report": true, "clear": true,
	"screenshots": true,
	"help":        true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___                 _ _
  |   \__ __ _____ ___| | |
  | |) \ V  V / -_) / | | |
  |___/ \_/\_/\___\___|_|_|

  Local browsing time tracker

  Usage: dwell <command> [options]
         dwell serve
         dwell --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		cliApp := newCLIApp(nil)
		if err := cliApp.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'dwell --help' for usage.\n")
		os.Exit(1)
	}

	baseDir, err := app.DefaultBaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	svc, err := app.Open(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		err = newCLIApp(svc).Run(os.Args)
	} else {
		err = runMCP(svc)
	}
	if cerr := svc.Close(); cerr != nil {
		svc.Log.Warn("close failed", slog.String("error", cerr.Error()))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runMCP serves MCP over stdio with the extension ingress running alongside.
// The process owns the tracking engine until stdin closes.
func runMCP(svc *app.Services) error {
	warnUnknown(svc.Log, "disabled_tools", mcp.ValidateDisabledTools(svc.Config.DisabledTools))
	warnUnknown(svc.Log, "disabled_types", mcp.ValidateDisabledTypes(svc.Config.DisabledTypes))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}

	srv, err := web.NewServer(svc, Version, svc.Config.HTTPBind, svc.Config.HTTPPort)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// A taken port leaves MCP queries working; only the extension loses its ingress
		if err := web.Run(ctx, srv, svc.Log); err != nil {
			svc.Log.Error("http ingress stopped", slog.String("error", err.Error()))
		}
	}()

	err = mcp.Run(svc, Version)
	cancel()
	wg.Wait()
	return err
}

func warnUnknown(logger *slog.Logger, field string, unknown []string) {
	for _, name := range unknown {
		logger.Warn("unknown name in config", slog.String("field", field), slog.String("name", name))
	}
}
