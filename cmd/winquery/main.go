package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/config"
	"github.com/1broseidon/winquery/internal/ipc"
	"github.com/1broseidon/winquery/internal/runtimepath"
	"github.com/1broseidon/winquery/internal/settings"
	"github.com/1broseidon/winquery/internal/window"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "info":
		os.Exit(runInfo(os.Args[2:]))
	case "activate":
		os.Exit(runActivate(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "minimize", "maximize", "restore":
		os.Exit(runStateChange(os.Args[1], os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "wait":
		os.Exit(runWait(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winquery <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve               Start the winquery daemon (foreground)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  list                List matching windows")
	fmt.Fprintln(w, "  info                Describe the top-most matching window")
	fmt.Fprintln(w, "  activate            Activate the top-most matching window")
	fmt.Fprintln(w, "  close               Close matching windows")
	fmt.Fprintln(w, "  minimize            Minimize matching windows")
	fmt.Fprintln(w, "  maximize            Maximize matching windows")
	fmt.Fprintln(w, "  restore             Restore matching windows")
	fmt.Fprintln(w, "  move                Move or resize the top-most matching window")
	fmt.Fprintln(w, "  wait                Wait for a window to appear, activate or close")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start the MCP server (stdio transport)")
	fmt.Fprintln(w, "  config validate     Validate the configuration file")
	fmt.Fprintln(w, "  config print        Print the effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Window commands share these options:")
	fmt.Fprintln(w, "  --title, --class, --exe, --text, --match, --exclude-title, --id, --hidden")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winquery <command> --help' for command-specific options.")
}

// loadConfig loads path, or the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// remote is a window client talking to the daemon over IPC.
type remote struct {
	cfg    *config.Config
	ipc    *ipc.Client
	client *window.Client
	ctx    context.Context
}

func (r *remote) Close() {
	_ = r.ipc.Close()
}

func connect(configPath string) (*remote, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := settings.SetDefaults(cfg.AutomationSettings()); err != nil {
		return nil, err
	}
	socketPath, err := runtimepath.SocketPath(cfg.Socket)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	ic := ipc.NewClient(socketPath, logger)
	return &remote{
		cfg:    cfg,
		ipc:    ic,
		client: window.NewClient(backend.NewSession(ic, logger)),
		ctx:    settings.NewContext(context.Background(), settings.NewStore()),
	}, nil
}

// parseFlags parses args into fs and reports the exit code to use when
// parsing stops the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no positional arguments\n", fs.Name())
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func fail(err error) int {
	log.SetFlags(0)
	log.Println(err)
	return 1
}
