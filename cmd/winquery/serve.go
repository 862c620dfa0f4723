package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/winquery/internal/backend"
	"github.com/1broseidon/winquery/internal/config"
	"github.com/1broseidon/winquery/internal/engine"
	"github.com/1broseidon/winquery/internal/hotkeys"
	"github.com/1broseidon/winquery/internal/ipc"
	"github.com/1broseidon/winquery/internal/runtimepath"
	"github.com/1broseidon/winquery/internal/settings"
	"github.com/1broseidon/winquery/internal/window"
	"github.com/1broseidon/winquery/internal/x11"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file path (default: ~/.config/winquery/config.yaml)")
	backendName := fs.String("backend", "", "Override the configured backend (x11 or memory)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winquery serve [--config PATH] [--backend x11|memory]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the winquery daemon in the foreground. The daemon owns the desktop")
		fmt.Fprintln(os.Stderr, "connection, serves window commands over a unix socket and handles the")
		fmt.Fprintln(os.Stderr, "configured hotkeys. SIGHUP reloads the automation settings.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fail(fmt.Errorf("failed to load configuration: %w", err))
	}
	if *backendName != "" {
		cfg.Backend = config.Backend(*backendName)
		if err := cfg.Validate(); err != nil {
			return fail(err)
		}
	}
	logger := newLogger(cfg, os.Stderr)
	if err := settings.SetDefaults(cfg.AutomationSettings()); err != nil {
		return fail(err)
	}

	var (
		desktop engine.Desktop
		conn    *x11.Connection
	)
	switch cfg.Backend {
	case config.BackendX11:
		conn, err = x11.NewConnection(cfg.Display)
		if err != nil {
			return fail(err)
		}
		defer conn.Close()
		desktop = x11.NewDesktop(conn, logger)
	case config.BackendMemory:
		desktop = engine.NewMemoryDesktop()
	}

	eng := engine.New(desktop,
		engine.WithLogger(logger),
		engine.WithPollInterval(cfg.PollInterval()),
	)

	socketPath, err := runtimepath.SocketPath(cfg.Socket)
	if err != nil {
		return fail(err)
	}
	server := ipc.NewServer(socketPath, eng, logger)
	if err := server.Start(); err != nil {
		return fail(fmt.Errorf("failed to start IPC server: %w", err))
	}
	defer server.Stop()

	ctx, cancel := context.WithCancel(settings.NewContext(context.Background(), settings.NewStore()))
	defer cancel()

	if conn != nil && len(cfg.Hotkeys) > 0 {
		client := window.NewClient(backend.NewSession(eng.NewSession(), logger))
		handler := hotkeys.NewHandler(conn, logger)
		if err := handler.RegisterBindings(ctx, client, cfg.Hotkeys); err != nil {
			return fail(err)
		}
		logger.Info("hotkeys registered", "count", len(cfg.Hotkeys))
	}

	go handleSignals(ctx, cancel, *configPath, logger)

	logger.Info("winquery daemon started", "backend", cfg.Backend, "socket", socketPath)
	if conn != nil {
		go func() {
			<-ctx.Done()
			conn.Quit()
		}()
		conn.EventLoop()
	} else {
		<-ctx.Done()
	}
	logger.Info("shutting down winquery daemon")
	return 0
}

// handleSignals cancels on SIGINT/SIGTERM and reloads settings on SIGHUP.
// Hotkey changes take effect on restart.
func handleSignals(ctx context.Context, cancel context.CancelFunc, configPath string, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			if sig != syscall.SIGHUP {
				cancel()
				return
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			if err := settings.SetDefaults(cfg.AutomationSettings()); err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded")
		}
	}
}
