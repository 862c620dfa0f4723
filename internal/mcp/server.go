package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winquery/internal/window"
)

const (
	ServerName    = "winquery"
	ServerVersion = "0.1.0"
)

// Server exposes window queries and actions as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *window.Client
	logger    *slog.Logger
}

// NewServer creates an MCP server that drives windows through client.
func NewServer(client *window.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		client: client,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List top-level windows front to back. Optionally narrow the list by title, class, executable or contained text. Hidden windows are only listed when include_hidden is set.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "find_window",
		Description: "Find the top-most (or bottom-most with last) window matching the criteria. Returns found=false when nothing matches.",
	}, s.handleFindWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "window_info",
		Description: "Describe a window by id: title, class, process, geometry and min/max state.",
	}, s.handleWindowInfo)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_window",
		Description: "Bring the top-most matching window to the front and focus it. With timeout, waits for it to become active.",
	}, s.handleActivateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "window_action",
		Description: "Apply close, kill, minimize, maximize, restore, show, hide, pin or unpin to the top-most matching window, or to every match with all.",
	}, s.handleWindowAction)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move and/or resize the top-most matching window. Omitted coordinates keep their current value. Returns the window's new geometry.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "wait_window",
		Description: "Wait until a matching window exists, is active, is inactive or has closed. Returns satisfied=false on timeout.",
	}, s.handleWaitWindow)
}
