package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/winquery/internal/engine"
)

const maxRequestSize = 1 << 20

// Server exposes an engine over a unix socket. Each connection gets its own
// engine session, so backend configuration and the last found window are
// per connection.
type Server struct {
	socketPath string
	engine     *engine.Engine
	logger     *slog.Logger

	listener     net.Listener
	ctx          context.Context
	cancel       context.CancelFunc
	conns        sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server for e listening on socketPath.
func NewServer(socketPath string, e *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		engine:     e,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SocketPath returns the socket the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a previous run.
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			closing := s.shuttingDown
			s.shutdownMu.Unlock()
			if closing {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves requests from one client until it disconnects.
// Requests are dispatched in arrival order, which fixes the configuration
// each command sees; they complete concurrently.
func (s *Server) handleConnection(conn net.Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	session := s.engine.NewSession()
	var (
		writeMu sync.Mutex
		pending sync.WaitGroup
	)
	write := func(resp *Response) {
		data, err := resp.Marshal()
		if err != nil {
			s.logger.Error("failed to marshal response", "error", err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := conn.Write(append(data, '\n')); err != nil {
			s.logger.Debug("failed to send response", "error", err)
		}
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestSize)
	for scanner.Scan() {
		req, err := ParseRequest(scanner.Bytes())
		if err != nil {
			write(NewErrorResponse(0, fmt.Errorf("invalid request: %w", err)))
			continue
		}
		s.logger.Debug("IPC request", "id", req.ID, "command", req.Command, "args", len(req.Args))

		p, err := session.Dispatch(ctx, req.Command, req.Args...)
		if err != nil {
			write(NewErrorResponse(req.ID, err))
			continue
		}
		pending.Add(1)
		go func(id uint64) {
			defer pending.Done()
			res, err := p.Wait()
			if err != nil {
				write(NewErrorResponse(id, err))
				return
			}
			write(NewOKResponse(id, res))
		}(req.ID)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Debug("IPC read error", "error", err)
	}
	// Blocked commands end with the connection.
	cancel()
	pending.Wait()
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
	s.conns.Wait()
	os.Remove(s.socketPath)
}
