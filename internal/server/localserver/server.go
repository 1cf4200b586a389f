package localserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
)

const maxLine = 4096

// Server serves admin commands on a Unix domain socket.
type Server struct {
	path    string
	handler *Handler
	logger  *slog.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a server for socketPath.
func New(socketPath string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen binds the socket. A stale socket file left by a previous run
// is removed first.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return err
	}
	s.listener = ln
	s.running.Store(true)
	return nil
}

// Serve accepts connections until Shutdown. It calls Listen if needed.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(conn)
		}()
	}
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines or ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 256), maxLine)
	enc := json.NewEncoder(conn)
	for sc.Scan() {
		line := sc.Text()
		reply := s.handler.Execute(line)
		s.logger.Info("admin command", "command", line, "ok", reply.OK)
		if err := enc.Encode(reply); err != nil {
			return
		}
	}
}
