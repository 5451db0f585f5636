package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/0xADE/ade-find/internal/indexer"
	"github.com/0xADE/ade-find/internal/search"
	"github.com/0xADE/ade-find/parser"
)

// AppRootPrefix marks a reindex argument as an application root
const AppRootPrefix = "app:"

// Server handles Unix socket connections and command execution
type Server struct {
	listener net.Listener
	indexer  *indexer.Indexer
	engine   *search.Engine
	logger   *slog.Logger
	running  bool
	cancel   context.CancelFunc // ends every open connection
	mu       sync.RWMutex
	conns    sync.WaitGroup
}

type attr struct {
	key   string
	value string
}

// NewServer listens on socketPath, replacing a stale socket file
func NewServer(socketPath string, idx *indexer.Indexer, engine *search.Engine, logger *slog.Logger) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", socketPath, err)
	}

	return newServer(listener, idx, engine, logger), nil
}

func newServer(listener net.Listener, idx *indexer.Indexer, engine *search.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listener: listener,
		indexer:  idx,
		engine:   engine,
		logger:   logger.With("component", "server"),
	}
}

// Start accepts connections until ctx is done or Stop is called. Either
// one also closes the connections still open.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.RLock()
			running := s.running
			s.mu.RUnlock()
			if !running {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("accept failed", "err", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Stop closes the listener and every open connection; calling it more
// than once is harmless
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if !s.running {
		return nil
	}
	s.running = false
	return s.listener.Close()
}

// Wait blocks until every open connection has been served
func (s *Server) Wait() {
	s.conns.Wait()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Unblocks the parser when the server shuts down mid-connection
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Debug("connection accepted")

	p, err := parser.NewParser(conn)
	if err != nil {
		s.logger.Error("bad connection header", "err", err)
		s.writeError(conn, "parser", "invalid header", err.Error())
		return
	}

	for {
		cmd, err := p.ParseCommand()
		if err == io.EOF {
			s.logger.Debug("connection closed by client")
			return
		}
		if ctx.Err() != nil {
			s.logger.Debug("connection closed on shutdown")
			return
		}
		if err != nil {
			s.logger.Warn("parse error", "err", err)
			s.writeError(conn, "parser", "parse error", err.Error())
			return
		}

		s.logger.Debug("executing command", "cmd", cmd.Name, "args", len(cmd.Args))
		s.executeCommand(ctx, conn, cmd)
	}
}

func (s *Server) executeCommand(ctx context.Context, w io.Writer, cmd *parser.Command) {
	switch cmd.Name {
	case parser.CmdSearch:
		s.handleSearch(w, cmd)
	case parser.CmdDebugSearch:
		s.handleDebugSearch(w, cmd)
	case parser.CmdSummary:
		s.handleSummary(w)
	case parser.CmdReindex:
		s.handleReindex(ctx, w, cmd)
	case parser.CmdStatus:
		s.handleStatus(w)
	default:
		s.writeError(w, cmd.Name, "unknown command", "Command not recognized")
	}
}

func (s *Server) handleSearch(w io.Writer, cmd *parser.Command) {
	query, ok := singleString(cmd)
	if !ok {
		s.writeError(w, cmd.Name, "missing query", "search requires one string parameter")
		return
	}

	entries := s.engine.Search(query)
	body := make([]any, len(entries))
	for i, e := range entries {
		body[i] = e
	}

	s.writeResponse(w, []attr{
		{"cmd", cmd.Name},
		{"status", "0"},
		{"count", strconv.Itoa(len(entries))},
		{"generation", strconv.FormatUint(s.indexer.GetIndex().Snapshot().Generation, 10)},
	}, body)
}

func (s *Server) handleDebugSearch(w io.Writer, cmd *parser.Command) {
	query, ok := singleString(cmd)
	if !ok {
		s.writeError(w, cmd.Name, "missing query", "debug-search requires one string parameter")
		return
	}

	entries := s.engine.DebugSearch(query)
	body := make([]any, len(entries))
	for i, e := range entries {
		body[i] = e
	}

	s.writeResponse(w, []attr{
		{"cmd", cmd.Name},
		{"status", "0"},
		{"count", strconv.Itoa(len(entries))},
	}, body)
}

func (s *Server) handleSummary(w io.Writer) {
	sum := s.engine.Summary()

	attrs := []attr{
		{"cmd", parser.CmdSummary},
		{"status", "0"},
		{"total", strconv.Itoa(sum.Total)},
		{"apps", strconv.Itoa(sum.Applications)},
		{"files", strconv.Itoa(sum.Files)},
		{"generation", strconv.FormatUint(sum.Generation, 10)},
	}
	for _, cat := range indexer.Categories {
		attrs = append(attrs, attr{"category-" + string(cat), strconv.Itoa(sum.ByCategory[cat])})
	}
	s.writeResponse(w, attrs, nil)
}

func (s *Server) handleReindex(ctx context.Context, w io.Writer, cmd *parser.Command) {
	paths := cmd.Strings()
	if len(paths) != len(cmd.Args) {
		s.writeError(w, cmd.Name, "invalid argument", "reindex takes string roots only")
		return
	}

	var (
		count int
		err   error
	)
	if len(paths) == 0 {
		count, err = s.indexer.Build(ctx)
	} else {
		count, err = s.indexer.Reindex(ctx, ParseRoots(paths))
	}
	if err != nil {
		s.logger.Error("reindex failed", "err", err)
		s.writeError(w, cmd.Name, "reindex failed", err.Error())
		return
	}

	s.writeResponse(w, []attr{
		{"cmd", cmd.Name},
		{"status", "0"},
		{"indexed", strconv.Itoa(count)},
	}, nil)
}

func (s *Server) handleStatus(w io.Writer) {
	snap := s.indexer.GetIndex().Snapshot()

	builtAt := ""
	if !snap.BuiltAt.IsZero() {
		builtAt = snap.BuiltAt.Format(time.RFC3339)
	}
	s.writeResponse(w, []attr{
		{"cmd", parser.CmdStatus},
		{"status", "0"},
		{"building", strconv.FormatBool(s.indexer.IsRunning())},
		{"entries", strconv.Itoa(snap.Len())},
		{"generation", strconv.FormatUint(snap.Generation, 10)},
		{"built-at", builtAt},
	}, nil)
}

// ParseRoots splits reindex arguments into app roots (prefixed with "app:")
// and file roots
func ParseRoots(args []string) indexer.Roots {
	var roots indexer.Roots
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if after, ok := strings.CutPrefix(arg, AppRootPrefix); ok {
			roots.Apps = append(roots.Apps, after)
			continue
		}
		roots.Files = append(roots.Files, arg)
	}
	return roots
}

func singleString(cmd *parser.Command) (string, bool) {
	args := cmd.Strings()
	if len(args) != 1 {
		return "", false
	}
	return args[0], true
}

// writeResponse writes the header, the attributes, an optional body of
// JSON lines and the terminating empty line in one write
func (s *Server) writeResponse(w io.Writer, attrs []attr, body []any) {
	var buf bytes.Buffer
	buf.WriteString(parser.Header)
	for _, a := range attrs {
		fmt.Fprintf(&buf, "%s: %s\n", a.key, a.value)
	}
	if body != nil {
		buf.WriteString("body:\n")
		for _, item := range body {
			line, err := json.Marshal(item)
			if err != nil {
				s.logger.Error("encode body line", "err", err)
				continue
			}
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}
	buf.WriteByte('\n')

	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("write response failed", "err", err)
	}
}

func (s *Server) writeError(w io.Writer, cmd, errType, desc string) {
	s.logger.Debug("error response", "cmd", cmd, "type", errType, "desc", desc)
	s.writeResponse(w, []attr{
		{"error-cmd", cmd},
		{"status", "1"},
		{"error", errType},
		{"desc", strings.ReplaceAll(desc, "\n", " ")},
	}, nil)
}
