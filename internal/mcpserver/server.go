package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"deskshell/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ShellService is what the backend exposes about the running shell.
type ShellService interface {
	Geometry(ctx context.Context) (domain.Geometry, error)
	Settings(ctx context.Context) (map[string]string, error)
	Status(ctx context.Context) (domain.ShellStatus, error)
	Focus(ctx context.Context) error
}

type Server struct {
	mu        sync.RWMutex
	shell     ShellService
	version   string
	httpSrv   *http.Server
	endpoint  string
	startedAt time.Time
}

func New(shell ShellService, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{shell: shell, version: version}
}

func (s *Server) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

// Start listens on addr (host:port, port 0 picks a free one) and serves MCP
// over streamable HTTP at /mcp.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv != nil {
		return nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	impl := &mcp.Implementation{Name: "deskshell", Version: s.version}
	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "window_geometry",
		Description: "Get the persisted main window geometry",
	}, s.windowGeometryTool)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "settings_snapshot",
		Description: "Get the effective settings record as dotted keys",
	}, s.settingsSnapshotTool)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "shell_status",
		Description: "Get window lifecycle state and content source",
	}, s.shellStatusTool)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "focus_window",
		Description: "Show and focus the main window, recreating it if it was closed",
	}, s.focusWindowTool)

	streamHandler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", withOriginValidation(streamHandler))
	httpSrv := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = httpSrv.Serve(listener)
	}()

	s.httpSrv = httpSrv
	s.endpoint = "http://" + listener.Addr().String() + "/mcp"
	s.startedAt = time.Now()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv == nil {
		return nil
	}
	err := s.httpSrv.Shutdown(ctx)
	s.httpSrv = nil
	s.endpoint = ""
	return err
}

func (s *Server) uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

type windowGeometryOutput struct {
	Geometry    domain.Geometry `json:"geometry"`
	HasPosition bool            `json:"has_position"`
}

func (s *Server) windowGeometryTool(ctx context.Context, _ *mcp.CallToolRequest, _ *struct{}) (*mcp.CallToolResult, any, error) {
	geometry, err := s.shell.Geometry(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Window %dx%d", geometry.Width, geometry.Height)}},
	}, windowGeometryOutput{Geometry: geometry, HasPosition: geometry.HasPosition()}, nil
}

type settingsSnapshotOutput struct {
	Settings map[string]string `json:"settings"`
}

func (s *Server) settingsSnapshotTool(ctx context.Context, _ *mcp.CallToolRequest, _ *struct{}) (*mcp.CallToolResult, any, error) {
	values, err := s.shell.Settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Returned %d settings", len(values))}},
	}, settingsSnapshotOutput{Settings: values}, nil
}

type shellStatusOutput struct {
	Status        domain.ShellStatus `json:"status"`
	UptimeSeconds int64              `json:"uptime_seconds"`
}

func (s *Server) shellStatusTool(ctx context.Context, _ *mcp.CallToolRequest, _ *struct{}) (*mcp.CallToolResult, any, error) {
	status, err := s.shell.Status(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Shell is " + status.State}},
	}, shellStatusOutput{Status: status, UptimeSeconds: int64(s.uptime().Seconds())}, nil
}

type focusWindowOutput struct {
	Requested bool `json:"requested"`
}

func (s *Server) focusWindowTool(ctx context.Context, _ *mcp.CallToolRequest, _ *struct{}) (*mcp.CallToolResult, any, error) {
	if err := s.shell.Focus(ctx); err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Focus requested"}},
	}, focusWindowOutput{Requested: true}, nil
}

func withOriginValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !isLocalOrigin(origin) {
			http.Error(w, "forbidden origin", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLocalOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	// The webview itself loads from wails.localhost.
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "wails.localhost"
}
