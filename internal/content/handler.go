// Package content serves what the webview shows. The active source is either
// the bundled frontend or a reverse proxy to the development server, and it
// can be switched while the window is open.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"deskshell/internal/domain"

	"go.uber.org/zap"
)

type Handler struct {
	logger *zap.Logger

	mu     sync.RWMutex
	active http.Handler
	source domain.ContentSource
}

func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// UseFiles serves fsys, answering the root path with entry. HTML documents
// carry the window.open shim.
func (h *Handler) UseFiles(fsys fs.FS, entry string) error {
	entry = strings.TrimPrefix(entry, "/")
	if _, err := fs.Stat(fsys, entry); err != nil {
		return fmt.Errorf("entry %q: %w", entry, err)
	}
	files := http.FileServerFS(fsys)
	h.swap(domain.ContentSource{Mode: domain.ContentModeFile, Target: entry}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = entry
		} else if info, err := fs.Stat(fsys, name); err == nil && info.IsDir() {
			name = path.Join(name, "index.html")
		}
		if path.Ext(name) == ".html" && h.serveDocument(w, r, fsys, name) {
			return
		}
		files.ServeHTTP(w, r)
	}))
	return nil
}

// serveDocument writes the named HTML file with the shim injected. It reports
// false when the file cannot be read so the file server can answer instead.
func (h *Handler) serveDocument(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) bool {
	page, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false
	}
	out, err := InjectOpenShim(page)
	if err != nil {
		h.logger.Warn("open shim injection failed", zap.String("path", name), zap.Error(err))
		out = page
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(out))
	return true
}

// UseProxy forwards every request to the server at rawURL. HTML responses
// get the window.open shim.
func (h *Handler) UseProxy(rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse dev server url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" || target.Host == "" {
		return errors.New("dev server url must be absolute http(s)")
	}
	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
		},
		ModifyResponse: h.injectResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.Warn("dev server unreachable", zap.String("url", rawURL), zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "dev server unreachable", http.StatusBadGateway)
		},
	}
	h.swap(domain.ContentSource{Mode: domain.ContentModeURL, Target: rawURL}, proxy)
	return nil
}

func (h *Handler) Source() domain.ContentSource {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.source
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	active := h.active
	h.mu.RUnlock()
	if active == nil {
		http.Error(w, "content not ready", http.StatusServiceUnavailable)
		return
	}
	active.ServeHTTP(w, r)
}

func (h *Handler) swap(source domain.ContentSource, next http.Handler) {
	h.mu.Lock()
	h.active = next
	h.source = source
	h.mu.Unlock()
	h.logger.Debug("content source selected", zap.String("mode", string(source.Mode)), zap.String("target", source.Target))
}
