// Package desktop adapts the wails v2 runtime to the window lifecycle
// contracts in internal/shell. wails owns exactly one native window, so a
// "new window" re-shows that window with fresh geometry and a "closed" window
// is a hidden one.
package desktop

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"deskshell/internal/shell"

	"go.uber.org/zap"
)

const defaultPollInterval = 250 * time.Millisecond

var ErrNotStarted = errors.New("desktop runtime not started")

type ContentSwitcher interface {
	UseFiles(fsys fs.FS, entry string) error
	UseProxy(rawURL string) error
}

type ExternalOpener interface {
	Open(ctx context.Context, url string) error
}

type Options struct {
	Logger  *zap.Logger
	Content ContentSwitcher
	// Assets is the bundled frontend served by LoadFile.
	Assets fs.FS
	Opener ExternalOpener
	// Post delivers window signals to the lifecycle coordinator.
	Post         func(shell.Event)
	PollInterval time.Duration
}

type Runtime struct {
	logger       *zap.Logger
	content      ContentSwitcher
	assets       fs.FS
	opener       ExternalOpener
	post         func(shell.Event)
	pollInterval time.Duration

	mu       sync.Mutex
	ctx      context.Context
	api      windowAPI
	window   *Window
	quitting bool
}

func NewRuntime(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	post := opts.Post
	if post == nil {
		post = func(shell.Event) {}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Runtime{
		logger:       logger,
		content:      opts.Content,
		assets:       opts.Assets,
		opener:       opts.Opener,
		post:         post,
		pollInterval: interval,
	}
}

// Bind attaches the wails context handed to OnStartup.
func (r *Runtime) Bind(ctx context.Context) {
	r.bind(ctx, wailsAPI{ctx: ctx})
}

func (r *Runtime) bind(ctx context.Context, api windowAPI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	r.api = api
}

func (r *Runtime) NewWindow(opts shell.WindowOptions) (shell.Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.api == nil {
		return nil, ErrNotStarted
	}
	if r.window != nil {
		return nil, errors.New("main window already open")
	}

	api := r.api
	api.SetTitle(opts.Title)
	api.SetMinSize(opts.MinWidth, opts.MinHeight)
	api.SetSize(opts.Width, opts.Height)
	if opts.X != nil && opts.Y != nil {
		api.SetPosition(*opts.X, *opts.Y)
	} else {
		api.Center()
	}
	api.Show()

	win := newWindow(r, api)
	r.window = win
	go win.watchBounds(r.pollInterval, win.Bounds())
	return win, nil
}

func (r *Runtime) Windows() []shell.Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.window == nil {
		return nil
	}
	return []shell.Window{r.window}
}

func (r *Runtime) OpenExternal(url string) error {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if r.opener == nil {
		return errors.New("no external opener configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return r.opener.Open(ctx, url)
}

func (r *Runtime) Quit() {
	r.mu.Lock()
	r.quitting = true
	api := r.api
	r.mu.Unlock()
	if api != nil {
		api.Quit()
	}
}

// BeforeClose is wired to OnBeforeClose. The native window is hidden rather
// than destroyed and the coordinator decides whether the process ends.
func (r *Runtime) BeforeClose(context.Context) (prevent bool) {
	r.mu.Lock()
	if r.quitting {
		r.mu.Unlock()
		return false
	}
	win := r.window
	r.window = nil
	api := r.api
	r.mu.Unlock()

	if win != nil {
		win.stopWatching()
	}
	if api != nil {
		api.Hide()
	}
	r.post(shell.NewEvent(shell.EventAllWindowsClosed))
	return true
}

// Shutdown stops the bounds watcher. Wired to OnShutdown.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	r.quitting = true
	win := r.window
	r.mu.Unlock()
	if win != nil {
		win.stopWatching()
	}
}

// RequestOpen runs the open handler of the current window for a page's
// window.open call.
func (r *Runtime) RequestOpen(url string) shell.OpenAction {
	r.mu.Lock()
	win := r.window
	r.mu.Unlock()
	if win == nil {
		return shell.OpenDeny
	}
	return win.requestOpen(url)
}
