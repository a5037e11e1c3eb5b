// Package shell owns the main window lifecycle: it creates the window from the
// persisted geometry, writes geometry back on every move or resize, applies the
// external-link policy and reacts to ready, activate, second-instance and
// all-windows-closed signals.
//
// All signals are funnelled through one event loop, so handlers never run
// concurrently with each other.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"deskshell/internal/domain"
	"deskshell/internal/security"

	"go.uber.org/zap"
)

const (
	defaultQueueSize = 256
	defaultTitle     = "Main window"
)

type Options struct {
	Runtime  Runtime
	Settings Settings
	Logger   *zap.Logger

	Title   string
	Content domain.ContentSource
	// Development is true for unpackaged builds; devtools extensions are only
	// installed then.
	Development bool
	// QuitOnAllClosed ends the process when the last window closes. Platforms
	// that keep running windowless leave it false.
	QuitOnAllClosed bool

	Installer  Installer
	Extensions []Extension
	QueueSize  int
}

type Coordinator struct {
	runtime  Runtime
	settings Settings
	logger   *zap.Logger

	title           string
	content         domain.ContentSource
	development     bool
	quitOnAllClosed bool
	installer       Installer
	extensions      []Extension

	events   chan Event
	done     chan struct{}
	doneOnce sync.Once

	mu      sync.RWMutex
	window  Window
	state   State
	handled int64
}

func New(opts Options) (*Coordinator, error) {
	if opts.Runtime == nil {
		return nil, errors.New("runtime is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("settings are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	title := opts.Title
	if title == "" {
		title = defaultTitle
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Coordinator{
		runtime:         opts.Runtime,
		settings:        opts.Settings,
		logger:          logger,
		title:           title,
		content:         opts.Content,
		development:     opts.Development,
		quitOnAllClosed: opts.QuitOnAllClosed,
		installer:       opts.Installer,
		extensions:      opts.Extensions,
		events:          make(chan Event, queueSize),
		done:            make(chan struct{}),
		state:           StateAbsent,
	}, nil
}

// Post queues ev for the event loop. It blocks while the queue is full and
// drops ev once the loop has stopped.
func (c *Coordinator) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Run drains the event queue until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.doneOnce.Do(func() { close(c.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			if err := c.Handle(ctx, ev); err != nil {
				c.logger.Error("lifecycle event failed", zap.String("event", string(ev.Kind)), zap.String("event_id", ev.ID), zap.Error(err))
			}
		}
	}
}

// Handle runs the handler for ev to completion.
func (c *Coordinator) Handle(ctx context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handled++

	switch ev.Kind {
	case EventReady:
		return c.onReady(ctx)
	case EventActivate:
		return c.onActivate(ctx)
	case EventSecondInstance:
		c.onSecondInstance(ev)
		return nil
	case EventAllWindowsClosed:
		c.onAllWindowsClosed()
		return nil
	case EventWindowMoved, EventWindowResized:
		return c.saveBounds(ctx)
	default:
		return fmt.Errorf("unknown lifecycle event %q", ev.Kind)
	}
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) Window() Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window
}

func (c *Coordinator) Status() domain.ShellStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ShellStatus{
		State:           c.state.String(),
		WindowPresent:   c.window != nil,
		QuitOnAllClosed: c.quitOnAllClosed,
		Content:         c.content,
		EventsHandled:   c.handled,
	}
}

func (c *Coordinator) onReady(ctx context.Context) error {
	if c.window != nil {
		c.logger.Warn("ready received with a window already open; ignoring")
		return nil
	}
	err := c.createWindow(ctx)
	if c.development {
		c.installExtensions(ctx)
	}
	return err
}

func (c *Coordinator) onActivate(ctx context.Context) error {
	windows := c.runtime.Windows()
	if len(windows) > 0 {
		windows[0].Focus()
		return nil
	}
	return c.createWindow(ctx)
}

func (c *Coordinator) onSecondInstance(ev Event) {
	if c.window == nil {
		return
	}
	c.logger.Info("second instance launch intercepted",
		zap.String("event_id", ev.ID), zap.Strings("args", ev.Args), zap.String("cwd", ev.Cwd))
	if c.window.IsMinimized() {
		c.window.Restore()
	}
	c.window.Focus()
}

func (c *Coordinator) onAllWindowsClosed() {
	c.window = nil
	c.state = StateAbsent
	if c.quitOnAllClosed {
		c.logger.Info("last window closed, quitting")
		c.runtime.Quit()
	}
}

func (c *Coordinator) createWindow(ctx context.Context) error {
	c.state = StateCreating
	geometry := c.storedGeometry(ctx)

	win, err := c.runtime.NewWindow(WindowOptions{
		Title:     c.title,
		Width:     geometry.Width,
		Height:    geometry.Height,
		MinWidth:  domain.MinWindowWidth,
		MinHeight: domain.MinWindowHeight,
		X:         geometry.X,
		Y:         geometry.Y,
	})
	if err != nil {
		c.state = StateAbsent
		return fmt.Errorf("create window: %w", err)
	}
	c.window = win

	if c.content.IsDevServer() {
		c.logger.Info("dev server running", zap.String("url", c.content.Target))
		if err := win.LoadURL(c.content.Target); err != nil {
			c.logger.Error("load dev server failed", zap.String("url", c.content.Target), zap.Error(err))
		}
		win.OpenDevTools()
	} else if err := win.LoadFile(c.content.Target); err != nil {
		c.logger.Error("load entry file failed", zap.String("path", c.content.Target), zap.Error(err))
	}

	win.SetWindowOpenHandler(c.handleWindowOpen)
	c.state = StateVisible
	return nil
}

// storedGeometry reads the window record field by field; anything missing or
// unreadable falls back to the defaults and positions stay unset.
func (c *Coordinator) storedGeometry(ctx context.Context) domain.Geometry {
	geometry := domain.Geometry{Width: domain.DefaultWindowWidth, Height: domain.DefaultWindowHeight}
	if width := c.readSize(ctx, "window.width", geometry.Width); width > 0 {
		geometry.Width = width
	}
	if height := c.readSize(ctx, "window.height", geometry.Height); height > 0 {
		geometry.Height = height
	}
	x, okX := c.readInt(ctx, "window.x")
	y, okY := c.readInt(ctx, "window.y")
	if okX && okY {
		geometry.X = &x
		geometry.Y = &y
	}
	return geometry
}

// readSize falls back to the default when the stored value is not a number.
func (c *Coordinator) readSize(ctx context.Context, path string, fallback int) int {
	value, err := c.settings.GetInt(ctx, path, fallback)
	if err != nil {
		c.logger.Warn("read setting failed", zap.String("path", path), zap.Error(err))
		return fallback
	}
	return value
}

func (c *Coordinator) readInt(ctx context.Context, path string) (int, bool) {
	var value int
	found, err := c.settings.Get(ctx, path, &value)
	if err != nil {
		c.logger.Warn("read setting failed", zap.String("path", path), zap.Error(err))
		return 0, false
	}
	return value, found
}

func (c *Coordinator) saveBounds(ctx context.Context) error {
	if c.window == nil {
		return nil
	}
	bounds := c.window.Bounds()
	if err := c.settings.Set(ctx, "window", bounds.Geometry()); err != nil {
		return fmt.Errorf("save window bounds: %w", err)
	}
	return nil
}

func (c *Coordinator) handleWindowOpen(url string) OpenAction {
	if security.IsExternalLinkAllowed(url) {
		if err := c.runtime.OpenExternal(url); err != nil {
			c.logger.Warn("open external link failed", zap.String("url", url), zap.Error(err))
		}
	}
	return OpenDeny
}

func (c *Coordinator) installExtensions(ctx context.Context) {
	if c.installer == nil {
		return
	}
	for _, ext := range c.extensions {
		go func(ext Extension) {
			if err := c.installer.Install(ctx, ext); err != nil {
				c.logger.Warn("An error occurred", zap.String("extension", ext.Name), zap.Error(err))
				return
			}
			c.logger.Debug("devtools extension ready", zap.String("extension", ext.Name))
		}(ext)
	}
}
