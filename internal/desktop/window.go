package desktop

import (
	"errors"
	"sync"
	"time"

	"deskshell/internal/domain"
	"deskshell/internal/shell"

	"go.uber.org/zap"
)

type Window struct {
	rt  *Runtime
	api windowAPI

	stop     chan struct{}
	stopOnce sync.Once

	mu          sync.Mutex
	openHandler func(string) shell.OpenAction
}

func newWindow(rt *Runtime, api windowAPI) *Window {
	return &Window{rt: rt, api: api, stop: make(chan struct{})}
}

func (w *Window) Bounds() domain.Bounds {
	x, y := w.api.Position()
	width, height := w.api.Size()
	return domain.Bounds{X: x, Y: y, Width: width, Height: height}
}

func (w *Window) IsMinimized() bool {
	return w.api.IsMinimised()
}

func (w *Window) Restore() {
	w.api.Unminimise()
}

// Focus raises the window; toggling always-on-top is the portable way to
// bring a wails window to the front.
func (w *Window) Focus() {
	w.api.Show()
	w.api.Unminimise()
	w.api.SetAlwaysOnTop(true)
	w.api.SetAlwaysOnTop(false)
}

func (w *Window) LoadURL(url string) error {
	if w.rt.content == nil {
		return errors.New("no content handler configured")
	}
	if err := w.rt.content.UseProxy(url); err != nil {
		return err
	}
	w.api.Reload()
	return nil
}

func (w *Window) LoadFile(path string) error {
	if w.rt.content == nil || w.rt.assets == nil {
		return errors.New("no bundled assets configured")
	}
	if err := w.rt.content.UseFiles(w.rt.assets, path); err != nil {
		return err
	}
	w.api.Reload()
	return nil
}

// OpenDevTools cannot open the inspector itself. wails opens it once, for the
// first window of a debug build, so a recreated window only gets it through
// the context menu.
func (w *Window) OpenDevTools() {
	w.rt.logger.Info(inspectorNotice)
}

const inspectorNotice = "inspector opens with the first window only; use Inspect Element to reopen it"

func (w *Window) SetWindowOpenHandler(handler func(url string) shell.OpenAction) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.openHandler = handler
}

func (w *Window) requestOpen(url string) shell.OpenAction {
	w.mu.Lock()
	handler := w.openHandler
	w.mu.Unlock()
	if handler == nil {
		return shell.OpenDeny
	}
	return handler(url)
}

func (w *Window) stopWatching() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// watchBounds polls the native window and reports position and size changes.
// wails v2 has no move or resize callbacks.
func (w *Window) watchBounds(interval time.Duration, last domain.Bounds) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}
		if w.api.IsMinimised() {
			continue
		}
		current := w.Bounds()
		for _, kind := range boundsChanges(last, current) {
			w.rt.logger.Debug("window bounds changed", zap.String("event", string(kind)),
				zap.Int("x", current.X), zap.Int("y", current.Y),
				zap.Int("width", current.Width), zap.Int("height", current.Height))
			w.rt.post(shell.NewEvent(kind))
		}
		last = current
	}
}

func boundsChanges(prev, cur domain.Bounds) []shell.EventKind {
	var kinds []shell.EventKind
	if prev.X != cur.X || prev.Y != cur.Y {
		kinds = append(kinds, shell.EventWindowMoved)
	}
	if prev.Width != cur.Width || prev.Height != cur.Height {
		kinds = append(kinds, shell.EventWindowResized)
	}
	return kinds
}
