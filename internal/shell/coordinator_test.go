package shell

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"deskshell/internal/domain"
	"deskshell/internal/settings"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFirstLaunchOpensAtDefaultSizeWithoutPosition(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)

	if err := coord.Handle(context.Background(), NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}

	if len(rt.created) != 1 {
		t.Fatalf("expected one window, got %d", len(rt.created))
	}
	opts := rt.created[0]
	if opts.Width != 1440 || opts.Height != 960 {
		t.Fatalf("expected 1440x960, got %dx%d", opts.Width, opts.Height)
	}
	if opts.X != nil || opts.Y != nil {
		t.Fatalf("expected runtime placement, got x=%v y=%v", opts.X, opts.Y)
	}
	if opts.MinWidth != 1080 || opts.MinHeight != 720 {
		t.Fatalf("expected 1080x720 floor, got %dx%d", opts.MinWidth, opts.MinHeight)
	}
	win := rt.windows[0]
	if win.loadedFile != "index.html" || win.loadedURL != "" || win.devtools {
		t.Fatalf("packaged build should load the entry file only: %+v", win)
	}
	if coord.State() != StateVisible {
		t.Fatalf("expected visible state, got %s", coord.State())
	}
}

func TestRestartRestoresPersistedGeometry(t *testing.T) {
	store := newMemorySettings(t)
	ctx := context.Background()

	rt := &fakeRuntime{}
	first := newTestCoordinator(t, rt, store, nil)
	if err := first.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	rt.windows[0].bounds = domain.Bounds{X: 30, Y: 40, Width: 1200, Height: 800}
	if err := first.Handle(ctx, NewEvent(EventWindowResized)); err != nil {
		t.Fatalf("resize failed: %v", err)
	}

	restarted := &fakeRuntime{}
	second := newTestCoordinator(t, restarted, store, nil)
	if err := second.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready after restart failed: %v", err)
	}
	opts := restarted.created[0]
	if opts.Width != 1200 || opts.Height != 800 {
		t.Fatalf("expected 1200x800, got %dx%d", opts.Width, opts.Height)
	}
	if opts.X == nil || opts.Y == nil || *opts.X != 30 || *opts.Y != 40 {
		t.Fatalf("expected position 30,40, got %v,%v", opts.X, opts.Y)
	}
}

func TestStoredSizeBelowFloorIsLeftToRuntime(t *testing.T) {
	store := newMemorySettings(t)
	ctx := context.Background()
	if err := store.Set(ctx, "window", domain.Geometry{Width: 800, Height: 500}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, store, nil)
	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}

	opts := rt.created[0]
	if opts.Width != 800 || opts.Height != 500 {
		t.Fatalf("coordinator must pass stored size through, got %dx%d", opts.Width, opts.Height)
	}
	bounds := rt.windows[0].Bounds()
	if bounds.Width != 1080 || bounds.Height != 720 {
		t.Fatalf("runtime should clamp to the floor, got %dx%d", bounds.Width, bounds.Height)
	}
}

func TestNonNumericStoredSizeFallsBackToDefault(t *testing.T) {
	backend := &memoryBackend{rows: map[string]string{
		"window.width":  `"wide"`,
		"window.height": "700",
	}}
	store, err := settings.New(backend, domain.NewDefaultSettings())
	if err != nil {
		t.Fatalf("new settings failed: %v", err)
	}

	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, store, nil)
	if err := coord.Handle(context.Background(), NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	opts := rt.created[0]
	if opts.Width != domain.DefaultWindowWidth || opts.Height != 700 {
		t.Fatalf("expected %dx700, got %dx%d", domain.DefaultWindowWidth, opts.Width, opts.Height)
	}
}

func TestEveryMoveOrResizeIsPersisted(t *testing.T) {
	store := newMemorySettings(t)
	ctx := context.Background()
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, store, nil)
	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}

	sequence := []struct {
		kind   EventKind
		bounds domain.Bounds
	}{
		{EventWindowMoved, domain.Bounds{X: 10, Y: 10, Width: 1440, Height: 960}},
		{EventWindowResized, domain.Bounds{X: 10, Y: 10, Width: 1500, Height: 990}},
		{EventWindowMoved, domain.Bounds{X: -1920, Y: 0, Width: 1500, Height: 990}},
		{EventWindowResized, domain.Bounds{X: -1920, Y: 0, Width: 1100, Height: 730}},
		{EventWindowMoved, domain.Bounds{X: 0, Y: 0, Width: 1100, Height: 730}},
	}
	for i, step := range sequence {
		rt.windows[0].bounds = step.bounds
		if err := coord.Handle(ctx, NewEvent(step.kind)); err != nil {
			t.Fatalf("event %d failed: %v", i, err)
		}
		var got domain.Geometry
		if _, err := store.Get(ctx, "window", &got); err != nil {
			t.Fatalf("read back %d failed: %v", i, err)
		}
		if got.Width != step.bounds.Width || got.Height != step.bounds.Height || !got.HasPosition() ||
			*got.X != step.bounds.X || *got.Y != step.bounds.Y {
			t.Fatalf("event %d: persisted %+v, want %+v", i, got, step.bounds)
		}
	}
}

func TestSecondInstanceRestoresAndFocusesExistingWindow(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	ctx := context.Background()
	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	rt.windows[0].minimized = true

	ev := NewEvent(EventSecondInstance)
	ev.Args = []string{"deskshell", "--from-dock"}
	if err := coord.Handle(ctx, ev); err != nil {
		t.Fatalf("second instance failed: %v", err)
	}

	win := rt.windows[0]
	if win.restores != 1 || win.minimized {
		t.Fatalf("expected window to be restored once, restores=%d minimized=%v", win.restores, win.minimized)
	}
	if win.focuses != 1 {
		t.Fatalf("expected one focus, got %d", win.focuses)
	}
	if len(rt.created) != 1 {
		t.Fatalf("second instance must not create windows, got %d", len(rt.created))
	}
}

func TestSecondInstanceSkipsRestoreWhenNotMinimized(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	ctx := context.Background()
	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if err := coord.Handle(ctx, NewEvent(EventSecondInstance)); err != nil {
		t.Fatalf("second instance failed: %v", err)
	}
	if rt.windows[0].restores != 0 || rt.windows[0].focuses != 1 {
		t.Fatalf("unexpected restore/focus counts: %+v", rt.windows[0])
	}
}

func TestSecondInstanceWithoutWindowIsNoop(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	if err := coord.Handle(context.Background(), NewEvent(EventSecondInstance)); err != nil {
		t.Fatalf("second instance failed: %v", err)
	}
	if len(rt.created) != 0 {
		t.Fatalf("no window may be created, got %d", len(rt.created))
	}
}

func TestWindowOpenPolicy(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	if err := coord.Handle(context.Background(), NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	handler := rt.windows[0].openHandler
	if handler == nil {
		t.Fatalf("window open handler was not installed")
	}

	if action := handler("https://example.com/docs?a=1#frag"); action != OpenDeny {
		t.Fatalf("https link must still be denied in-app, got %v", action)
	}
	if len(rt.opened) != 1 || rt.opened[0] != "https://example.com/docs?a=1#frag" {
		t.Fatalf("external handler should receive the exact URL, got %v", rt.opened)
	}

	for _, link := range []string{"http://example.com", "file:///etc/hosts", "javascript:void(0)"} {
		if action := handler(link); action != OpenDeny {
			t.Fatalf("link %q must be denied, got %v", link, action)
		}
	}
	if len(rt.opened) != 1 {
		t.Fatalf("non-secure links must not reach the external handler, got %v", rt.opened)
	}
	if len(rt.created) != 1 {
		t.Fatalf("links must never create windows, got %d", len(rt.created))
	}
}

func TestExternalOpenFailureIsSwallowed(t *testing.T) {
	rt := &fakeRuntime{openErr: errors.New("no browser")}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	if err := coord.Handle(context.Background(), NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if action := rt.windows[0].openHandler("https://example.com"); action != OpenDeny {
		t.Fatalf("expected deny, got %v", action)
	}
}

func TestAllClosedThenActivateRecreatesFromPersistedGeometry(t *testing.T) {
	store := newMemorySettings(t)
	ctx := context.Background()
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, store, func(o *Options) { o.QuitOnAllClosed = false })

	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	rt.windows[0].bounds = domain.Bounds{X: 120, Y: 80, Width: 1300, Height: 870}
	if err := coord.Handle(ctx, NewEvent(EventWindowMoved)); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	rt.closeAll()
	if err := coord.Handle(ctx, NewEvent(EventAllWindowsClosed)); err != nil {
		t.Fatalf("all closed failed: %v", err)
	}
	if rt.quits != 0 {
		t.Fatalf("keep-alive platform must not quit")
	}
	if coord.State() != StateAbsent || coord.Window() != nil {
		t.Fatalf("expected absent state with no handle, got %s", coord.State())
	}

	if err := coord.Handle(ctx, NewEvent(EventActivate)); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if len(rt.created) != 2 {
		t.Fatalf("activate should recreate the window, created=%d", len(rt.created))
	}
	opts := rt.created[1]
	if opts.Width != 1300 || opts.Height != 870 || opts.X == nil || opts.Y == nil || *opts.X != 120 || *opts.Y != 80 {
		t.Fatalf("recreated window ignored persisted geometry: %+v", opts)
	}
	if coord.State() != StateVisible {
		t.Fatalf("expected visible after activate, got %s", coord.State())
	}
}

func TestAllClosedQuitsWhenPlatformExpectsIt(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), func(o *Options) { o.QuitOnAllClosed = true })
	ctx := context.Background()
	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	rt.closeAll()
	if err := coord.Handle(ctx, NewEvent(EventAllWindowsClosed)); err != nil {
		t.Fatalf("all closed failed: %v", err)
	}
	if rt.quits != 1 {
		t.Fatalf("expected quit, got %d", rt.quits)
	}
}

func TestActivateWithOpenWindowFocusesFirst(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	ctx := context.Background()
	if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	other := &fakeWindow{}
	rt.windows = append(rt.windows, other)

	if err := coord.Handle(ctx, NewEvent(EventActivate)); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if rt.windows[0].focuses != 1 || other.focuses != 0 {
		t.Fatalf("expected only the first window to be focused")
	}
	if len(rt.created) != 1 {
		t.Fatalf("activate with windows must not create one")
	}
}

func TestReadyTwiceKeepsSingleWindow(t *testing.T) {
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := coord.Handle(ctx, NewEvent(EventReady)); err != nil {
			t.Fatalf("ready %d failed: %v", i, err)
		}
	}
	if len(rt.created) != 1 {
		t.Fatalf("expected a single window, got %d", len(rt.created))
	}
}

func TestWindowCreationFailureReturnsToAbsent(t *testing.T) {
	rt := &fakeRuntime{newErr: errors.New("no display")}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), nil)
	err := coord.Handle(context.Background(), NewEvent(EventReady))
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("expected creation error, got %v", err)
	}
	if coord.State() != StateAbsent || coord.Window() != nil {
		t.Fatalf("expected absent state after failure, got %s", coord.State())
	}
}

func TestDevelopmentBuildLoadsDevServerAndOpensDevTools(t *testing.T) {
	rt := &fakeRuntime{}
	installer := &fakeInstaller{fail: map[string]error{"redux": errors.New("not reachable")}, calls: make(chan string, 4)}
	core, logs := observer.New(zap.WarnLevel)
	coord := newTestCoordinator(t, rt, newMemorySettings(t), func(o *Options) {
		o.Content = domain.ContentSource{Mode: domain.ContentModeURL, Target: "http://127.0.0.1:3344"}
		o.Development = true
		o.Installer = installer
		o.Extensions = []Extension{{ID: "react", Name: "React Developer Tools"}, {ID: "redux", Name: "Redux DevTools"}}
		o.Logger = zap.New(core)
	})

	if err := coord.Handle(context.Background(), NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	win := rt.windows[0]
	if win.loadedURL != "http://127.0.0.1:3344" || win.loadedFile != "" {
		t.Fatalf("expected dev server URL, got url=%q file=%q", win.loadedURL, win.loadedFile)
	}
	if !win.devtools {
		t.Fatalf("expected devtools to be opened in development")
	}
	if coord.State() != StateVisible {
		t.Fatalf("extension failures must not affect the window, state=%s", coord.State())
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case id := <-installer.calls:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("installer calls missing, saw %v", seen)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("An error occurred").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the failed extension to be logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPackagedBuildSkipsExtensions(t *testing.T) {
	rt := &fakeRuntime{}
	installer := &fakeInstaller{calls: make(chan string, 4)}
	coord := newTestCoordinator(t, rt, newMemorySettings(t), func(o *Options) {
		o.Installer = installer
		o.Extensions = []Extension{{ID: "react", Name: "React Developer Tools"}}
	})
	if err := coord.Handle(context.Background(), NewEvent(EventReady)); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	select {
	case id := <-installer.calls:
		t.Fatalf("packaged build installed %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunDispatchesPostedEventsInOrder(t *testing.T) {
	store := newMemorySettings(t)
	rt := &fakeRuntime{}
	coord := newTestCoordinator(t, rt, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()

	coord.Post(NewEvent(EventReady))
	coord.Post(NewEvent(EventActivate))

	deadline := time.Now().Add(2 * time.Second)
	for coord.Status().EventsHandled < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("events were not handled: %+v", coord.Status())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	status := coord.Status()
	if status.State != "visible" || !status.WindowPresent {
		t.Fatalf("unexpected status: %+v", status)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.created) != 1 || rt.windows[0].focuses != 1 {
		t.Fatalf("expected ready then activate-focus, created=%d focuses=%d", len(rt.created), rt.windows[0].focuses)
	}

	// Posting after the loop stopped must not block.
	coord.Post(NewEvent(EventActivate))
}

func TestUnknownEventIsAnError(t *testing.T) {
	coord := newTestCoordinator(t, &fakeRuntime{}, newMemorySettings(t), nil)
	if err := coord.Handle(context.Background(), Event{Kind: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}

func newTestCoordinator(t *testing.T, rt *fakeRuntime, store Settings, tweak func(*Options)) *Coordinator {
	t.Helper()
	opts := Options{
		Runtime:         rt,
		Settings:        store,
		Content:         domain.ContentSource{Mode: domain.ContentModeFile, Target: "index.html"},
		QuitOnAllClosed: true,
	}
	if tweak != nil {
		tweak(&opts)
	}
	coord, err := New(opts)
	if err != nil {
		t.Fatalf("new coordinator failed: %v", err)
	}
	return coord
}

type memoryBackend struct {
	mu   sync.Mutex
	rows map[string]string
}

func (m *memoryBackend) ListSettings(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out, nil
}

func (m *memoryBackend) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = value
	return nil
}

func (m *memoryBackend) ReplaceSettings(_ context.Context, key string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.rows {
		if k == key || strings.HasPrefix(k, key+".") {
			delete(m.rows, k)
		}
	}
	for k, v := range values {
		m.rows[k] = v
	}
	return nil
}

func newMemorySettings(t *testing.T) *settings.Store {
	t.Helper()
	store, err := settings.New(&memoryBackend{rows: map[string]string{}}, domain.NewDefaultSettings())
	if err != nil {
		t.Fatalf("new settings failed: %v", err)
	}
	return store
}

type fakeRuntime struct {
	mu      sync.Mutex
	created []WindowOptions
	windows []*fakeWindow
	opened  []string
	quits   int
	newErr  error
	openErr error
}

func (r *fakeRuntime) NewWindow(opts WindowOptions) (Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.newErr != nil {
		return nil, r.newErr
	}
	r.created = append(r.created, opts)
	bounds := domain.Bounds{Width: max(opts.Width, opts.MinWidth), Height: max(opts.Height, opts.MinHeight)}
	if opts.X != nil && opts.Y != nil {
		bounds.X, bounds.Y = *opts.X, *opts.Y
	}
	win := &fakeWindow{bounds: bounds}
	r.windows = append(r.windows, win)
	return win, nil
}

func (r *fakeRuntime) Windows() []Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Window, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, w)
	}
	return out
}

func (r *fakeRuntime) OpenExternal(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return r.openErr
	}
	r.opened = append(r.opened, url)
	return nil
}

func (r *fakeRuntime) Quit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quits++
}

func (r *fakeRuntime) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = nil
}

type fakeWindow struct {
	bounds      domain.Bounds
	minimized   bool
	restores    int
	focuses     int
	loadedURL   string
	loadedFile  string
	devtools    bool
	openHandler func(string) OpenAction
}

func (w *fakeWindow) Bounds() domain.Bounds { return w.bounds }

func (w *fakeWindow) IsMinimized() bool { return w.minimized }

func (w *fakeWindow) Restore() {
	w.restores++
	w.minimized = false
}

func (w *fakeWindow) Focus() { w.focuses++ }

func (w *fakeWindow) LoadURL(url string) error {
	w.loadedURL = url
	return nil
}

func (w *fakeWindow) LoadFile(path string) error {
	w.loadedFile = path
	return nil
}

func (w *fakeWindow) OpenDevTools() { w.devtools = true }

func (w *fakeWindow) SetWindowOpenHandler(h func(string) OpenAction) { w.openHandler = h }

type fakeInstaller struct {
	fail  map[string]error
	calls chan string
}

func (f *fakeInstaller) Install(_ context.Context, ext Extension) error {
	f.calls <- ext.ID
	return f.fail[ext.ID]
}

func TestNewEventCarriesUniqueID(t *testing.T) {
	first, second := NewEvent(EventActivate), NewEvent(EventActivate)
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct event ids, got %q and %q", first.ID, second.ID)
	}
}
