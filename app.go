package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sync"
	"time"

	"deskshell/internal/appicon"
	"deskshell/internal/autostart"
	"deskshell/internal/config"
	"deskshell/internal/content"
	"deskshell/internal/desktop"
	"deskshell/internal/devtools"
	"deskshell/internal/domain"
	"deskshell/internal/mcpserver"
	"deskshell/internal/opener"
	"deskshell/internal/settings"
	"deskshell/internal/shell"
	"deskshell/internal/store/sqlite"
	"deskshell/internal/tray"

	"github.com/wailsapp/wails/v2/pkg/options"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var errNotStarted = errors.New("shell is not started")

// App struct
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	development bool

	content *content.Handler
	desktop *desktop.Runtime

	mu          sync.Mutex
	store       *sqlite.Store
	settings    *settings.Store
	coordinator *shell.Coordinator
	cancelLoop  context.CancelFunc
	loopDone    chan struct{}

	mcpServer   *mcpserver.Server
	trayManager *tray.Manager
}

// NewApp prepares the content handler and the window runtime. Nothing is read
// from disk until startup, so a launch that loses the single-instance lock
// exits without touching the settings database.
func NewApp(cfg *config.Config, logger *zap.Logger, assets fs.FS, development bool) *App {
	a := &App{
		cfg:         cfg,
		logger:      logger,
		development: development,
		content:     content.NewHandler(logger.Named("content")),
	}
	a.desktop = desktop.NewRuntime(desktop.Options{
		Logger:  logger.Named("desktop"),
		Content: a.content,
		Assets:  assets,
		Opener:  opener.New(logger.Named("opener")),
		Post:    a.post,
	})
	return a
}

// open reads the settings database and builds the lifecycle coordinator over
// it. A database that cannot be read is moved aside and recreated.
func (a *App) open(ctx context.Context) error {
	store, recovery, err := sqlite.OpenWithRecovery(ctx, a.cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open settings database: %w", err)
	}
	if recovery.Recovered {
		a.logger.Warn("settings database was unreadable and has been reset",
			zap.String("moved_to", recovery.MovedTo), zap.Error(recovery.Reason))
	}
	prefs, err := settings.New(store, domain.NewDefaultSettings())
	if err != nil {
		_ = store.Close()
		return err
	}
	if err := prefs.EnsureDefaults(ctx); err != nil {
		a.logger.Warn("writing default settings failed", zap.Error(err))
	}

	opts := shell.Options{
		Runtime:         a.desktop,
		Settings:        prefs,
		Logger:          a.logger.Named("shell"),
		Title:           config.AppTitle,
		Content:         a.cfg.Content(!a.development),
		Development:     a.development,
		QuitOnAllClosed: a.cfg.ShouldQuitOnAllClosed(runtime.GOOS),
	}
	if a.development {
		opts.Installer = devtools.NewInstaller(a.cfg.DevServerURL())
		opts.Extensions = devtools.DefaultExtensions()
	}
	coordinator, err := shell.New(opts)
	if err != nil {
		_ = store.Close()
		return err
	}

	a.mu.Lock()
	a.store = store
	a.settings = prefs
	a.coordinator = coordinator
	a.mu.Unlock()
	return nil
}

// startup is called when the app starts. The context is handed to the
// desktop runtime so it can call the wails runtime methods.
func (a *App) startup(ctx context.Context) {
	a.desktop.Bind(ctx)
	if err := a.open(ctx); err != nil {
		a.logger.Error("startup failed", zap.Error(err))
		a.desktop.Quit()
		return
	}
	a.startLoop(ctx)
	a.startMCP()
	a.startTray()
	a.post(shell.NewEvent(shell.EventReady))
}

func (a *App) beforeClose(ctx context.Context) (prevent bool) {
	return a.desktop.BeforeClose(ctx)
}

func (a *App) shutdown(context.Context) {
	a.stopLoop()
	a.desktop.Shutdown()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.stopMCP(stopCtx); err != nil {
		a.logger.Warn("backend stop failed", zap.Error(err))
	}
	a.stopTray()

	a.mu.Lock()
	store := a.store
	a.store = nil
	a.mu.Unlock()
	if store != nil {
		if err := store.Checkpoint(stopCtx); err != nil {
			a.logger.Warn("settings checkpoint failed", zap.Error(err))
		}
		_ = store.Close()
	}
}

func (a *App) lifecycle() *shell.Coordinator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coordinator
}

// post hands ev to the coordinator. Events that arrive before startup has
// opened the settings are dropped.
func (a *App) post(ev shell.Event) {
	coordinator := a.lifecycle()
	if coordinator == nil {
		a.logger.Debug("lifecycle not started, event dropped", zap.String("event", string(ev.Kind)))
		return
	}
	coordinator.Post(ev)
}

// onSecondInstanceLaunch runs on the primary instance when a later launch
// hits the wails single-instance lock.
func (a *App) onSecondInstanceLaunch(data options.SecondInstanceData) {
	ev := shell.NewEvent(shell.EventSecondInstance)
	ev.Args = data.Args
	ev.Cwd = data.WorkingDirectory
	a.post(ev)
}

// singleInstanceLock is nil when several instances may run side by side.
func (a *App) singleInstanceLock() *options.SingleInstanceLock {
	if a.cfg.AllowMulti {
		a.logger.Info("single instance lock disabled")
		return nil
	}
	return &options.SingleInstanceLock{
		UniqueId:               config.SingleInstanceID,
		OnSecondInstanceLaunch: a.onSecondInstanceLaunch,
	}
}

func (a *App) startLoop(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.mu.Lock()
	coordinator := a.coordinator
	a.cancelLoop = cancel
	a.loopDone = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := coordinator.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("lifecycle loop stopped", zap.Error(err))
		}
	}()
}

func (a *App) stopLoop() {
	a.mu.Lock()
	cancel, done := a.cancelLoop, a.loopDone
	a.cancelLoop = nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *App) startMCP() {
	if !a.cfg.BackendEnabled {
		a.logger.Debug("backend disabled")
		return
	}
	srv := mcpserver.New(&shellService{app: a}, version)
	if err := srv.Start(a.cfg.BackendAddr()); err != nil {
		a.logger.Warn("backend start failed", zap.String("addr", a.cfg.BackendAddr()), zap.Error(err))
		return
	}
	a.mcpServer = srv
	a.logger.Info("backend listening", zap.String("endpoint", srv.Endpoint()))
}

func (a *App) stopMCP(ctx context.Context) error {
	if a.mcpServer == nil {
		return nil
	}
	err := a.mcpServer.Stop(ctx)
	a.mcpServer = nil
	return err
}

func (a *App) startTray() {
	icon, err := appicon.TrayICO()
	if err != nil {
		a.logger.Warn("tray icon render failed", zap.Error(err))
	}
	a.trayManager = tray.New(icon, config.AppID, tray.Actions{
		Show:             a.ShowWindow,
		Quit:             a.ExitApp,
		AutostartEnabled: autostart.Enabled,
		SetAutostart:     autostart.SetEnabled,
		OnError: func(err error) {
			a.logger.Warn("tray action failed", zap.Error(err))
		},
	})
	if err := a.trayManager.Start(); err != nil {
		a.logger.Info("system tray unavailable", zap.Error(err))
	}
}

func (a *App) stopTray() {
	if a.trayManager == nil {
		return
	}
	a.trayManager.Stop()
}

// ShowWindow brings the main window back, recreating it when it was closed.
func (a *App) ShowWindow() {
	a.post(shell.NewEvent(shell.EventActivate))
}

func (a *App) ExitApp() {
	a.desktop.Quit()
}

// RequestNewWindow is called by the page in place of window.open. It reports
// whether the page may open the window itself, which it never may.
func (a *App) RequestNewWindow(url string) bool {
	return a.desktop.RequestOpen(url) != shell.OpenDeny
}

func (a *App) Status() domain.ShellStatus {
	if coordinator := a.lifecycle(); coordinator != nil {
		return coordinator.Status()
	}
	return domain.ShellStatus{
		State:           shell.StateAbsent.String(),
		QuitOnAllClosed: a.cfg.ShouldQuitOnAllClosed(runtime.GOOS),
		Content:         a.cfg.Content(!a.development),
	}
}

func (a *App) AutostartEnabled() (bool, error) {
	return autostart.Enabled()
}

func (a *App) SetAutostartEnabled(enable bool) (bool, error) {
	if err := autostart.SetEnabled(enable); err != nil {
		return false, err
	}
	return autostart.Enabled()
}

// shellService exposes the running shell to the local backend.
type shellService struct {
	app *App
}

func (s *shellService) prefs() (*settings.Store, error) {
	s.app.mu.Lock()
	defer s.app.mu.Unlock()
	if s.app.settings == nil {
		return nil, errNotStarted
	}
	return s.app.settings, nil
}

func (s *shellService) Geometry(ctx context.Context) (domain.Geometry, error) {
	prefs, err := s.prefs()
	if err != nil {
		return domain.Geometry{}, err
	}
	geometry := domain.NewDefaultSettings().Window
	if _, err := prefs.Get(ctx, "window", &geometry); err != nil {
		return domain.Geometry{}, err
	}
	return geometry, nil
}

func (s *shellService) Settings(ctx context.Context) (map[string]string, error) {
	prefs, err := s.prefs()
	if err != nil {
		return nil, err
	}
	return prefs.Snapshot(ctx)
}

func (s *shellService) Status(context.Context) (domain.ShellStatus, error) {
	return s.app.Status(), nil
}

func (s *shellService) Focus(context.Context) error {
	s.app.ShowWindow()
	return nil
}
