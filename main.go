package main

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"deskshell/internal/appicon"
	"deskshell/internal/config"
	"deskshell/internal/domain"
	"deskshell/internal/logging"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"go.uber.org/zap"
)

//go:embed all:frontend/dist
var assets embed.FS

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	development := !isPackaged

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Development = development
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	frontend, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		return err
	}
	app := NewApp(cfg, logger, frontend, development)

	icon, err := appicon.AppPNG(256)
	if err != nil {
		logger.Warn("window icon render failed", zap.Error(err))
	}

	err = wails.Run(&options.App{
		Title:       config.AppTitle,
		Width:       domain.DefaultWindowWidth,
		Height:      domain.DefaultWindowHeight,
		MinWidth:    domain.MinWindowWidth,
		MinHeight:   domain.MinWindowHeight,
		StartHidden: true,
		AssetServer: &assetserver.Options{
			Handler: app.content,
		},
		BackgroundColour:   options.NewRGB(16, 20, 24),
		OnStartup:          app.startup,
		OnBeforeClose:      app.beforeClose,
		OnShutdown:         app.shutdown,
		SingleInstanceLock: app.singleInstanceLock(),
		Bind: []interface{}{
			app,
		},
		Logger:   logging.NewWailsLogger(logger),
		LogLevel: logging.WailsLevel(cfg.LogLevel),
		Debug: options.Debug{
			OpenInspectorOnStartup: cfg.Content(isPackaged).IsDevServer(),
		},
		Menu: app.applicationMenu(runtime.GOOS),
		Mac:  macOptions(),
		Linux: &linux.Options{
			Icon: icon,
		},
	})
	if err != nil {
		return fmt.Errorf("run application: %w", err)
	}
	return nil
}
