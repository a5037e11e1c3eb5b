package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"deskshell/internal/domain"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppID            = "deskshell"
	// SingleInstanceID names the lock wails holds for the primary instance.
	SingleInstanceID = "deskshell-desktop-single-instance"
	AppTitle         = "Main window"
	defaultAppFolder = "deskshell"
	entryFile        = "index.html"
)

// Config is read from unprefixed environment variables.
type Config struct {
	Debug bool `envconfig:"DEBUG" default:"false"`

	DevServerHost string `envconfig:"VITE_DEV_SERVER_HOST" default:"127.0.0.1"`
	DevServerPort int    `envconfig:"VITE_DEV_SERVER_PORT" default:"3344"`

	DataDir  string `envconfig:"DESKSHELL_DATA_DIR"`
	LogLevel string `envconfig:"DESKSHELL_LOG_LEVEL" default:"info"`

	BackendEnabled bool `envconfig:"DESKSHELL_BACKEND_ENABLED" default:"true"`
	BackendPort    int  `envconfig:"DESKSHELL_BACKEND_PORT" default:"0"`

	AllowMulti bool `envconfig:"DESKSHELL_ALLOW_MULTI" default:"false"`
	// QuitOnAllClosed overrides the platform policy when set.
	QuitOnAllClosed *bool `envconfig:"DESKSHELL_QUIT_ON_ALL_CLOSED"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = DefaultDataDir()
	}
	cfg.DataDir = filepath.Clean(cfg.DataDir)
	return &cfg, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "settings.db")
}

func (c *Config) DevServerURL() string {
	return "http://" + net.JoinHostPort(c.DevServerHost, strconv.Itoa(c.DevServerPort))
}

// Content picks what the window loads: the bundled entry for packaged builds
// or when DEBUG is set, the dev server otherwise.
func (c *Config) Content(packaged bool) domain.ContentSource {
	if packaged || c.Debug {
		return domain.ContentSource{Mode: domain.ContentModeFile, Target: entryFile}
	}
	return domain.ContentSource{Mode: domain.ContentModeURL, Target: c.DevServerURL()}
}

// ShouldQuitOnAllClosed reports whether closing the last window ends the
// process on goos. macOS applications stay alive windowless.
func (c *Config) ShouldQuitOnAllClosed(goos string) bool {
	if c.QuitOnAllClosed != nil {
		return *c.QuitOnAllClosed
	}
	return goos != "darwin"
}

func (c *Config) BackendAddr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(c.BackendPort))
}

func DefaultDataDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return filepath.Join(localAppData, defaultAppFolder)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, defaultAppFolder)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+defaultAppFolder)
}
