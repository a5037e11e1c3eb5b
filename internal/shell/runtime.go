package shell

import (
	"context"

	"deskshell/internal/domain"
)

// OpenAction is the answer to a page's request to open a new window.
type OpenAction int

// OpenDeny is the only answer the shell gives; allowed links are handed to
// the system browser instead.
const OpenDeny OpenAction = 0

// WindowOptions is what the coordinator asks the runtime to construct.
// X and Y are nil when the runtime should pick the placement.
type WindowOptions struct {
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
	X         *int
	Y         *int
}

// Window is a live top-level window owned by the runtime.
type Window interface {
	Bounds() domain.Bounds
	IsMinimized() bool
	Restore()
	Focus()
	LoadURL(url string) error
	LoadFile(path string) error
	OpenDevTools()
	SetWindowOpenHandler(handler func(url string) OpenAction)
}

// Runtime is the host windowing runtime.
type Runtime interface {
	NewWindow(opts WindowOptions) (Window, error)
	// Windows lists open windows in enumeration order.
	Windows() []Window
	OpenExternal(url string) error
	Quit()
}

// Settings is the persisted record the coordinator reads geometry from and
// writes it back to.
type Settings interface {
	Get(ctx context.Context, path string, out any) (bool, error)
	GetInt(ctx context.Context, path string, fallback int) (int, error)
	Set(ctx context.Context, path string, value any) error
}

// Extension is a developer tool installed in development builds.
type Extension struct {
	ID   string
	Name string
}

type Installer interface {
	Install(ctx context.Context, ext Extension) error
}
