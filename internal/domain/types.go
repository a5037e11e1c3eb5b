package domain

const (
	DefaultWindowWidth  = 1440
	DefaultWindowHeight = 960
	MinWindowWidth      = 1080
	MinWindowHeight     = 720
)

// Geometry is the persisted shape of the main window. X and Y stay nil until
// the window has been moved or resized at least once.
type Geometry struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
}

// HasPosition reports whether both coordinates were persisted.
func (g Geometry) HasPosition() bool {
	return g.X != nil && g.Y != nil
}

// Bounds is what the windowing runtime reports for a live window.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b Bounds) Geometry() Geometry {
	x, y := b.X, b.Y
	return Geometry{Width: b.Width, Height: b.Height, X: &x, Y: &y}
}

// DefaultSettings is the record the settings store starts from.
type DefaultSettings struct {
	Window Geometry `json:"window"`
}

func NewDefaultSettings() DefaultSettings {
	return DefaultSettings{Window: Geometry{Width: DefaultWindowWidth, Height: DefaultWindowHeight}}
}

type ContentMode string

const (
	ContentModeFile ContentMode = "file"
	ContentModeURL  ContentMode = "url"
)

// ContentSource selects what the main window renders: the bundled entry file
// of a packaged build or the development server URL.
type ContentSource struct {
	Mode   ContentMode `json:"mode"`
	Target string      `json:"target"`
}

func (c ContentSource) IsDevServer() bool {
	return c.Mode == ContentModeURL
}

type ShellStatus struct {
	State           string        `json:"state"`
	WindowPresent   bool          `json:"window_present"`
	QuitOnAllClosed bool          `json:"quit_on_all_closed"`
	Content         ContentSource `json:"content"`
	EventsHandled   int64         `json:"events_handled"`
}
