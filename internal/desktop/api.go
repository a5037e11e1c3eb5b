package desktop

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// windowAPI is the slice of the wails runtime the adapter drives.
type windowAPI interface {
	Show()
	Hide()
	Unminimise()
	IsMinimised() bool
	SetTitle(title string)
	SetSize(width, height int)
	SetMinSize(width, height int)
	SetPosition(x, y int)
	Center()
	Position() (int, int)
	Size() (int, int)
	SetAlwaysOnTop(on bool)
	Reload()
	Quit()
}

type wailsAPI struct {
	ctx context.Context
}

func (w wailsAPI) Show()                        { runtime.WindowShow(w.ctx) }
func (w wailsAPI) Hide()                        { runtime.WindowHide(w.ctx) }
func (w wailsAPI) Unminimise()                  { runtime.WindowUnminimise(w.ctx) }
func (w wailsAPI) IsMinimised() bool            { return runtime.WindowIsMinimised(w.ctx) }
func (w wailsAPI) SetTitle(title string)        { runtime.WindowSetTitle(w.ctx, title) }
func (w wailsAPI) SetSize(width, height int)    { runtime.WindowSetSize(w.ctx, width, height) }
func (w wailsAPI) SetMinSize(width, height int) { runtime.WindowSetMinSize(w.ctx, width, height) }
func (w wailsAPI) SetPosition(x, y int)         { runtime.WindowSetPosition(w.ctx, x, y) }
func (w wailsAPI) Center()                      { runtime.WindowCenter(w.ctx) }
func (w wailsAPI) Position() (int, int)         { return runtime.WindowGetPosition(w.ctx) }
func (w wailsAPI) Size() (int, int)             { return runtime.WindowGetSize(w.ctx) }
func (w wailsAPI) SetAlwaysOnTop(on bool)       { runtime.WindowSetAlwaysOnTop(w.ctx, on) }
func (w wailsAPI) Reload()                      { runtime.WindowReloadApp(w.ctx) }
func (w wailsAPI) Quit()                        { runtime.Quit(w.ctx) }
