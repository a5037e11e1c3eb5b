package main

import (
	"deskshell/internal/config"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
)

// applicationMenu is the macOS menu bar. The process outlives its window
// there, and "Show Main Window" is how the user gets one back. Other
// platforms have no menu bar.
func (a *App) applicationMenu(goos string) *menu.Menu {
	if goos != "darwin" {
		return nil
	}
	bar := menu.NewMenu()

	appMenu := bar.AddSubmenu(config.AppID)
	appMenu.AddText("Quit "+config.AppID, keys.CmdOrCtrl("q"), func(*menu.CallbackData) {
		a.ExitApp()
	})

	bar.Append(menu.EditMenu())

	windowMenu := bar.AddSubmenu("Window")
	windowMenu.AddText("Show Main Window", keys.CmdOrCtrl("0"), func(*menu.CallbackData) {
		a.ShowWindow()
	})
	return bar
}

// macOptions gives the window an inset, hidden title bar over translucent
// content.
func macOptions() *mac.Options {
	return &mac.Options{
		TitleBar:             mac.TitleBarHiddenInset(),
		WindowIsTranslucent:  true,
		WebviewIsTransparent: true,
	}
}
