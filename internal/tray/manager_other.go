//go:build !windows

package tray

import "errors"

// The upstream systray main loop competes with the webview's GTK and Cocoa
// loops, so the tray only runs on Windows.
var errTrayUnsupported = errors.New("system tray manager is implemented for Windows in this build")

type Manager struct{}

func New(_ []byte, _ string, _ Actions) *Manager {
	return &Manager{}
}

func (m *Manager) Start() error {
	return errTrayUnsupported
}

func (m *Manager) Stop() {}

func (m *Manager) Available() bool {
	return false
}

func (m *Manager) Reason() string {
	return errTrayUnsupported.Error()
}
