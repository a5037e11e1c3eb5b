//go:build windows

package tray

import (
	"errors"
	"sync"
	"time"

	"github.com/getlantern/systray"
)

type Manager struct {
	icon    []byte
	title   string
	actions Actions

	mu         sync.RWMutex
	started    bool
	showItem   *systray.MenuItem
	loginItem  *systray.MenuItem
	quitItem   *systray.MenuItem
	done       chan struct{}
	clickWG    sync.WaitGroup
	shutdownMu sync.Mutex
}

func New(icon []byte, title string, actions Actions) *Manager {
	return &Manager{icon: icon, title: title, actions: actions}
}

func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.done = make(chan struct{})
	m.mu.Unlock()

	readyCh := make(chan struct{})
	go systray.Run(func() {
		if len(m.icon) > 0 {
			systray.SetIcon(m.icon)
		}
		systray.SetTitle(m.title)
		systray.SetTooltip(m.title)

		m.showItem = systray.AddMenuItem("Show Window", "Show and focus the main window")
		m.loginItem = systray.AddMenuItem("Start at login", "Launch when you sign in")
		systray.AddSeparator()
		m.quitItem = systray.AddMenuItem("Quit", "Quit "+m.title)
		m.refreshLoginItem()

		m.mu.RLock()
		done := m.done
		m.mu.RUnlock()

		m.clickWG.Add(1)
		go m.clickLoop(done)

		close(readyCh)
	}, func() {})

	select {
	case <-readyCh:
		return nil
	case <-time.After(8 * time.Second):
		return errors.New("tray start timeout")
	}
}

func (m *Manager) clickLoop(done <-chan struct{}) {
	defer m.clickWG.Done()
	for {
		select {
		case <-done:
			return
		case <-m.showItem.ClickedCh:
			if m.actions.Show != nil {
				m.actions.Show()
			}
		case <-m.loginItem.ClickedCh:
			m.toggleLogin()
		case <-m.quitItem.ClickedCh:
			if m.actions.Quit != nil {
				m.actions.Quit()
			}
			return
		}
	}
}

func (m *Manager) toggleLogin() {
	if m.actions.SetAutostart == nil {
		return
	}
	enable := !m.loginItem.Checked()
	if err := m.actions.SetAutostart(enable); err != nil {
		m.report(err)
	}
	m.refreshLoginItem()
}

func (m *Manager) refreshLoginItem() {
	if m.loginItem == nil || m.actions.AutostartEnabled == nil {
		return
	}
	enabled, err := m.actions.AutostartEnabled()
	if err != nil {
		m.report(err)
		return
	}
	if enabled {
		m.loginItem.Check()
	} else {
		m.loginItem.Uncheck()
	}
}

func (m *Manager) report(err error) {
	if m.actions.OnError != nil {
		m.actions.OnError(err)
	}
}

func (m *Manager) Stop() {
	m.shutdownMu.Lock()
	defer m.shutdownMu.Unlock()
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	done := m.done
	m.mu.Unlock()

	close(done)
	systray.Quit()
	m.clickWG.Wait()

	m.mu.Lock()
	m.started = false
	m.showItem = nil
	m.loginItem = nil
	m.quitItem = nil
	m.mu.Unlock()
}

func (m *Manager) Available() bool {
	return true
}

func (m *Manager) Reason() string {
	return ""
}
