//go:build linux

package autostart

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// desktopEntryPath is $XDG_CONFIG_HOME/autostart/<app>.desktop.
func desktopEntryPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "autostart", appName+".desktop"), nil
}

func Enabled() (bool, error) {
	path, err := desktopEntryPath()
	if err != nil {
		return false, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	expected, err := launchCommand()
	if err != nil {
		return false, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "Exec="); ok {
			return strings.TrimSpace(value) == expected, nil
		}
	}
	return false, scanner.Err()
}

func SetEnabled(enable bool) error {
	path, err := desktopEntryPath()
	if err != nil {
		return err
	}
	if !enable {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	command, err := launchCommand()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	entry := fmt.Sprintf("[Desktop Entry]\nType=Application\nName=%s\nExec=%s\nX-GNOME-Autostart-enabled=true\n", appName, command)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(entry), 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
