// Package autostart registers the application to launch at user login.
package autostart

import (
	"os"
	"strings"
)

const appName = "deskshell"

// launchCommand is the quoted path of the running executable.
func launchCommand() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return quote(execPath), nil
}

func quote(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}
	if strings.HasPrefix(clean, `"`) && strings.HasSuffix(clean, `"`) {
		return clean
	}
	return `"` + clean + `"`
}
