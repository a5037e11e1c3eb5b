//go:build linux

package opener

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	portalDest   = "org.freedesktop.portal.Desktop"
	portalPath   = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalMethod = "org.freedesktop.portal.OpenURI.OpenURI"
)

func openViaPortal(ctx context.Context, url string) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}
	defer conn.Close()

	var handle dbus.ObjectPath
	call := conn.Object(portalDest, portalPath).CallWithContext(ctx, portalMethod, 0, "", url, map[string]dbus.Variant{})
	if err := call.Store(&handle); err != nil {
		return fmt.Errorf("portal OpenURI: %w", err)
	}
	return nil
}
