//go:build !linux

package opener

import "context"

func openViaPortal(context.Context, string) error {
	return errPortalUnsupported
}
