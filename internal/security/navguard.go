package security

import (
	"net/url"
	"strings"
)

// IsExternalLinkAllowed reports whether a link the page tried to open in a
// new window may be handed to the OS. Only https URLs with a host qualify.
func IsExternalLinkAllowed(raw string) bool {
	clean := strings.TrimSpace(raw)
	if clean == "" || clean != raw {
		return false
	}
	parsed, err := url.Parse(clean)
	if err != nil {
		return false
	}
	if parsed.Scheme != "https" {
		return false
	}
	return parsed.Hostname() != ""
}
