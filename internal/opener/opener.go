// Package opener hands URLs to the user's default handler outside the app.
package opener

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkg/browser"
	"go.uber.org/zap"
)

var errPortalUnsupported = errors.New("desktop portal not available on this platform")

type Opener struct {
	logger   *zap.Logger
	portal   func(ctx context.Context, url string) error
	fallback func(url string) error
}

func New(logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{
		logger:   logger,
		portal:   openViaPortal,
		fallback: browser.OpenURL,
	}
}

// Open asks the desktop portal first and falls back to the platform browser
// launcher.
func (o *Opener) Open(ctx context.Context, url string) error {
	portalErr := o.portal(ctx, url)
	if portalErr == nil {
		return nil
	}
	if !errors.Is(portalErr, errPortalUnsupported) {
		o.logger.Debug("portal open failed, using browser fallback", zap.Error(portalErr))
	}
	if err := o.fallback(url); err != nil {
		return fmt.Errorf("open %s: %w", url, errors.Join(portalErr, err))
	}
	return nil
}
