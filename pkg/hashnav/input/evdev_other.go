//go:build !linux

package input

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
)

// EvdevSource reads key presses from a Linux input device. It is unavailable
// on this platform.
type EvdevSource struct {
	Path   string
	Logger *slog.Logger
}

func (s EvdevSource) Run(context.Context, chan<- constants.NavKey) error {
	return fmt.Errorf("evdev %s: %w", s.Path, ErrUnsupportedPlatform)
}
