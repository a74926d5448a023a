// Package input turns key presses into router navigation. Digit keys capture
// the Nth registered route and the back key steps through the history.
//
// Keys come from a Source: EvdevSource reads a Linux input device and
// LineSource reads key names from text, one per line.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
)

// ErrUnsupportedPlatform is returned by sources that need an operating
// system facility the current platform lacks.
var ErrUnsupportedPlatform = errors.New("input source not supported on this platform")

// Navigator is the part of a router key input drives. *router.Router
// satisfies it.
type Navigator interface {
	Capture(ctx context.Context, key constants.NavKey) (bool, error)
	Step(ctx context.Context, direction int) (bool, error)
}

// Source produces keys until ctx is done or its input ends.
type Source interface {
	Run(ctx context.Context, keys chan<- constants.NavKey) error
}

// Dispatcher forwards keys to a Navigator.
type Dispatcher struct {
	nav    Navigator
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses the internal logger.
func NewDispatcher(nav Navigator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = internal.GetInternalLogger()
	}
	return &Dispatcher{nav: nav, logger: logger}
}

// Dispatch applies one key and reports whether the router handled it.
func (d *Dispatcher) Dispatch(ctx context.Context, key constants.NavKey) (bool, error) {
	switch {
	case key == constants.NavKeyBack:
		return d.nav.Step(ctx, -1)
	case key.IsDigit():
		return d.nav.Capture(ctx, key)
	default:
		return false, nil
	}
}

// Run reads keys from src and dispatches them until src stops or ctx is
// done. Navigation errors are logged and do not stop the loop.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make(chan constants.NavKey)
	srcErr := make(chan error, 1)
	go func() {
		defer close(keys)
		srcErr <- src.Run(ctx, keys)
	}()

	for key := range keys {
		handled, err := d.Dispatch(ctx, key)
		if err != nil {
			d.logger.Error("key navigation failed", "key", key.GetName(), "error", err)
			continue
		}
		d.logger.Debug("key dispatched", "key", key.GetName(), "handled", handled)
	}

	err := <-srcErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ParseKey maps a key name onto a NavKey: "0" to "9", or "back"/"esc".
func ParseKey(name string) (constants.NavKey, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "back", "esc", "escape", "backspace":
		return constants.NavKeyBack, true
	}

	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || n > 9 {
		return constants.NavKeyUnassigned, false
	}
	return constants.NavKey0 + constants.NavKey(n), true
}

// LineSource reads one key name per line. Unknown names are logged and
// skipped.
type LineSource struct {
	Reader io.Reader
	Logger *slog.Logger
}

func (s LineSource) Run(ctx context.Context, keys chan<- constants.NavKey) error {
	logger := s.Logger
	if logger == nil {
		logger = internal.GetInternalLogger()
	}

	scanner := bufio.NewScanner(s.Reader)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, ok := ParseKey(line)
		if !ok {
			logger.Warn("unknown key", "input", line)
			continue
		}
		select {
		case keys <- key:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading keys: %w", err)
	}
	return nil
}
