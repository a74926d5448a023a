//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	evdev "github.com/holoplot/go-evdev"
)

// keyCodes maps evdev key codes onto navigation keys. The numeric keypad
// mirrors the number row.
var keyCodes = map[evdev.EvCode]constants.NavKey{
	evdev.KEY_0:         constants.NavKey0,
	evdev.KEY_1:         constants.NavKey1,
	evdev.KEY_2:         constants.NavKey2,
	evdev.KEY_3:         constants.NavKey3,
	evdev.KEY_4:         constants.NavKey4,
	evdev.KEY_5:         constants.NavKey5,
	evdev.KEY_6:         constants.NavKey6,
	evdev.KEY_7:         constants.NavKey7,
	evdev.KEY_8:         constants.NavKey8,
	evdev.KEY_9:         constants.NavKey9,
	evdev.KEY_KP0:       constants.NavKey0,
	evdev.KEY_KP1:       constants.NavKey1,
	evdev.KEY_KP2:       constants.NavKey2,
	evdev.KEY_KP3:       constants.NavKey3,
	evdev.KEY_KP4:       constants.NavKey4,
	evdev.KEY_KP5:       constants.NavKey5,
	evdev.KEY_KP6:       constants.NavKey6,
	evdev.KEY_KP7:       constants.NavKey7,
	evdev.KEY_KP8:       constants.NavKey8,
	evdev.KEY_KP9:       constants.NavKey9,
	evdev.KEY_ESC:       constants.NavKeyBack,
	evdev.KEY_BACKSPACE: constants.NavKeyBack,
	evdev.KEY_BACK:      constants.NavKeyBack,
}

// keyPress is the value of an EV_KEY event for a press. Releases are 0 and
// autorepeat is 2.
const keyPress = 1

// KeyFor maps an input event onto a navigation key. Only key presses map.
func KeyFor(ev *evdev.InputEvent) (constants.NavKey, bool) {
	if ev == nil || ev.Type != evdev.EV_KEY || ev.Value != keyPress {
		return constants.NavKeyUnassigned, false
	}
	key, ok := keyCodes[ev.Code]
	return key, ok
}

// EvdevSource reads key presses from a Linux input device such as
// /dev/input/event0.
type EvdevSource struct {
	Path   string
	Logger *slog.Logger
}

func (s EvdevSource) Run(ctx context.Context, keys chan<- constants.NavKey) error {
	logger := s.Logger
	if logger == nil {
		logger = internal.GetInternalLogger()
	}

	dev, err := evdev.Open(s.Path)
	if err != nil {
		return fmt.Errorf("opening input device %s: %w", s.Path, err)
	}

	name, _ := dev.Name()
	logger.Info("reading input device", "path", s.Path, "name", name)

	// Closing the device unblocks ReadOne.
	stop := context.AfterFunc(ctx, func() { dev.Close() })
	defer func() {
		if stop() {
			dev.Close()
		}
	}()

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading input device %s: %w", s.Path, err)
		}

		key, ok := KeyFor(ev)
		if !ok {
			continue
		}
		select {
		case keys <- key:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
