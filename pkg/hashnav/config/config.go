// Package config loads hashnav configuration files.
//
// A configuration file is TOML. The [router] table maps onto router.Config,
// [log] configures logging and every [[routes]] entry declares a route with
// its modifiers, widgets and an optional provider binding:
//
//	root = "/home"
//
//	[router]
//	lazyDestroy = true
//	backtrack = true
//
//	[log]
//	level = "debug"
//
//	[[routes]]
//	path = "/detail/:id"
//	widgets = ["Menu"]
//	preventStorage = true
//
//	[routes.provider]
//	trigger = "before"
//	cache = 30
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/BurntSushi/toml"
)

var (
	// ErrUnknownKeys indicates the file holds keys no field decodes.
	ErrUnknownKeys = errors.New("unknown configuration keys")

	// ErrInvalidRoute indicates a [[routes]] entry that cannot be registered.
	ErrInvalidRoute = errors.New("invalid route entry")
)

// Log configures the application logger.
type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

// Provider declares a data provider binding for a route. Cache is in seconds.
type Provider struct {
	Trigger router.TriggerType `toml:"trigger"`
	Cache   int                `toml:"cache"`
}

// Expires returns the cache duration.
func (p Provider) Expires() time.Duration {
	return time.Duration(p.Cache) * time.Second
}

// Route is one [[routes]] entry.
type Route struct {
	Path           string    `toml:"path"`
	Widgets        []string  `toml:"widgets"`
	PreventStorage bool      `toml:"preventStorage"`
	ClearHistory   bool      `toml:"clearHistory"`
	StoreLast      bool      `toml:"storeLast"`
	Store          *bool     `toml:"store"`
	Provider       *Provider `toml:"provider"`
}

// Modifiers returns the route's history modifiers.
func (r Route) Modifiers() router.Modifiers {
	return router.Modifiers{
		PreventStorage: r.PreventStorage,
		ClearHistory:   r.ClearHistory,
		StoreLast:      r.StoreLast,
		Store:          r.Store,
	}
}

// File is a decoded configuration file.
type File struct {
	Root   string        `toml:"root"`
	Router router.Config `toml:"router"`
	Log    Log           `toml:"log"`
	Routes []Route       `toml:"routes"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Router: router.DefaultConfig(),
		Log:    Log{Level: "info"},
	}
}

// Parse decodes data on top of Default. Keys that map onto no field are an
// error.
func Parse(data []byte) (File, error) {
	f := Default()

	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return File{}, fmt.Errorf("decoding config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return File{}, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading config: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks the route table.
func (f File) Validate() error {
	var errs []error
	seen := make(map[string]bool)

	for i, r := range f.Routes {
		path := strings.TrimRight(r.Path, "/")
		switch {
		case r.Path == "":
			errs = append(errs, fmt.Errorf("%w: routes[%d] has no path", ErrInvalidRoute, i))
			continue
		case seen[path]:
			errs = append(errs, fmt.Errorf("%w: routes[%d] repeats %q", ErrInvalidRoute, i, r.Path))
		}
		seen[path] = true

		if r.Provider == nil {
			continue
		}
		switch r.Provider.Trigger {
		case "", router.TriggerOn, router.TriggerBefore, router.TriggerAfter:
		default:
			errs = append(errs, fmt.Errorf("%w: routes[%d] %w %q",
				ErrInvalidRoute, i, router.ErrUnsupportedTrigger, r.Provider.Trigger))
		}
		if r.Provider.Cache < 0 {
			errs = append(errs, fmt.Errorf("%w: routes[%d] has a negative cache", ErrInvalidRoute, i))
		}
	}

	return errors.Join(errs...)
}
