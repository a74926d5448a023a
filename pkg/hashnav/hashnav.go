// Package hashnav is a hash router for applications whose views are
// long-lived, stateful pages. It resolves a location hash to a registered
// page, creates, reuses or destroys page instances according to policy and
// sequences data providers around page transitions.
//
// Most applications call Init once, build a router with New and register
// their pages on it. The router itself lives in the router subpackage.
package hashnav

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/config"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Options configures Init and New.
type Options struct {
	LogPath    string // Full path for log file including filename (creates parent directories)
	LogLevel   string // Application log level: debug, info, warn or error
	ConfigFile string // TOML configuration file, falls back to HASHNAV_CONFIG

	Location          router.Location        // Defaults to an in-memory location
	Views             router.ViewHost        // Receives page attach and visibility calls
	Widgets           router.WidgetHost      // Application widgets, if any
	MetricsRegisterer prometheus.Registerer  // Router collectors, nil keeps them private
	TracerProvider    trace.TracerProvider   // Defaults to the global provider
	OnStateChange     func(state string)     // Called with the new application state
	OnRefocus         func(page router.Page) // Called after a page became active
	OnClose           func()                 // Called when stepping back has nowhere to go
	Bindings          Bindings               // Resolves handlers for routes declared in ConfigFile
}

// Bindings resolves what a configuration file cannot express: the page or
// callback behind a declared route and the function behind a declared
// provider.
type Bindings struct {
	Handler  func(route config.Route) (router.Handler, bool)
	Provider func(route config.Route) (router.ProviderFunc, bool)
}

// Init sets up logging. Call it before New.
func Init(options Options) {
	logPath := options.LogPath
	if logPath == "" {
		logPath = os.Getenv(constants.LogPathEnvVar)
	}
	if logPath != "" {
		internal.SetLogPath(logPath)
	}

	if os.Getenv(constants.DebugEnvVar) != "" {
		internal.SetInternalLogLevel(slog.LevelDebug)
	} else {
		internal.SetInternalLogLevel(slog.LevelError)
	}

	switch {
	case options.LogLevel != "":
		internal.SetRawLogLevel(options.LogLevel)
	case constants.IsDevMode():
		internal.SetLogLevel(slog.LevelDebug)
	}
}

// New builds a router. When a configuration file is given, its [router]
// table becomes the router's configuration and its routes are registered
// through options.Bindings.
func New(options Options) (*router.Router, error) {
	path := options.ConfigFile
	if path == "" {
		path = os.Getenv(constants.ConfigPathEnvVar)
	}

	file := config.Default()
	if path != "" {
		f, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		file = f
		if f.Log.Level != "" && options.LogLevel == "" {
			internal.SetRawLogLevel(f.Log.Level)
		}
	}

	cfg := file.Router
	r := router.New(router.Options{
		Config:            &cfg,
		Location:          options.Location,
		Views:             options.Views,
		Widgets:           options.Widgets,
		Logger:            internal.GetInternalLogger(),
		MetricsRegisterer: options.MetricsRegisterer,
		TracerProvider:    options.TracerProvider,
		OnStateChange:     options.OnStateChange,
		OnRefocus:         options.OnRefocus,
		OnClose:           options.OnClose,
	})

	if err := Register(r, file, options.Bindings); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Register adds the routes declared in f to r. Routes without a bound
// handler are skipped with a warning; a declared provider without a bound
// function is an error.
func Register(r *router.Router, f config.File, b Bindings) error {
	var errs []error

	for _, route := range f.Routes {
		var handler router.Handler
		bound := false
		if b.Handler != nil {
			handler, bound = b.Handler(route)
		}
		if !bound {
			internal.GetInternalLogger().Warn("no handler bound for configured route", "route", route.Path)
			continue
		}

		register := r.Route
		if route.Path == f.Root {
			register = r.Root
		}
		if err := register(route.Path, handler, route.Modifiers()); err != nil {
			errs = append(errs, err)
			continue
		}

		if len(route.Widgets) > 0 {
			r.Widget(route.Path, route.Widgets...)
		}

		if route.Provider == nil {
			continue
		}
		var fn router.ProviderFunc
		ok := false
		if b.Provider != nil {
			fn, ok = b.Provider(route)
		}
		if !ok {
			errs = append(errs, router.NewConfigError("provider", route.Path,
				fmt.Errorf("%w: no provider bound", router.ErrInvalidHandler)))
			continue
		}
		r.On(route.Path, fn, route.Provider.Expires(), route.Provider.Trigger)
	}

	return errors.Join(errs...)
}

// SetLogPath sets the full path for the log file, including filename.
// Call before Init() to take effect during initialization.
func SetLogPath(path string) {
	internal.SetLogPath(path)
}

// GetLogger returns the application logger for structured logging.
func GetLogger() *slog.Logger {
	return internal.GetLogger()
}

// SetLogLevel sets the minimum log level for the application logger.
func SetLogLevel(level slog.Level) {
	internal.SetLogLevel(level)
}

// SetRawLogLevel parses and sets the log level from a string (e.g., "debug", "info", "error").
func SetRawLogLevel(level string) {
	internal.SetRawLogLevel(level)
}

// Close flushes and closes the log file.
func Close() {
	internal.CloseLogger()
}
