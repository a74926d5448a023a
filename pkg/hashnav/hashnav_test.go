package hashnav_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/config"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const routesFile = `
root = "/home"

[router]
lazyDestroy = true

[log]
level = "warn"

[[routes]]
path = "/home"

[[routes]]
path = "/games/:id"
widgets = ["Menu"]
preventStorage = true

[routes.provider]
trigger = "before"
cache = 30

[[routes]]
path = "/unbound"
`

type page struct{ name string }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hashnav.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func bindings(fetched *[]string) hashnav.Bindings {
	return hashnav.Bindings{
		Handler: func(route config.Route) (router.Handler, bool) {
			if route.Path == "/unbound" {
				return router.Handler{}, false
			}
			return router.Instance(&page{name: route.Path}), true
		},
		Provider: func(route config.Route) (router.ProviderFunc, bool) {
			return func(_ context.Context, _ router.Page, params router.Params) error {
				*fetched = append(*fetched, params.String("id"))
				return nil
			}, true
		},
	}
}

func TestNew_FromConfigFile(t *testing.T) {
	var fetched []string
	r, err := hashnav.New(hashnav.Options{
		ConfigFile: writeConfig(t, routesFile),
		LogLevel:   "error",
		Bindings:   bindings(&fetched),
	})
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Config().LazyDestroy)
	assert.Equal(t, []string{"/home", "/games/:id"}, r.Routes(), "unbound routes are skipped")
	assert.Equal(t, []string{"Menu"}, r.WidgetsFor("/games/:id"))
	assert.True(t, r.RouteModifiers("/games/:id").PreventStorage)

	binding, ok := r.Provider("/games/:id")
	require.True(t, ok)
	assert.Equal(t, router.TriggerBefore, binding.Trigger)
	assert.Equal(t, 30*time.Second, binding.Expires)

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	assert.Equal(t, "/home", r.ActiveRoute(), "root comes from the file")

	require.NoError(t, r.Navigate(ctx, "/games/12"))
	assert.Equal(t, []string{"12"}, fetched)
}

func TestNew_ConfigFromEnvironment(t *testing.T) {
	t.Setenv(constants.ConfigPathEnvVar, writeConfig(t, "[router]\nbacktrack = true\n"))

	r, err := hashnav.New(hashnav.Options{LogLevel: "error"})
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Config().Backtrack)
}

func TestNew_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := hashnav.New(hashnav.Options{ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid file", func(t *testing.T) {
		_, err := hashnav.New(hashnav.Options{ConfigFile: writeConfig(t, "colour = \"red\"\n")})
		assert.ErrorIs(t, err, config.ErrUnknownKeys)
	})

	t.Run("provider without a binding", func(t *testing.T) {
		_, err := hashnav.New(hashnav.Options{
			ConfigFile: writeConfig(t, routesFile),
			LogLevel:   "error",
			Bindings: hashnav.Bindings{
				Handler: func(config.Route) (router.Handler, bool) {
					return router.Callback(func(context.Context, router.Params) {}), true
				},
			},
		})
		assert.ErrorIs(t, err, router.ErrInvalidHandler)
		assert.True(t, router.IsConfigError(err))
	})
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv(constants.ConfigPathEnvVar, "")

	r, err := hashnav.New(hashnav.Options{})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, router.DefaultConfig(), r.Config())
	assert.Empty(t, r.Routes())
}

func TestRegister_RootAndCallbacks(t *testing.T) {
	r := router.New(router.Options{})
	defer r.Close()

	var calls []string
	f := config.File{
		Root:   "/start",
		Routes: []config.Route{{Path: "/start"}, {Path: "/log"}},
	}
	err := hashnav.Register(r, f, hashnav.Bindings{
		Handler: func(route config.Route) (router.Handler, bool) {
			return router.Callback(func(_ context.Context, _ router.Params) {
				calls = append(calls, route.Path)
			}), true
		},
	})
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, []string{"/start"}, calls)
}

func TestInit_LogLevels(t *testing.T) {
	ctx := context.Background()

	hashnav.Init(hashnav.Options{LogLevel: "warn"})
	assert.False(t, hashnav.GetLogger().Enabled(ctx, slog.LevelDebug))
	assert.True(t, hashnav.GetLogger().Enabled(ctx, slog.LevelWarn))

	hashnav.SetRawLogLevel("debug")
	assert.True(t, hashnav.GetLogger().Enabled(ctx, slog.LevelDebug))

	t.Setenv("ENVIRONMENT", constants.Development)
	hashnav.SetRawLogLevel("error")
	hashnav.Init(hashnav.Options{})
	assert.True(t, hashnav.GetLogger().Enabled(ctx, slog.LevelDebug), "development mode logs debug")
}
