package router_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigger_Ordering(t *testing.T) {
	tests := []struct {
		trigger router.TriggerType
		want    []string
	}{
		{
			trigger: router.TriggerBefore,
			want:    []string{"fetch b", "hide a", "show b", "detach a", "dataProvided b", "changed b"},
		},
		{
			trigger: router.TriggerAfter,
			want:    []string{"hide a", "show b", "detach a", "fetch b", "dataProvided b", "changed b"},
		},
		{
			trigger: router.TriggerOn,
			want:    []string{"detach a", "fetch b", "show b", "dataProvided b", "changed b"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			f := newFixture(t, router.Config{LazyDestroy: true, UpdateHash: true})
			ctx := context.Background()

			require.NoError(t, f.r.Route("/a", router.Constructor(factoryFor("a", f.rec, nil))))
			require.NoError(t, f.r.Route("/b", router.Instance(newPage("b", f.rec))))
			f.r.On("/b", recordingProvider(f.rec, nil), time.Minute, tt.trigger)

			require.NoError(t, f.r.Navigate(ctx, "/a"))
			start := len(f.rec.list())

			require.NoError(t, f.r.Navigate(ctx, "/b"))
			assert.Equal(t, tt.want, f.rec.list()[start:])
		})
	}
}

func TestTrigger_OnHoldsLoadingState(t *testing.T) {
	var mu sync.Mutex
	var states []string
	f := newFixture(t, router.DefaultConfig(), func(o *router.Options) {
		o.OnStateChange = func(s string) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		}
	})

	var during string
	require.NoError(t, f.r.Route("/b", router.Instance(newPage("b", f.rec))))
	f.r.On("/b", func(context.Context, router.Page, router.Params) error {
		during = f.r.State()
		return nil
	}, time.Minute, router.TriggerOn)

	require.NoError(t, f.r.Navigate(context.Background(), "/b"))

	assert.Equal(t, constants.StateLoading, during)
	assert.Equal(t, constants.StateIdle, f.r.State())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{constants.StateLoading, constants.StateIdle}, states)
}

func TestTrigger_BeforeStampsExpiryAfterTransition(t *testing.T) {
	f := newFixture(t, router.DefaultConfig())
	list := newPage("list", f.rec)
	detail := newPage("detail", f.rec)

	require.NoError(t, f.r.Route("/list", router.Instance(list)))
	require.NoError(t, f.r.Route("/detail/:id", router.Instance(detail)))
	f.r.Before("/detail/:id", recordingProvider(f.rec, nil), 30*time.Second)

	require.NoError(t, f.r.Navigate(context.Background(), "/list"))

	var expiryAtShow time.Time
	shown := false
	f.host.onVisible = func(p router.Page, visible bool) {
		if p != router.Page(detail) || !visible {
			return
		}
		meta, ok := f.r.PageMeta(detail)
		require.True(t, ok)
		expiryAtShow = meta.ExpiresAt
		shown = true
	}

	require.NoError(t, f.r.Navigate(context.Background(), "/detail/42"))

	require.True(t, shown)
	assert.True(t, expiryAtShow.IsZero(), "expiry is set once the transition finished")

	meta, ok := f.r.PageMeta(detail)
	require.True(t, ok)
	assert.Equal(t, f.clock.Now().Add(30*time.Second), meta.ExpiresAt)
	assert.Equal(t, "42", detail.Data().Params.String("id"))
	assert.Equal(t, []string{"dataProvided", "changed"}, detail.Events())
}

func TestProvider_FailureLoadsErrorPage(t *testing.T) {
	for _, trigger := range []router.TriggerType{router.TriggerBefore, router.TriggerAfter, router.TriggerOn} {
		t.Run(string(trigger), func(t *testing.T) {
			f := newFixture(t, router.DefaultConfig())
			boom := errors.New("backend unavailable")
			detail := newPage("detail", f.rec)
			errPage := newPage("error", f.rec)

			require.NoError(t, f.r.Route("/detail/:id", router.Instance(detail)))
			require.NoError(t, f.r.Route(constants.RouteError, router.Instance(errPage)))
			f.r.On("/detail/:id", recordingProvider(f.rec, boom), time.Minute, trigger)

			require.NoError(t, f.r.Navigate(context.Background(), "/detail/7"))

			pe := errPage.Err()
			require.NotNil(t, pe)
			assert.Equal(t, router.Page(detail), pe.Page)
			assert.Equal(t, "/detail/:id", pe.Route)
			assert.Equal(t, "/detail/7", pe.Hash)
			assert.ErrorIs(t, pe, boom)

			assert.Equal(t, constants.RouteError, f.r.ActiveRoute())
			assert.Same(t, errPage, f.r.ActivePage())
			assert.Equal(t, constants.StateIdle, f.r.State())
			assert.True(t, f.r.IsPageExpired(detail))
			assert.True(t, f.host.isVisible(errPage))
			assert.False(t, f.host.isVisible(detail))
			assert.NotContains(t, detail.Events(), "dataProvided")
		})
	}
}

func TestProvider_PanicIsReportedAsPageError(t *testing.T) {
	f := newFixture(t, router.DefaultConfig())
	errPage := newPage("error", f.rec)

	require.NoError(t, f.r.Route("/p", router.Instance(newPage("p", f.rec))))
	require.NoError(t, f.r.Route(constants.RouteError, router.Instance(errPage)))
	f.r.Before("/p", func(context.Context, router.Page, router.Params) error {
		panic("decoder exploded")
	}, time.Minute)

	require.NoError(t, f.r.Navigate(context.Background(), "/p"))

	pe := errPage.Err()
	require.NotNil(t, pe)
	assert.Contains(t, pe.Error(), "decoder exploded")
	assert.Equal(t, constants.RouteError, f.r.ActiveRoute())
}

func TestProvider_FailureWithoutErrorRoute(t *testing.T) {
	f := newFixture(t, router.DefaultConfig())
	p := newPage("p", f.rec)

	require.NoError(t, f.r.Route("/p", router.Instance(p)))
	f.r.Before("/p", recordingProvider(f.rec, errors.New("offline")), time.Minute)

	require.NoError(t, f.r.Navigate(context.Background(), "/p"))

	assert.Equal(t, "/p", f.r.ActiveRoute(), "the page stays active without an error route")
	assert.True(t, f.r.IsPageExpired(p))
	assert.NotContains(t, p.Events(), "dataProvided")
}

func TestProvider_RetriesAfterFailure(t *testing.T) {
	f := newFixture(t, router.DefaultConfig())
	p := newPage("p", f.rec)
	fail := true

	require.NoError(t, f.r.Route("/p", router.Instance(p)))
	require.NoError(t, f.r.Route("/q", router.Instance(newPage("q", f.rec))))
	f.r.Before("/p", func(context.Context, router.Page, router.Params) error {
		if fail {
			return errors.New("flaky")
		}
		return nil
	}, time.Hour)

	ctx := context.Background()
	require.NoError(t, f.r.Navigate(ctx, "/p"))
	fail = false
	require.NoError(t, f.r.Navigate(ctx, "/q"))
	require.NoError(t, f.r.Navigate(ctx, "/p"))

	assert.False(t, f.r.IsPageExpired(p))
	assert.Contains(t, p.Events(), "dataProvided")
}

func TestProvider_UnsupportedTrigger(t *testing.T) {
	f := newFixture(t, router.DefaultConfig())
	errPage := newPage("error", f.rec)
	called := false

	require.NoError(t, f.r.Route("/p", router.Instance(newPage("p", f.rec))))
	require.NoError(t, f.r.Route(constants.RouteError, router.Instance(errPage)))
	f.r.On("/p", func(context.Context, router.Page, router.Params) error {
		called = true
		return nil
	}, time.Minute, "sideways")

	require.NoError(t, f.r.Navigate(context.Background(), "/p"))

	assert.False(t, called)
	pe := errPage.Err()
	require.NotNil(t, pe)
	assert.ErrorIs(t, pe, router.ErrUnsupportedTrigger)
}

func TestProvider_ReceivesParamsCopy(t *testing.T) {
	f := newFixture(t, router.DefaultConfig())
	p := newPage("p", f.rec)

	require.NoError(t, f.r.Route("/p/:id", router.Instance(p)))
	f.r.Before("/p/:id", func(_ context.Context, page router.Page, params router.Params) error {
		assert.Equal(t, router.Page(p), page)
		assert.Equal(t, "3", params.String("id"))
		assert.Equal(t, "grid", params.String("view"))
		params["id"] = "mutated"
		return nil
	}, time.Minute)

	require.NoError(t, f.r.Navigate(context.Background(), "/p/3", router.WithArgs(map[string]any{"view": "grid"})))
	assert.Equal(t, "3", p.Data().Params.String("id"))
}
