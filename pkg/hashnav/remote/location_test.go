package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/remote"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_MirrorsRemoteRouter(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, h.r.Navigate(ctx, "/home"))

	loc, err := remote.DialLocation(ctx, h.wsURL(), nil, quiet())
	require.NoError(t, err)
	defer loc.Close()
	assert.Equal(t, "/home", loc.Hash())

	mirror := router.New(router.Options{Location: loc, Logger: quiet()})
	defer mirror.Close()
	for _, p := range []string{"/home", "/games/:id", "/settings"} {
		require.NoError(t, mirror.Route(p, router.Instance(&page{name: p})))
	}

	require.NoError(t, mirror.Start(ctx))
	assert.Equal(t, "/home", mirror.ActiveRoute())

	// Remote navigation is followed locally
	require.NoError(t, h.r.Navigate(ctx, "/settings"))
	require.Eventually(t, func() bool {
		return mirror.ActiveRoute() == "/settings"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "/settings", loc.Hash())

	// Local navigation drives the remote router
	require.NoError(t, mirror.Navigate(ctx, "/games/4"))
	assert.Equal(t, "/games/:id", mirror.ActiveRoute())
	require.Eventually(t, func() bool {
		return h.r.ActiveRoute() == "/games/:id"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"settings"}, mirror.History(), "external location changes do not push history")
}

func TestLocation_SubscribeAndCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	loc, err := remote.DialLocation(ctx, h.wsURL(), nil, quiet())
	require.NoError(t, err)
	defer loc.Close()

	seen := make(chan string, 4)
	stop := loc.Subscribe(func(hash string) { seen <- hash })

	require.NoError(t, h.r.Navigate(ctx, "/home"))
	select {
	case got := <-seen:
		assert.Equal(t, "/home", got)
	case <-time.After(5 * time.Second):
		t.Fatal("remote navigation was not reported")
	}

	loc.SetHash("/settings")
	assert.Equal(t, "/settings", <-seen, "writes notify synchronously")
	require.Eventually(t, func() bool {
		return h.r.ActiveRoute() == "/settings"
	}, 5*time.Second, 10*time.Millisecond)

	// Let the server finish broadcasting the navigation it just ran
	time.Sleep(50 * time.Millisecond)

	stop()
	require.NoError(t, h.r.Navigate(ctx, "/games/2"))
	require.Eventually(t, func() bool { return loc.Hash() == "/games/2" }, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, seen)
}

func TestLocation_DoneAfterServerClose(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	loc, err := remote.DialLocation(ctx, h.wsURL(), nil, quiet())
	require.NoError(t, err)

	h.srv.Close()
	select {
	case <-loc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("location did not notice the closed server")
	}
	loc.Close()
}

func TestDialLocation_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := remote.DialLocation(ctx, "ws://127.0.0.1:1/ws", nil, quiet())
	assert.Error(t, err)
}
