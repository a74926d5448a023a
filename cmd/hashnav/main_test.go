package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/input"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routesFile = `
root = "/home"

[router]
numberNavigation = true

[log]
level = "error"

[[routes]]
path = "/home"

[[routes]]
path = "/games/:id"

[routes.provider]
trigger = "after"
cache = 10

[[routes]]
path = "/settings"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hashnav.toml")
	require.NoError(t, os.WriteFile(path, []byte(routesFile), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Commit:     none")
}

func TestMatch(t *testing.T) {
	out, err := execute(t, "match", "--config", writeConfig(t), "/games/12", "/nowhere", "/home")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"HASH", "ROUTE", "PARAMS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"/games/12", "/games/:id", "id=12"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"/nowhere", "-", "-"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"/home", "/home", "-"}, strings.Fields(lines[3]))
}

func TestMatch_ConfigFromEnvironment(t *testing.T) {
	t.Setenv("HASHNAV_CONFIG", writeConfig(t))

	out, err := execute(t, "match", "/settings")
	require.NoError(t, err)
	assert.Contains(t, out, "/settings")
}

func TestMatch_Errors(t *testing.T) {
	t.Setenv("HASHNAV_CONFIG", "")

	_, err := execute(t, "match", "/home")
	assert.ErrorContains(t, err, "configuration file is required")

	_, err = execute(t, "match", "--config", filepath.Join(t.TempDir(), "missing.toml"), "/home")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "match", "--config", writeConfig(t))
	assert.Error(t, err, "at least one hash is required")
}

func TestFormatParams(t *testing.T) {
	assert.Equal(t, "-", formatParams(nil))
	assert.Equal(t, "a=1 b=2", formatParams(map[string]string{"b": "2", "a": "1"}))
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrs := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, serveOptions{
			Config:   writeConfig(t),
			Addr:     "127.0.0.1:0",
			Input:    "stdin",
			Watch:    true,
			Debounce: 50 * time.Millisecond,
		}, strings.NewReader("3\n"), func(addr string) { addrs <- addr })
	}()

	var base string
	select {
	case addr := <-addrs:
		base = "http://" + addr
	case err := <-done:
		t.Fatalf("serve stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	state := func() remote.State {
		resp, err := http.Get(base + "/state")
		require.NoError(t, err)
		defer resp.Body.Close()
		var s remote.State
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
		return s
	}

	require.Eventually(t, func() bool {
		return state().Route == "/settings"
	}, 5*time.Second, 20*time.Millisecond, "the key read from stdin selects the third route")
	assert.Equal(t, []string{"home"}, state().History)

	resp, err := http.Post(base+"/navigate", "application/json", strings.NewReader(`{"hash":"/games/5"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/games/:id", state().Route)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_ListenError(t *testing.T) {
	err := serve(context.Background(), serveOptions{Addr: "256.0.0.1:0"}, nil, nil)
	assert.ErrorContains(t, err, "listening on")
}

func TestKeySource(t *testing.T) {
	assert.Nil(t, keySource("", nil, nil))
	assert.IsType(t, input.LineSource{}, keySource("stdin", strings.NewReader(""), nil))
	assert.IsType(t, input.EvdevSource{}, keySource("/dev/input/event3", nil, nil))
}
