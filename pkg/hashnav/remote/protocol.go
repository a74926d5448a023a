// Package remote exposes a router over HTTP and websockets.
//
// Server serves a small control API (state, navigate, step, capture, focus
// requests and Prometheus metrics) and a websocket at /ws that streams every
// completed navigation and accepts the same commands. Location is the client
// side of that websocket: a router.Location whose hash lives in another
// process.
package remote

import "github.com/BrandonKowalski/hashnav/pkg/hashnav/router"

// Message types exchanged over /ws.
const (
	TypeState      = "state"
	TypeNavigation = "navigation"
	TypeNavigate   = "navigate"
	TypeStep       = "step"
	TypeRemote     = "remote"
	TypeError      = "error"
)

// Message is one websocket frame. Which fields are set depends on Type.
type Message struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	Hash      string         `json:"hash,omitempty"`
	Route     string         `json:"route,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Direction int            `json:"direction,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Name      string         `json:"name,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// State is the body of GET /state.
type State struct {
	Route   string   `json:"route"`
	Hash    string   `json:"hash"`
	Active  string   `json:"active"`
	State   string   `json:"state"`
	Widget  string   `json:"widget,omitempty"`
	History []string `json:"history"`
	Routes  []string `json:"routes"`

	Navigations int64 `json:"navigations"`
}

// NavigateRequest is the body of POST /navigate.
type NavigateRequest struct {
	Hash      string         `json:"hash"`
	Args      map[string]any `json:"args,omitempty"`
	Reload    bool           `json:"reload,omitempty"`
	KeepAlive bool           `json:"keepAlive,omitempty"`
	NoHistory bool           `json:"noHistory,omitempty"`
}

// Options converts the request into navigate options.
func (n NavigateRequest) Options() []router.NavigateOption {
	var opts []router.NavigateOption
	if len(n.Args) > 0 {
		opts = append(opts, router.WithArgs(n.Args))
	}
	if n.Reload {
		opts = append(opts, router.WithReload())
	}
	if n.KeepAlive {
		opts = append(opts, router.WithKeepAlive())
	}
	if n.NoHistory {
		opts = append(opts, router.WithoutHistory())
	}
	return opts
}

// StepRequest is the body of POST /step.
type StepRequest struct {
	Direction int `json:"direction"`
}

// RemoteRequest is the body of POST /remote.
type RemoteRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Handled is the response of commands that report whether the router acted.
type Handled struct {
	Handled bool `json:"handled"`
}
