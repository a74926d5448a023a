package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	_ "github.com/BrandonKowalski/certifiable" // Add CA certificates to the default trust store
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/gorilla/websocket"
)

// Location is a router.Location backed by a Server's websocket. Writing the
// hash sends a navigate command; navigations reported by the server update
// the hash and notify subscribers.
type Location struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	hash      string
	nextID    int
	listeners map[int]func(string)

	done chan struct{}
	err  error
}

// DialLocation connects to the websocket at url (ws:// or wss://) and waits
// for the server's initial state.
func DialLocation(ctx context.Context, url string, header http.Header, logger *slog.Logger) (*Location, error) {
	if logger == nil {
		logger = internal.GetInternalLogger()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	var first Message
	if err := conn.ReadJSON(&first); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading initial state: %w", err)
	}
	if first.Type != TypeState {
		conn.Close()
		return nil, fmt.Errorf("expected %q message, got %q", TypeState, first.Type)
	}
	conn.SetReadDeadline(time.Time{})

	l := &Location{
		conn:      conn,
		logger:    logger,
		hash:      first.Hash,
		listeners: make(map[int]func(string)),
		done:      make(chan struct{}),
	}
	go l.readLoop()
	return l, nil
}

func (l *Location) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// SetHash updates the hash, notifies subscribers and asks the server to
// navigate. Setting the current hash does nothing.
func (l *Location) SetHash(hash string) {
	if !l.update(hash) {
		return
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := l.conn.WriteJSON(Message{Type: TypeNavigate, Hash: hash}); err != nil {
		l.logger.Error("sending navigate failed", "hash", hash, "error", err)
	}
}

func (l *Location) Subscribe(fn func(hash string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.listeners[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// Done is closed once the connection has ended.
func (l *Location) Done() <-chan struct{} {
	return l.done
}

// Err returns why the connection ended, after Done is closed.
func (l *Location) Err() error {
	<-l.done
	return l.err
}

// Close ends the connection and waits for the reader to stop.
func (l *Location) Close() error {
	l.writeMu.Lock()
	l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	l.writeMu.Unlock()

	err := l.conn.Close()
	<-l.done
	return err
}

func (l *Location) update(hash string) bool {
	l.mu.Lock()
	if l.hash == hash {
		l.mu.Unlock()
		return false
	}
	l.hash = hash
	fns := make([]func(string), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(hash)
	}
	return true
}

func (l *Location) readLoop() {
	defer close(l.done)

	for {
		var msg Message
		if err := l.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.err = err
			}
			return
		}

		switch msg.Type {
		case TypeState, TypeNavigation:
			l.update(msg.Hash)
		case TypeError:
			l.logger.Warn("remote router error", "error", msg.Error)
		}
	}
}
