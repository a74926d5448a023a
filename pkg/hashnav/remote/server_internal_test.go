package remote

import (
	"testing"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/stretchr/testify/assert"
)

func TestNewServer_DefaultsToInternalLogger(t *testing.T) {
	r := router.New(router.Options{})
	defer r.Close()

	s := NewServer(r, ServerOptions{})
	defer s.Close()
	assert.Same(t, internal.GetInternalLogger(), s.logger)
}
