package input

import (
	"testing"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
	"github.com/stretchr/testify/assert"
)

func TestNewDispatcher_DefaultsToInternalLogger(t *testing.T) {
	d := NewDispatcher(nil, nil)
	assert.Same(t, internal.GetInternalLogger(), d.logger)
}
