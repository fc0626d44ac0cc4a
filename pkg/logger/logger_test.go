package logger

import (
	"testing"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureLogger(t *testing.T) {
	l := EnsureLogger(nil)
	require.NotNil(t, l)
	l.With("k", "v").Info("dropped", "k", "v")

	zl, err := NewLogger(sdklogging.Production)
	require.NoError(t, err)
	assert.Same(t, zl, EnsureLogger(zl))
}

func TestNewLoggerDefaultsToDevelopment(t *testing.T) {
	l, err := NewLogger("")
	require.NoError(t, err)
	assert.NotNil(t, l)
}
