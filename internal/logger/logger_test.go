package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		l, err := NewLogger(dev)
		require.NoError(t, err)
		require.NotNil(t, l.SugaredLogger)
		assert.NotNil(t, l.Zap())
		assert.NotNil(t, l.Named("pipeline"))
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Infow("discarded", "key", "value")
	assert.NotNil(t, l.Named("x"))
}
