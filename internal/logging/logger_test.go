package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger("chatty")
	assert.Error(t, err)
}

func TestWithScan(t *testing.T) {
	l := Nop()
	assert.NotNil(t, l.WithScan("abc"))
	assert.Same(t, l.Logger, l.WithScan(""))
	assert.NotNil(t, OrNop(nil))
}
