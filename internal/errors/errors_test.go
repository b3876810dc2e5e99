package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := FileAccess("/data/a.txt", os.ErrPermission)
	assert.Equal(t, "file access failed: /data/a.txt: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)

	assert.Equal(t, `unsupported hash algorithm "crc7"`, HashAlgorithm("crc7").Error())
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("scanning: %w", InvalidRoot("/nope", os.ErrNotExist))

	assert.True(t, IsType(wrapped, ErrorTypeInvalidRoot))
	assert.False(t, IsType(wrapped, ErrorTypeFileAccess))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeInvalidRoot))
	assert.False(t, IsType(nil, ErrorTypeConfig))

	assert.True(t, IsType(Action("move", "/a", os.ErrExist), ErrorTypeAction))
	assert.True(t, IsType(Config("bad"), ErrorTypeConfig))
	assert.True(t, IsType(Cancelled("scan"), ErrorTypeCancelled))
}
