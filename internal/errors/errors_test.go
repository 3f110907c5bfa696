package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Unwrap(t *testing.T) {
	err := NewUserError(ErrCorruptConfig, "check the config file")

	assert.True(t, stderrors.Is(err, ErrCorruptConfig))
	assert.Equal(t, ExitUser, err.Code)
	assert.Equal(t, "check the config file", err.Suggestion)

	var exitErr *ExitError
	require.True(t, stderrors.As(err, &exitErr))
	assert.Equal(t, ErrCorruptConfig.Error(), exitErr.Error())
}

func TestExitError_NilUnderlying(t *testing.T) {
	err := &ExitError{Code: ExitSystem}
	assert.Equal(t, "exit code 2", err.Error())
	assert.NoError(t, err.Unwrap())
}
