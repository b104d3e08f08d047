package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitErrorWrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("boom")
	err := configError(underlying)

	var exitErr *ExitError
	assert.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestRunErrorUsesExitCodeOne(t *testing.T) {
	err := runError(errors.New("failed"))

	var exitErr *ExitError
	assert.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
}
