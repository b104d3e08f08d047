package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExitCoder struct{ code int }

func (f fakeExitCoder) Error() string { return "fake" }
func (f fakeExitCoder) ExitCode() int { return f.code }

func TestExitCodeForErrorUsesExitCoderWhenPresent(t *testing.T) {
	assert.Equal(t, 2, exitCodeForError(fakeExitCoder{code: 2}))
}

func TestExitCodeForErrorDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, exitCodeForError(errors.New("plain error")))
}
