package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExitStatus = errors.New("exit status 1")

func TestWrapWithContext(t *testing.T) {
	require.NoError(t, WrapWithContext(nil, "copy fixture"))

	err := WrapWithContext(ErrNoFixtures, "build suite")
	require.ErrorIs(t, err, ErrNoFixtures)
	assert.Equal(t, "failed to build suite: no fixtures configured", err.Error())
}

func TestFieldErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "invalid field",
			err:      InvalidFieldError("capture", "stderr"),
			sentinel: ErrInvalidField,
			message:  "invalid field: capture: stderr",
		},
		{
			name:     "empty field",
			err:      EmptyFieldError("fixtures[0].name"),
			sentinel: ErrEmptyField,
			message:  "field cannot be empty: fixtures[0].name",
		},
		{
			name:     "required field",
			err:      RequiredFieldError("substitutions[1].token"),
			sentinel: ErrRequiredField,
			message:  "field is required: substitutions[1].token",
		},
		{
			name:     "format",
			err:      FormatError("timeout", "soon", "Go duration"),
			sentinel: ErrInvalidFormat,
			message:  "invalid format: timeout 'soon': expected Go duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.message, tt.err.Error())

			var fieldErr *FieldError
			require.ErrorAs(t, tt.err, &fieldErr)
			assert.NotEmpty(t, fieldErr.Field)
		})
	}
}

func TestPathTraversalError(t *testing.T) {
	err := PathTraversalError("../outside")
	require.ErrorIs(t, err, ErrPathTraversal)
	assert.Equal(t, "path traversal detected: invalid path '../outside'", err.Error())
}

func TestCommandFailedError(t *testing.T) {
	require.NoError(t, CommandFailedError("./build.sh", nil))

	err := CommandFailedError("./build.sh get-version", errExitStatus)
	require.ErrorIs(t, err, ErrCommandFailed)
	require.ErrorIs(t, err, errExitStatus)
	assert.Equal(t, "command failed: './build.sh get-version': exit status 1", err.Error())
}

func TestDuplicateFixtureError(t *testing.T) {
	err := DuplicateFixtureError("hello")
	require.ErrorIs(t, err, ErrDuplicateFixture)
	assert.Equal(t, "duplicate fixture: hello", err.Error())
}
