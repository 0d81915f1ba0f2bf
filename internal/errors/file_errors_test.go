package errors

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		message string
	}{
		{"read", FileReadError("after/out.txt", os.ErrNotExist), ErrFileOperation, "file operation failed: read 'after/out.txt': file does not exist"},
		{"write", FileWriteError("out.csv", os.ErrPermission), ErrFileOperation, "file operation failed: write 'out.csv': permission denied"},
		{"copy", FileCopyError("before/a", os.ErrNotExist), ErrFileOperation, "file operation failed: copy 'before/a': file does not exist"},
		{"create", DirectoryCreateError("/tmp/sb", os.ErrExist), ErrDirectoryOperation, "directory operation failed: create '/tmp/sb': file already exists"},
		{"walk", DirectoryWalkError("after", os.ErrNotExist), ErrDirectoryOperation, "directory operation failed: walk 'after': file does not exist"},
		{"remove", DirectoryRemoveError("/tmp/sb", os.ErrPermission), ErrDirectoryOperation, "directory operation failed: remove '/tmp/sb': permission denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.message, tt.err.Error())

			var pathErr *PathError
			require.ErrorAs(t, tt.err, &pathErr)
			assert.Equal(t, tt.name, pathErr.Op)
		})
	}
}

func TestPathErrorKeepsCause(t *testing.T) {
	err := FileReadError("missing.txt", os.ErrNotExist)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrDirectoryOperation)
}

func TestPathErrorNil(t *testing.T) {
	require.NoError(t, FileReadError("a", nil))
	require.NoError(t, DirectoryWalkError("b", nil))
}
