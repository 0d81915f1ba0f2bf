package errors

import (
	"errors"
	"fmt"
)

// Filesystem operation errors
var (
	ErrFileOperation      = errors.New("file operation failed")
	ErrDirectoryOperation = errors.New("directory operation failed")
)

// PathError is a failed filesystem operation on a tree path. It matches both its kind
// sentinel and the underlying error, so errors.Is(err, os.ErrNotExist) keeps working.
type PathError struct {
	Op   string
	Path string
	Dir  bool
	Err  error
}

func (e *PathError) kind() error {
	if e.Dir {
		return ErrDirectoryOperation
	}
	return ErrFileOperation
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s '%s': %v", e.kind(), e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() []error { return []error{e.kind(), e.Err} }

func pathError(op, path string, dir bool, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Op: op, Path: path, Dir: dir, Err: err}
}

// FileReadError reports a failed file read
func FileReadError(path string, err error) error { return pathError("read", path, false, err) }

// FileWriteError reports a failed file write
func FileWriteError(path string, err error) error { return pathError("write", path, false, err) }

// FileCopyError reports a failed copy into a sandbox
func FileCopyError(path string, err error) error { return pathError("copy", path, false, err) }

// DirectoryCreateError reports a failed mkdir
func DirectoryCreateError(path string, err error) error {
	return pathError("create", path, true, err)
}

// DirectoryWalkError reports a failed tree scan
func DirectoryWalkError(path string, err error) error { return pathError("walk", path, true, err) }

// DirectoryRemoveError reports a sandbox that could not be removed
func DirectoryRemoveError(path string, err error) error {
	return pathError("remove", path, true, err)
}
