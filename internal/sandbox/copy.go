package sandbox

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
)

// CopyTree recursively copies src into dst, preserving relative structure, permission bits
// and symbolic links. dst is created if needed.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return appErrors.DirectoryWalkError(src, err)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return appErrors.DirectoryWalkError(src, err)
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return appErrors.FileReadError(path, err)
		}

		switch {
		case d.IsDir():
			// the owner must be able to write so the subject can create files
			if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return appErrors.DirectoryCreateError(target, err)
			}
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return appErrors.FileReadError(path, err)
			}
			if err := os.Symlink(link, target); err != nil {
				return appErrors.FileCopyError(path, err)
			}
			return nil
		case d.Type().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			// sockets, devices and pipes have no place in a fixture
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // fixture paths come from the harness configuration
	if err != nil {
		return appErrors.FileReadError(src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // see above
	if err != nil {
		return appErrors.FileCopyError(src, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return appErrors.FileCopyError(src, err)
	}
	if err := out.Close(); err != nil {
		return appErrors.FileCopyError(src, err)
	}

	// OpenFile applies the umask; restore the exact bits so executables stay executable
	if err := os.Chmod(dst, perm); err != nil {
		return appErrors.FileCopyError(src, err)
	}
	return nil
}
