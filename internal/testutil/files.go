// Package testutil provides shared helpers for building fixture trees and subject scripts in tests.
package testutil

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"
)

// WriteTree creates every file of files under root. Keys are slash-separated relative
// paths; parent directories are created as needed. An empty map still creates root.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	if err := os.MkdirAll(root, 0o750); err != nil {
		t.Fatalf("failed to create directory %s: %v", root, err)
	}

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create test file %s: %v", path, err)
		}
	}
}

// WriteScript writes an executable /bin/sh script with body and returns its path
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil { //nolint:gosec // test scripts must be executable
		t.Fatalf("failed to create script %s: %v", path, err)
	}
	return path
}

// ReadTree returns the content of every regular file under root keyed by slash-separated
// relative path
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()

	files := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path) //nolint:gosec // test helper reads its own temp tree
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read tree %s: %v", root, err)
	}
	return files
}

// Paths returns the sorted keys of a tree map
func Paths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// RequireShell skips the test when /bin/sh is not available
func RequireShell(t testing.TB) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}
