//go:build mage

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCommandFailed = errors.New("command failed")

// MockCommander records calls and fails on the configured call index
type MockCommander struct {
	calls  [][]string
	failAt int // 1-based; 0 never fails
}

// RunV implements Commander interface for mocking
func (m *MockCommander) RunV(cmd string, args ...string) error {
	m.calls = append(m.calls, append([]string{cmd}, args...))
	if m.failAt == len(m.calls) {
		return errCommandFailed
	}
	return nil
}

func withMock(t *testing.T, mock *MockCommander) {
	t.Helper()
	original := getCommander()
	setCommander(mock)
	t.Cleanup(func() { setCommander(original) })
}

func TestBuild(t *testing.T) {
	mock := &MockCommander{}
	withMock(t, mock)

	require.NoError(t, Build())
	assert.Equal(t, [][]string{{"go", "build", "-o", "bin/go-cligolden", "./cmd/go-cligolden"}}, mock.calls)
}

func TestFixtures(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		t.Setenv(configEnv, "")
		mock := &MockCommander{}
		withMock(t, mock)

		require.NoError(t, Fixtures())
		require.Len(t, mock.calls, 2)
		assert.Equal(t, []string{"bin/go-cligolden", "run", "--config", "goldentree.yaml"}, mock.calls[1])
	})

	t.Run("config from environment", func(t *testing.T) {
		t.Setenv(configEnv, "testdata/jazzy.yaml")
		mock := &MockCommander{}
		withMock(t, mock)

		require.NoError(t, Fixtures())
		assert.Equal(t, "testdata/jazzy.yaml", mock.calls[1][3])
	})

	t.Run("build failure stops the run", func(t *testing.T) {
		mock := &MockCommander{failAt: 1}
		withMock(t, mock)

		err := Fixtures()
		require.ErrorIs(t, err, errCommandFailed)
		assert.Contains(t, err.Error(), "build failed")
		assert.Len(t, mock.calls, 1)
	})
}

func TestTestTargets(t *testing.T) {
	mock := &MockCommander{}
	withMock(t, mock)

	require.NoError(t, Test())
	require.NoError(t, TestQuick())
	require.NoError(t, Bench())

	require.Len(t, mock.calls, 3)
	assert.Equal(t, []string{"go", "test", "-race", "-timeout=10m", "./..."}, mock.calls[0])
	assert.Equal(t, []string{"go", "test", "-short", "./..."}, mock.calls[1])
	assert.Contains(t, mock.calls[2], "-bench=.")
	assert.Contains(t, mock.calls[2], "-run=^$")
}

func TestAll(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := &MockCommander{}
		withMock(t, mock)

		require.NoError(t, All())
		assert.Len(t, mock.calls, 3)
	})

	t.Run("failing tests skip fixtures", func(t *testing.T) {
		mock := &MockCommander{failAt: 1}
		withMock(t, mock)

		err := All()
		require.ErrorIs(t, err, errCommandFailed)
		assert.Contains(t, err.Error(), "tests failed")
		assert.Len(t, mock.calls, 1)
	})
}
