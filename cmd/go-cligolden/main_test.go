package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/go-cligolden/internal/cli"
)

var errConfigMissing = errors.New("failed to load config goldentree.yaml")

type ctxKey struct{}

// MockOutputHandler is a thread-safe mock for testing
type MockOutputHandler struct {
	mu            sync.Mutex
	InitCalled    bool
	ErrorMessages []string
}

func (m *MockOutputHandler) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitCalled = true
}

func (m *MockOutputHandler) Error(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorMessages = append(m.ErrorMessages, msg)
}

// MockCLIExecutor returns a canned error, or panics when PanicWith is set
type MockCLIExecutor struct {
	Err       error
	PanicWith interface{}
	ctx       context.Context
}

func (m *MockCLIExecutor) Execute(ctx context.Context) error {
	m.ctx = ctx
	if m.PanicWith != nil {
		panic(m.PanicWith)
	}
	return m.Err
}

func TestNewApp(t *testing.T) {
	app := NewApp()

	require.NotNil(t, app)
	assert.IsType(t, &DefaultOutputHandler{}, app.outputHandler)
	assert.IsType(t, &DefaultCLIExecutor{}, app.cliExecutor)
}

func TestNewAppWithDependencies(t *testing.T) {
	handler := &MockOutputHandler{}
	executor := &MockCLIExecutor{}

	app := NewAppWithDependencies(handler, executor)
	assert.Equal(t, handler, app.outputHandler)
	assert.Equal(t, executor, app.cliExecutor)

	assert.Panics(t, func() { NewAppWithDependencies(nil, executor) })
	assert.Panics(t, func() { NewAppWithDependencies(handler, nil) })
}

func TestAppRun(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := &MockOutputHandler{}
		executor := &MockCLIExecutor{}
		ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

		err := NewAppWithDependencies(handler, executor).Run(ctx)
		require.NoError(t, err)
		assert.True(t, handler.InitCalled)
		assert.Empty(t, handler.ErrorMessages)
		assert.Equal(t, ctx, executor.ctx)
	})

	t.Run("error is displayed", func(t *testing.T) {
		handler := &MockOutputHandler{}
		executor := &MockCLIExecutor{Err: errConfigMissing}

		err := NewAppWithDependencies(handler, executor).Run(context.Background())
		require.ErrorIs(t, err, errConfigMissing)
		assert.Equal(t, []string{errConfigMissing.Error()}, handler.ErrorMessages)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		handler := &MockOutputHandler{}
		executor := &MockCLIExecutor{PanicWith: "sandbox exploded"}

		err := NewAppWithDependencies(handler, executor).Run(context.Background())
		require.ErrorIs(t, err, errPanicRecovered)
		require.Len(t, handler.ErrorMessages, 1)
		assert.Contains(t, handler.ErrorMessages[0], "Fatal error: sandbox exploded")
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "fixtures failed", err: fmt.Errorf("%w: 1 of 3", cli.ErrFixturesFailed), want: exitFixtureFailed},
		{name: "config error", err: errConfigMissing, want: exitHarnessError},
		{name: "panic", err: errPanicRecovered, want: exitHarnessError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestDefaultOutputHandler(t *testing.T) {
	handler := &DefaultOutputHandler{}
	assert.NotPanics(t, func() {
		handler.Init()
		handler.Error("test error message")
	})
}
