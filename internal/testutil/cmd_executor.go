// Package testutil provides testing utilities for ykvc.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgexec "github.com/systmms/ykvc/pkg/exec"
)

// ExitError simulates a process that ran and exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode implements the interface pkg/exec.ExitCode looks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// MockCommandExecutor provides a configurable mock for the external tools.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args)
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute or Run for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes calls to fail if no matching response is found.
	StrictMode bool
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
	// Effect runs before the response is returned, e.g. to delete the file
	// an erase tool was pointed at.
	Effect func(args []string)
}

// RecordedCall stores information about a command execution.
type RecordedCall struct {
	Command     string
	Args        []string
	Interactive bool
	Context     context.Context
}

// Line renders the call as "command arg1 arg2".
func (c RecordedCall) Line() string {
	return pkgexec.CommandLine(c.Command, c.Args...)
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

var _ pkgexec.CommandExecutor = (*MockCommandExecutor)(nil)

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	resp, err := m.lookup(ctx, name, args, false)
	if err != nil {
		return nil, nil, err
	}
	return resp.Stdout, resp.Stderr, resp.Err
}

// Run returns the mocked error for the given command.
func (m *MockCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	resp, err := m.lookup(ctx, name, args, true)
	if err != nil {
		return err
	}
	return resp.Err
}

func (m *MockCommandExecutor) lookup(ctx context.Context, name string, args []string, interactive bool) (MockResponse, error) {
	m.mu.Lock()

	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command:     name,
		Args:        append([]string(nil), args...),
		Interactive: interactive,
		Context:     ctx,
	})

	key := pkgexec.CommandLine(name, args...)
	resp, found := m.match(key)
	if !found {
		switch {
		case m.DefaultResponse != nil:
			resp, found = *m.DefaultResponse, true
		case m.StrictMode:
			m.mu.Unlock()
			return MockResponse{}, fmt.Errorf("mock: no response configured for command: %s", key)
		}
	}
	m.mu.Unlock()

	if found && resp.Effect != nil {
		resp.Effect(args)
	}
	return resp, nil
}

// match finds the exact pattern or else the longest prefix pattern.
func (m *MockCommandExecutor) match(key string) (MockResponse, bool) {
	if resp, ok := m.Responses[key]; ok {
		return resp, true
	}

	best := ""
	for pattern := range m.Responses {
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(key, prefix) && len(prefix) > len(best) {
			best = pattern
		}
	}
	if best == "" {
		return MockResponse{}, false
	}
	return m.Responses[best], true
}

// AddResponse registers a mock response for a specific command pattern.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddOutput registers a successful response with the given stdout.
func (m *MockCommandExecutor) AddOutput(commandPattern string, stdout string) {
	m.AddResponse(commandPattern, MockResponse{Stdout: []byte(stdout)})
}

// AddErrorResponse adds a non-zero exit response for a command pattern.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, stderr string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte{},
		Stderr: []byte(stderr),
		Err:    &ExitError{Code: exitCode, Stderr: stderr},
	})
}

// GetCalls returns all recorded calls matching the given command name.
func (m *MockCommandExecutor) GetCalls(commandName string) []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []RecordedCall
	for _, call := range m.RecordedCalls {
		if call.Command == commandName {
			matches = append(matches, call)
		}
	}
	return matches
}

// Lines returns every recorded call rendered as a command line.
func (m *MockCommandExecutor) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]string, 0, len(m.RecordedCalls))
	for _, call := range m.RecordedCalls {
		lines = append(lines, call.Line())
	}
	return lines
}

// CallCount returns the number of times Execute or Run was called.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// Reset clears all recorded calls and responses.
func (m *MockCommandExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = make(map[string]MockResponse)
	m.RecordedCalls = make([]RecordedCall, 0)
	m.DefaultResponse = nil
}

// AssertCalled verifies that a specific command was called at least once.
func (m *MockCommandExecutor) AssertCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) == 0 {
		t.Error("expected command", commandName, "to be called, but it was not")
		return false
	}
	return true
}

// AssertNotCalled verifies that a specific command was never called.
func (m *MockCommandExecutor) AssertNotCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) > 0 {
		t.Error("expected command", commandName, "to not be called, but it was called", len(calls), "times")
		return false
	}
	return true
}

// AssertCallCount verifies the exact number of times a command was called.
func (m *MockCommandExecutor) AssertCallCount(t interface{ Error(args ...interface{}) }, commandName string, expected int) bool {
	calls := m.GetCalls(commandName)
	if len(calls) != expected {
		t.Error("expected command", commandName, "to be called", expected, "times, but was called", len(calls), "times")
		return false
	}
	return true
}
