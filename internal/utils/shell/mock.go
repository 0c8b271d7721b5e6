package shell

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// MockCommand pairs a pattern with the canned result of any command whose
// rendered form (Command.String) matches it.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor answers commands from a fixed table and records every call.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	Calls    []Command
}

func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{commands: commands}
}

// mockExitError carries a non-zero exit status through ExitCode.
type mockExitError struct {
	code int
}

func (e *mockExitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *mockExitError) ExitCode() int { return e.code }

// NewExitError builds an error that reports the given exit code, for use as
// MockCommand.Error.
func NewExitError(code int) error {
	return &mockExitError{code: code}
}

func matches(pattern, s string) bool {
	if strings.Contains(s, pattern) {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (m *MockExecutor) lookup(cmdStr string) (MockCommand, bool) {
	for _, c := range m.commands {
		if matches(c.Pattern, cmdStr) {
			return c, true
		}
	}
	return MockCommand{}, false
}

func (m *MockExecutor) Exec(cmd Command) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, cmd)

	c, ok := m.lookup(cmd.String())
	if !ok {
		return "", fmt.Errorf("unexpected command: %s", cmd.String())
	}
	if c.Error != nil {
		return c.Output, fmt.Errorf("failed to exec %s: %w", cmd.String(), c.Error)
	}
	return c.Output, nil
}

func (m *MockExecutor) ExecStream(cmd Command) (string, error) {
	return m.Exec(cmd)
}

// LookPath answers from a "command -v NAME" entry, mirroring how the host
// shell would be asked.
func (m *MockExecutor) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.lookup("command -v " + name)
	if !ok || c.Error != nil || strings.TrimSpace(c.Output) == "" {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return strings.TrimSpace(c.Output), nil
}

// CallStrings returns the rendered form of every recorded call.
func (m *MockExecutor) CallStrings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.String())
	}
	return out
}
