package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
)

var (
	HostPath string = ""
)

// Command is a single argv invocation, optionally inside a chroot.
type Command struct {
	Args   []string          // program and arguments, no shell interpretation
	Env    map[string]string // exported in addition to the inherited environment
	Chroot string            // rootfs to chroot into, HostPath for the host
	Stdin  string
}

// Argv returns the argument vector actually executed, including the
// chroot prefix for chrooted commands.
func (c Command) Argv() []string {
	if c.Chroot == HostPath {
		return c.Args
	}
	return append([]string{"chroot", c.Chroot}, c.Args...)
}

// String renders the command for logs and mock matching: sorted env
// assignments followed by the argv.
func (c Command) String() string {
	var parts []string
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+c.Env[k])
	}
	parts = append(parts, c.Argv()...)
	return strings.Join(parts, " ")
}

// Executor runs commands. Default is swapped for a MockExecutor in tests.
type Executor interface {
	Exec(cmd Command) (string, error)
	ExecStream(cmd Command) (string, error)
	LookPath(name string) (string, error)
}

var Default Executor = &OsExecutor{}

// ExecCmd executes a command and returns its combined output
var ExecCmd = func(cmd Command) (string, error) {
	return Default.Exec(cmd)
}

// ExecCmdWithStream executes a command and streams its output to the log
var ExecCmdWithStream = func(cmd Command) (string, error) {
	return Default.ExecStream(cmd)
}

// LookPath resolves a program name on the host PATH
func LookPath(name string) (string, error) {
	return Default.LookPath(name)
}

// GetOSEnvirons returns the system environment variables
func GetOSEnvirons() map[string]string {
	environ := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			environ[parts[0]] = parts[1]
		}
	}
	return environ
}

// GetOSProxyEnvirons retrieves HTTP and HTTPS proxy environment variables
func GetOSProxyEnvirons() map[string]string {
	osEnv := GetOSEnvirons()
	proxyEnv := make(map[string]string)

	for key, value := range osEnv {
		if strings.Contains(strings.ToLower(key), "http_proxy") ||
			strings.Contains(strings.ToLower(key), "https_proxy") {
			proxyEnv[key] = value
		}
	}

	return proxyEnv
}

// IsCommandExist checks if a command exists on the host or in a chroot environment
func IsCommandExist(cmd string, chrootPath string) (bool, error) {
	if chrootPath == HostPath {
		path, err := LookPath(cmd)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return path != "", nil
	}

	if _, err := os.Stat(chrootPath); err != nil {
		return false, fmt.Errorf("chroot path %s does not exist: %w", chrootPath, err)
	}
	for _, dir := range []string{"usr/bin", "usr/sbin", "bin", "sbin"} {
		if IsExecutable(filepath.Join(chrootPath, dir, cmd)) {
			return true, nil
		}
	}
	return false, nil
}

// IsExecutable reports whether path is a regular file with an execute bit set.
func IsExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}

// ExitCode returns the exit status carried by err, 0 for nil and -1 when
// the command did not run to completion.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var codeErr interface{ ExitCode() int }
	if errors.As(err, &codeErr) {
		return codeErr.ExitCode()
	}
	return -1
}

// OsExecutor runs commands with os/exec.
type OsExecutor struct{}

func (e *OsExecutor) command(c Command) (*exec.Cmd, error) {
	argv := c.Argv()
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	if c.Chroot != HostPath {
		if _, err := os.Stat(c.Chroot); os.IsNotExist(err) {
			return nil, fmt.Errorf("chroot path %s does not exist", c.Chroot)
		}
	}

	env := GetOSEnvirons()
	if c.Chroot != HostPath {
		for key, value := range GetOSProxyEnvirons() {
			env[key] = value
		}
	}
	for key, value := range c.Env {
		env[key] = value
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = make([]string, 0, len(env))
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	log := logger.Logger()
	if c.Chroot != HostPath {
		log.Debugf("Chroot %s Exec: [%s]", filepath.Base(c.Chroot), c.String())
	} else {
		log.Debugf("Exec: [%s]", c.String())
	}
	return cmd, nil
}

// Exec executes a command and returns its output
func (e *OsExecutor) Exec(c Command) (string, error) {
	log := logger.Logger()
	cmd, err := e.command(c)
	if err != nil {
		return "", err
	}

	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Info(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", c.String(), err)
	}
	if outputStr != "" {
		log.Debug(outputStr)
	}
	return outputStr, nil
}

// ExecStream executes a command and streams its output
func (e *OsExecutor) ExecStream(c Command) (string, error) {
	var (
		outputStr strings.Builder
		outMu     sync.Mutex
	)
	log := logger.Logger()

	cmd, err := e.command(c)
	if err != nil {
		return "", err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", c.String(), err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", c.String(), err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command %s: %w", c.String(), err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				outMu.Lock()
				outputStr.WriteString(str)
				outputStr.WriteByte('\n')
				outMu.Unlock()
				log.Info(str)
			}
		}
		drain(stdout, scanner.Err())
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				log.Info(str)
			}
		}
		drain(stderr, scanner.Err())
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return outputStr.String(), fmt.Errorf("failed to wait for command %s: %w", c.String(), err)
	}

	return outputStr.String(), nil
}

// drain discards what a failed scanner left in the pipe so the command
// does not block on a full pipe and Wait returns.
func drain(r io.Reader, err error) {
	if err == nil {
		return
	}
	logger.Logger().Warnf("Output truncated: %v", err)
	_, _ = io.Copy(io.Discard, r)
}

// LookPath resolves name on the host PATH
func (e *OsExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
