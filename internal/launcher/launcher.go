// Package launcher changes into the dashboard directory and hands the
// terminal over to the dashboard runner command.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/shlex"
)

const (
	DefaultRunner      = "streamlit run"
	DefaultScript      = "koala_dashboard.py"
	DefaultGracePeriod = 5 * time.Second

	// exitRunnerNotFound mirrors the shell's "command not found" status.
	exitRunnerNotFound = 127
)

var (
	ErrDirNotFound    = errors.New("dashboard directory not found")
	ErrNotDirectory   = errors.New("dashboard path is not a directory")
	ErrRunnerNotFound = errors.New("dashboard runner is not installed")
	ErrEmptyRunner    = errors.New("dashboard runner command is empty")
)

// ExitError reports a non-zero exit status of the dashboard runner.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("dashboard runner exited with code %d", e.Code)
}

// Config describes a single dashboard launch.
type Config struct {
	Dir     string   // Absolute, or relative to BaseDir
	BaseDir string   // Empty means the caller's working directory
	Runner  []string // Defaults to DefaultRunner
	Script  string   // Defaults to DefaultScript
	Message string   // Status line; defaults to "Launching Koala dashboard from <dir>"

	// FailFast aborts before printing anything when Dir cannot be entered.
	// Without it the runner is started from the caller's working directory.
	FailFast bool

	// GracePeriod is how long a cancelled runner gets after SIGINT before it is killed.
	GracePeriod time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher runs the dashboard runner command.
type Launcher struct {
	cfg Config
}

// ParseRunner splits a runner command line such as `python -m streamlit run`.
func ParseRunner(command string) ([]string, error) {
	parts, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid runner command %q: %w", command, err)
	}
	if len(parts) == 0 {
		return nil, ErrEmptyRunner
	}
	return parts, nil
}

// New validates the config and fills in defaults.
func New(cfg Config) (*Launcher, error) {
	if cfg.Runner == nil {
		runner, err := ParseRunner(DefaultRunner)
		if err != nil {
			return nil, err
		}
		cfg.Runner = runner
	}
	if len(cfg.Runner) == 0 || cfg.Runner[0] == "" {
		return nil, ErrEmptyRunner
	}
	if cfg.Script == "" {
		cfg.Script = DefaultScript
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &Launcher{cfg: cfg}, nil
}

// Resolve returns the absolute dashboard directory.
// A relative dir is joined to baseDir, or to the working directory when baseDir is empty.
func Resolve(dir, baseDir string) (string, error) {
	target := dir
	if target == "" {
		target = "."
	}
	if !filepath.IsAbs(target) && baseDir != "" {
		target = filepath.Join(baseDir, target)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", target, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDirNotFound, abs)
		}
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return abs, nil
}

// Run starts the runner in the dashboard directory and waits for it.
// The returned code is the runner's exit status; a non-zero code comes with an error.
func (l *Launcher) Run(ctx context.Context) (int, error) {
	dir, err := Resolve(l.cfg.Dir, l.cfg.BaseDir)
	if err != nil {
		if l.cfg.FailFast {
			slog.Error("cannot enter dashboard directory", "dir", l.cfg.Dir, "error", err)
			return 1, err
		}
		slog.Warn("cannot enter dashboard directory, continuing in current directory", "dir", l.cfg.Dir, "error", err)
		dir = ""
	}

	fmt.Fprintln(l.cfg.Stdout, l.message(dir))

	args := append(append([]string{}, l.cfg.Runner[1:]...), l.cfg.Script)
	cmd := exec.CommandContext(ctx, l.cfg.Runner[0], args...)
	cmd.Dir = dir
	cmd.Stdin = l.cfg.Stdin
	cmd.Stdout = l.cfg.Stdout
	cmd.Stderr = l.cfg.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = l.cfg.GracePeriod

	// Trap before Start so an early Ctrl-C leaves the launcher waiting.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	slog.Debug("starting dashboard runner", "runner", l.cfg.Runner, "script", l.cfg.Script, "dir", dir)
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return exitRunnerNotFound, fmt.Errorf("%w: %s", ErrRunnerNotFound, l.cfg.Runner[0])
		}
		return 1, fmt.Errorf("failed to start dashboard runner: %w", err)
	}

	stop := relaySignals(sigs, cmd.Process)
	err = cmd.Wait()
	stop()

	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitCode(exitErr)
		if code == 0 {
			return 0, nil
		}
		slog.Debug("dashboard runner exited", "code", code)
		return code, &ExitError{Code: code}
	}
	return 1, fmt.Errorf("dashboard runner failed: %w", err)
}

// exitCode reports the status a shell would: 128+N for a runner killed by signal N.
func exitCode(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := err.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

func (l *Launcher) message(dir string) string {
	if l.cfg.Message != "" {
		return l.cfg.Message
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return fmt.Sprintf("Launching Koala dashboard from %s", dir)
}

// relaySignals drains sigs until the returned stop func is called.
// The runner shares our process group, so a terminal interrupt already
// reaches it; only SIGTERM, which is addressed to the launcher alone,
// is passed on.
func relaySignals(sigs <-chan os.Signal, p *os.Process) func() {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for {
			select {
			case sig := <-sigs:
				if sig != syscall.SIGTERM {
					slog.Debug("dashboard runner handles interrupt itself", "signal", sig.String())
					continue
				}
				slog.Debug("forwarding signal to dashboard runner", "signal", sig.String())
				_ = p.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
