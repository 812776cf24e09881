//go:build unix

package launcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trappingRunner records INT and exits 7 on TERM; its pid lands in ./pid.
const trappingRunner = `trap 'echo int >> signals.log' INT
trap 'echo term >> signals.log; exit 7' TERM
echo $$ > pid.tmp && mv pid.tmp pid
while :; do sleep 0.05; done`

type runResult struct {
	code int
	err  error
}

func startTrappingRunner(t *testing.T) (dir string, pid int, done <-chan runResult) {
	t.Helper()
	dir = t.TempDir()
	l, err := New(Config{
		Dir:     dir,
		Runner:  stub(trappingRunner),
		Message: "-",
		Stdin:   strings.NewReader(""),
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	})
	require.NoError(t, err)

	results := make(chan runResult, 1)
	go func() {
		code, err := l.Run(context.Background())
		results <- runResult{code: code, err: err}
	}()

	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(filepath.Join(dir, "pid"))
		if err != nil {
			return false
		}
		pid, err = strconv.Atoi(strings.TrimSpace(string(raw)))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	return dir, pid, results
}

func signalLog(t *testing.T, dir string) []string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, "signals.log"))
	if err != nil {
		return nil
	}
	return strings.Fields(string(raw))
}

func waitResult(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("dashboard runner did not exit")
		return runResult{}
	}
}

func TestRun_TerminalInterruptReachesRunnerOnce(t *testing.T) {
	dir, pid, done := startTrappingRunner(t)

	// A terminal Ctrl-C hits every process in the foreground group.
	require.NoError(t, syscall.Kill(pid, syscall.SIGINT))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	require.Eventually(t, func() bool {
		return len(signalLog(t, dir)) > 0
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{"int"}, signalLog(t, dir))

	// The launcher survived the interrupt and still owns the runner.
	require.NoError(t, syscall.Kill(pid, syscall.SIGTERM))
	res := waitResult(t, done)
	assert.Equal(t, 7, res.code)
}

func TestRun_ForwardsTerminateToRunner(t *testing.T) {
	dir, _, done := startTrappingRunner(t)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	res := waitResult(t, done)
	assert.Equal(t, 7, res.code)
	var exitErr *ExitError
	require.ErrorAs(t, res.err, &exitErr)
	assert.Equal(t, 7, exitErr.Code)
	assert.Equal(t, []string{"term"}, signalLog(t, dir))
}

func TestRun_RunnerKilledBySignal(t *testing.T) {
	l, err := New(Config{
		Dir:     t.TempDir(),
		Runner:  stub("kill -KILL $$"),
		Message: "-",
		Stdout:  io.Discard,
	})
	require.NoError(t, err)

	code, err := l.Run(context.Background())
	assert.Equal(t, 128+int(syscall.SIGKILL), code)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 137, exitErr.Code)
}
