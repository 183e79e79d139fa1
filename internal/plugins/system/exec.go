package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/switchboard-core/internal/action"
)

// execOutputLimit caps how much captured command output lands in the log.
const execOutputLimit = 4096

// defaultCommandTimeout bounds a command whose spec leaves Timeout unset,
// so a wedged program cannot hold a macro run until the engine's own
// run timeout fires.
const defaultCommandTimeout = 30 * time.Second

// Command describes an external program launched by a run-command action.
type Command struct {
	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format),
	// appended to the host environment.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from the host process.
	WorkDir string

	// Timeout bounds the command's wall-clock time. Zero means
	// defaultCommandTimeout.
	Timeout time.Duration
}

// RunCommandAction returns a leaf action that launches an external program
// and waits for it to exit. The action fails when the program cannot be
// started, exits non-zero or overruns its timeout.
//
// The command runs in its own process group and the whole group is killed
// when the macro run is cancelled, so programs that fork do not outlive
// the run. Captured output is logged, truncated to execOutputLimit.
func (p *Plugin) RunCommandAction(name, description string, spec Command) *action.Item {
	return action.NewItem(name, description, p.ID(), func(execCtx *action.ExecutionContext) error {
		if spec.Binary == "" {
			return fmt.Errorf("run command: binary not set")
		}

		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = defaultCommandTimeout
		}
		ctx, cancel := context.WithTimeout(execCtx.Context(), timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec // Binary comes from the macro author, same trust level as a script action

		// New process group so cancellation kills forked children too
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error {
			if cmd.Process == nil {
				return nil
			}
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}

		if spec.Env != nil {
			cmd.Env = append(os.Environ(), spec.Env...)
		}
		if spec.WorkDir != "" {
			cmd.Dir = spec.WorkDir
		}

		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output

		start := time.Now()
		err := cmd.Run()

		// A run that was cancelled reports through the execution context,
		// not the returned error.
		if execCtx.Cancelled() {
			p.logger.Debug("command cancelled",
				"action", name,
				"binary", spec.Binary,
			)
			return nil
		}

		if out := truncateOutput(output.Bytes()); out != "" {
			p.logger.Debug("command output",
				"action", name,
				"binary", spec.Binary,
				"output", out,
			)
		}

		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("run %s: timed out after %s", spec.Binary, timeout)
			}
			return fmt.Errorf("run %s: %w", spec.Binary, err)
		}

		p.logger.Debug("command completed",
			"action", name,
			"binary", spec.Binary,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	})
}

// truncateOutput trims trailing whitespace and caps the captured output at
// execOutputLimit bytes for logging.
func truncateOutput(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > execOutputLimit {
		return s[:execOutputLimit]
	}
	return s
}
