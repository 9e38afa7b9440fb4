package resolver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// defaultWaitDelay bounds how long output pipes may stay open after the process is killed.
const defaultWaitDelay = 2 * time.Second

// Invocation describes one external command.
type Invocation struct {
	Name string // Label used in logs and metrics.
	Path string
	Args []string
}

// ProcessOutput is what a finished or killed command left behind.
type ProcessOutput struct {
	Text     string // stdout followed by stderr.
	ExitCode int    // -1 when the process never started or was killed.
}

// Runner executes an Invocation. Implementations must stop the process once ctx is done
// and return whatever output was captured together with the error.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (ProcessOutput, error)
}

// ExecRunner runs commands with os/exec in their own process group.
type ExecRunner struct {
	WaitDelay time.Duration
}

// NewExecRunner creates a runner that kills the whole process group on cancellation.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: defaultWaitDelay}
}

// Run starts inv and waits for it to exit or for ctx to be done.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (ProcessOutput, error) {
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	configureProcessGroup(cmd)

	err := cmd.Run()

	out := ProcessOutput{
		Text:     stdout.String() + stderr.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s interrupted: %w", inv.Name, ctxErr)
	}
	return out, fmt.Errorf("%s failed: %w", inv.Name, err)
}
