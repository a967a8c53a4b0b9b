// Package runner shells out to the external codex CLI.
package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// Run is the outcome of one codex invocation.
type Run struct {
	Code   int
	Stdout string
	Stderr string
	// Err is set when the process could not be spawned (or was killed by
	// the capture timeout), as opposed to exiting non-zero.
	Err error
}

// Options controls how the subprocess is wired up.
type Options struct {
	Env []string
	// Interactive attaches the subprocess to the terminal. Interactive runs
	// have no timeout: the user is expected to interact.
	Interactive bool
	// Timeout bounds non-interactive runs. Zero means no bound.
	Timeout time.Duration
}

// Runner abstracts codex execution so orchestration can be tested with fakes.
type Runner interface {
	Run(args []string, opts Options) Run
}

// Codex runs the real binary.
type Codex struct {
	// Bin defaults to "codex".
	Bin string
}

func (c Codex) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return "codex"
}

func (c Codex) Run(args []string, opts Options) Run {
	if opts.Interactive {
		cmd := exec.Command(c.bin(), args...)
		cmd.Env = opts.Env
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return finish(cmd.Run(), cmd, "", "")
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.bin(), args...)
	cmd.Env = opts.Env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return finish(err, cmd, stdout.String(), stderr.String())
}

func finish(err error, cmd *exec.Cmd, stdout, stderr string) Run {
	run := Run{Stdout: stdout, Stderr: stderr}
	if err == nil {
		return run
	}
	if _, ok := err.(*exec.ExitError); ok {
		run.Code = cmd.ProcessState.ExitCode()
		return run
	}
	run.Code = -1
	run.Err = err
	return run
}
