package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// Exit codes recorded when a process never produced one.
const (
	exitNotStarted = -1
	exitTimedOut   = -2
)

// Invocation is one compiler call: compiler flags... source -o output linkFlags...
type Invocation struct {
	Compiler  string
	Flags     []string
	Source    string
	Output    string
	LinkFlags []string
}

// Args renders the compiler argument vector.
func (inv Invocation) Args() []string {
	args := make([]string, 0, len(inv.Flags)+len(inv.LinkFlags)+3)
	args = append(args, inv.Flags...)
	args = append(args, inv.Source, "-o", inv.Output)
	return append(args, inv.LinkFlags...)
}

// ProcessResult is what a finished (or killed) child process left behind.
type ProcessResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Toolchain compiles a test source into an executable.
type Toolchain interface {
	Invoke(ctx context.Context, inv Invocation) (ProcessResult, error)
}

// ProcessRunner executes a compiled test binary with no arguments.
type ProcessRunner interface {
	Execute(ctx context.Context, executable string) (ProcessResult, error)
}

// execProcess runs real child processes. A zero Timeout means no limit; on
// expiry the child's whole process group is killed and the result is marked TimedOut.
type execProcess struct {
	Timeout time.Duration
}

func (p execProcess) Invoke(ctx context.Context, inv Invocation) (ProcessResult, error) {
	return p.run(ctx, inv.Compiler, inv.Args()...)
}

func (p execProcess) Execute(ctx context.Context, executable string) (ProcessResult, error) {
	return p.run(ctx, executable)
}

func (p execProcess) run(ctx context.Context, name string, args ...string) (ProcessResult, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return ProcessResult{ExitCode: exitNotStarted}, fmt.Errorf("failed to start %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		// Negative pid signals the process group.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		res := ProcessResult{ExitCode: exitTimedOut, Stdout: stdout.String(), Stderr: stderr.String()}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			return res, nil
		}
		return res, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
	}

	res := ProcessResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = exitNotStarted
		return res, fmt.Errorf("failed to run %s: %w", name, runErr)
	}
	return res, nil
}
