package utils

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result captures the outcome of one external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error // start failure or context deadline, not a non-zero exit
}

// Failed reports whether the command either could not run or exited non-zero.
func (r Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// TimedOut reports whether the command was killed by its context deadline.
func (r Result) TimedOut() bool {
	return errors.Is(r.Err, context.DeadlineExceeded) || errors.Is(r.Err, context.Canceled)
}

// Runner executes external commands. Probes and collectors depend on this
// interface so timing and parsing logic can be tested against canned output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) Result

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) Result {
	return f(ctx, name, args...)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the command, capturing stdout and stderr separately. A
// non-zero exit is reported through ExitCode, not Err, so callers can still
// inspect partial output (smartctl in particular exits non-zero while
// producing usable telemetry).
func (ExecRunner) Run(ctx context.Context, name string, args ...string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		res.Err = ctx.Err()
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res
	}
	res.ExitCode = -1
	res.Err = err
	return res
}

// CommandExists checks if a command is available in the system PATH.
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// GetToolVersion gets the first line of a tool's version output.
func GetToolVersion(tool string, versionFlag string) (string, error) {
	output, err := exec.Command(tool, versionFlag).Output()
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "", nil
}
