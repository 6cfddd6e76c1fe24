// Package shell defines the remote-execution contract the classifier and the
// package-manager strategies are built on. The transport itself (SSH, WinRM,
// a local subprocess) stays behind the Runner interface.
package shell

import (
	"fmt"
	"time"
)

// Options control how a single command is executed.
type Options struct {
	// Sudo elevates the command on the target.
	Sudo bool

	// Shell runs the command through the target's shell so that pipes,
	// redirection and environment assignments work.
	Shell bool

	// Timeout bounds the remote command. Zero means the runner's default.
	Timeout time.Duration

	// NoErrorLog suppresses error-level logging for commands that are
	// expected to fail, such as detection probes against absent files.
	NoErrorLog bool
}

// Option mutates Options.
type Option func(*Options)

// WithSudo elevates the command.
func WithSudo() Option { return func(o *Options) { o.Sudo = true } }

// WithShell runs the command through a shell.
func WithShell() Option { return func(o *Options) { o.Shell = true } }

// WithTimeout bounds the command duration.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithNoErrorLog marks the command as allowed to fail quietly.
func WithNoErrorLog() Option { return func(o *Options) { o.NoErrorLog = true } }

// BuildOptions applies opts over the zero value.
func BuildOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Result is the outcome of one executed command.
type Result struct {
	// Cmd is the command as issued, without the sudo prefix.
	Cmd string

	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a command that completed with an unexpected exit code.
type ExitError struct {
	Cmd      string
	ExitCode int
	Message  string
	Stdout   string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: command %q exited with code %d", e.Message, e.Cmd, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with code %d", e.Cmd, e.ExitCode)
}

// AssertExitCode returns an ExitError unless the result's exit code is one of
// expected. With no expected codes given, 0 is required.
func (r Result) AssertExitCode(message string, expected ...int) error {
	if len(expected) == 0 {
		expected = []int{0}
	}
	for _, code := range expected {
		if r.ExitCode == code {
			return nil
		}
	}
	return &ExitError{Cmd: r.Cmd, ExitCode: r.ExitCode, Message: message, Stdout: r.Stdout}
}

// Runner executes commands on a target machine. Implementations are
// synchronous: Execute blocks until the command finishes or times out.
//
// A non-nil error means the command could not be run at all (transport
// failure, missing binary). A command that ran and exited non-zero is not an
// error; callers inspect Result.ExitCode.
type Runner interface {
	Execute(cmd string, opts ...Option) (Result, error)

	// IsPosix reports whether the target speaks a POSIX shell. Windows
	// targets return false and skip distribution probing entirely.
	IsPosix() bool
}

// FileCopier is implemented by runners that can transfer a file from the
// target to the local machine. It is used by system-information capture;
// runners without it simply skip the copy-back step.
type FileCopier interface {
	CopyBack(remotePath, localPath string) error
}
