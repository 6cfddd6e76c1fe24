package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ancients-collective/hostenv/internal/logx"
)

// DefaultTimeout bounds commands that did not ask for their own timeout.
const DefaultTimeout = 10 * time.Minute

// Local runs commands on the machine hostenv itself is running on.
// It exists both as the CLI's default target and as the reference Runner
// implementation for remote transports.
type Local struct {
	// NoSudo strips the sudo prefix from privileged commands, for
	// unprivileged runs that only need the read-only probes.
	NoSudo bool

	// Timeout replaces DefaultTimeout for commands that did not ask for
	// their own.
	Timeout time.Duration
}

// NewLocal returns a Runner for the local machine.
func NewLocal() *Local {
	return &Local{}
}

// IsPosix reports whether the local machine has a POSIX shell.
func (l *Local) IsPosix() bool {
	return runtime.GOOS != "windows"
}

// Execute runs cmd locally. Shell commands go through `sh -c`; plain
// commands are split on whitespace, which is sufficient for the simple
// probe and package-manager command lines issued by this module.
func (l *Local) Execute(cmd string, opts ...Option) (Result, error) {
	o := BuildOptions(opts...)
	if l.NoSudo {
		o.Sudo = false
	}

	timeout := o.Timeout
	if timeout == 0 {
		timeout = l.Timeout
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var c *exec.Cmd
	switch {
	case o.Shell && o.Sudo:
		c = exec.CommandContext(ctx, "sudo", "sh", "-c", cmd)
	case o.Shell:
		c = exec.CommandContext(ctx, "sh", "-c", cmd)
	default:
		fields := strings.Fields(cmd)
		if len(fields) == 0 {
			return Result{}, errors.New("empty command")
		}
		if o.Sudo {
			fields = append([]string{"sudo"}, fields...)
		}
		c = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.Env = os.Environ()

	err := c.Run()
	result := Result{
		Cmd:      cmd,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound):
			// Missing binary behaves like exit 127 so probes can treat
			// "command not found" and "file not found" alike.
			result.ExitCode = 127
		default:
			if !o.NoErrorLog {
				logx.Error("command failed to start", "cmd", cmd, "err", err)
			}
			return result, err
		}
		if !o.NoErrorLog {
			logx.Debug("command exited non-zero", "cmd", cmd, "exit", result.ExitCode)
		}
	}

	return result, nil
}

// CopyBack copies a file from the target (here: the local filesystem) to the
// given local path.
func (l *Local) CopyBack(remotePath, localPath string) error {
	src, err := os.Open(remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
