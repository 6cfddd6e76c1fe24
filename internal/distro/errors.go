package distro

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUndetectable means no identity signal could be obtained at all: every
// probe came back empty. This usually means even basic commands like `cat`
// are unavailable on the target.
var ErrUndetectable = errors.New("no os identity signal obtained; basic commands like `cat` may be unavailable")

// ErrNotImplemented is the sentinel all capability-absence errors unwrap to.
// It marks a caller-side mistake (asking a variant for something it declares
// no support for), never a transient failure.
var ErrNotImplemented = errors.New("capability not implemented")

// UnknownDistributionError means probes produced identity strings, but none
// of them matched a registered variant. The raw candidates are carried for
// diagnosis.
type UnknownDistributionError struct {
	Candidates []string
}

func (e *UnknownDistributionError) Error() string {
	return fmt.Sprintf("unknown distribution, no registered variant matches %q", e.Candidates)
}

// IncompleteInfoError means a recognized family's identity source parsed,
// but a mandatory field came back empty. It signals a mismatch between the
// detected family and the actual system state.
type IncompleteInfoError struct {
	Field string
}

func (e *IncompleteInfoError) Error() string {
	return fmt.Sprintf("os %s information not found", e.Field)
}

// NotImplementedError reports the operation and variant for a capability the
// variant does not support. errors.Is(err, ErrNotImplemented) holds.
type NotImplementedError struct {
	Op string
	OS string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s is not implemented on %s", e.Op, e.OS)
}

func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// LockTimeoutError means a competing package-manager process never released
// its lock within the bounded wait.
type LockTimeoutError struct {
	Process string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for running %s process to stop", e.Timeout, e.Process)
}

// InstallError reports a package operation the package manager rejected.
// Output carries the relevant command output for diagnosis.
type InstallError struct {
	Packages []string
	ExitCode int
	Output   string
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("failed to install %s (exit code %d)", strings.Join(e.Packages, " "), e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// MissingPackagesError distinguishes "package does not exist in any repo"
// from other install failures. RPM families report it via
// "No match for argument:" lines.
type MissingPackagesError struct {
	Packages []string
}

func (e *MissingPackagesError) Error() string {
	return fmt.Sprintf("no match found for packages: %s", strings.Join(e.Packages, " "))
}
