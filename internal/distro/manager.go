package distro

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// updateTimeout bounds whole-system package updates, which routinely run for
// a long time on older images.
const updateTimeout = time.Hour

// packageManager is the per-family strategy behind the package operations of
// a POSIX variant. Implementations issue the family's native command lines
// and parse their textual output; the surrounding posix type owns
// initialization gating, retries and the version cache.
type packageManager interface {
	// initialize refreshes the package index. Run exactly once per
	// instance, lazily, before the first package operation.
	initialize() error

	install(names []string, o InstallOptions) error
	update(names []string) error
	exists(name string) (bool, error)
	inRepo(name string) (bool, error)
	packageVersion(name string) (osver.Version, error)
	repositories() ([]types.Repository, error)
	addRepository(repo string, o RepoOptions) error
}

// runRetry retries fn with a constant delay for up to tries attempts.
// Capability absence, missing packages and lock-wait timeouts are terminal;
// everything else (mirror hiccups, lock races) is considered transient.
func runRetry(tries uint, delay time.Duration, fn func() error) error {
	op := func() (struct{}, error) {
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		var missing *MissingPackagesError
		var lock *LockTimeoutError
		if errors.Is(err, ErrNotImplemented) || errors.As(err, &missing) || errors.As(err, &lock) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(
		context.Background(),
		op,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(tries),
	)
	return err
}

// waitRunningProcess polls `pidof` until no process named in procs is left
// running, with the given bound. pidof exiting 1 means nothing matched; a
// transport error is treated the same so a missing pidof binary does not
// wedge package operations.
func waitRunningProcess(r shell.Runner, pol *Policy, procs string, timeout time.Duration) error {
	logged := false
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		result, err := r.Execute("pidof "+procs, shell.WithNoErrorLog())
		if err != nil || result.ExitCode == 1 {
			return nil
		}
		if !logged {
			logged = true
			logx.Debug("found running package manager process, waiting", "process", procs)
		}
		time.Sleep(pol.LockPoll)
	}
	return &LockTimeoutError{Process: procs, Timeout: timeout}
}
