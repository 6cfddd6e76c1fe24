// Package distro classifies the operating system behind a shell.Runner and
// exposes a uniform package-management contract over the detected variant's
// native tooling (apt, dnf/yum/tdnf, zypper).
package distro

import (
	"time"

	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// Capability is a bitmask of the optional operations a variant supports.
// Callers branch on Capabilities().Has before invoking an operation instead
// of driving control flow off ErrNotImplemented.
type Capability uint

const (
	// CapPackages covers install, update, existence and repo queries.
	CapPackages Capability = 1 << iota

	// CapPackageVersion covers installed-version resolution.
	CapPackageVersion

	// CapRepositories covers repository enumeration.
	CapRepositories

	// CapAddRepository covers adding a package repository.
	CapAddRepository

	// CapBootKernel covers replacing the default boot kernel.
	CapBootKernel

	// CapCompareVersions covers family-aware package version comparison.
	CapCompareVersions

	// CapGroupInstall covers installing a yum package group.
	CapGroupInstall
)

// Has reports whether all bits of c2 are set in c.
func (c Capability) Has(c2 Capability) bool {
	return c&c2 == c2
}

// Package is anything that can name its own distro package. Higher-level
// installable units (tools that know their apt/dnf name) implement it
// directly; plain names are wrapped with Pkg.
type Package interface {
	PackageName() string
}

type pkgName string

func (p pkgName) PackageName() string { return string(p) }

// Pkg wraps a literal package name.
func Pkg(name string) Package { return pkgName(name) }

// Pkgs wraps several literal package names.
func Pkgs(names ...string) []Package {
	out := make([]Package, len(names))
	for i, n := range names {
		out[i] = pkgName(n)
	}
	return out
}

// InstallOptions modify a package install.
type InstallOptions struct {
	// Unsigned permits packages that fail signature verification
	// (--allow-unauthenticated / --nogpgcheck / --no-gpg-checks).
	Unsigned bool

	// Timeout bounds the install command. Default 10 minutes.
	Timeout time.Duration

	// ExtraArgs are passed through to the package manager verbatim.
	ExtraArgs []string
}

// InstallOption mutates InstallOptions.
type InstallOption func(*InstallOptions)

// Unsigned allows unauthenticated packages.
func Unsigned() InstallOption { return func(o *InstallOptions) { o.Unsigned = true } }

// WithInstallTimeout bounds the install command.
func WithInstallTimeout(d time.Duration) InstallOption {
	return func(o *InstallOptions) { o.Timeout = d }
}

// WithExtraArgs passes extra arguments to the package manager.
func WithExtraArgs(args ...string) InstallOption {
	return func(o *InstallOptions) { o.ExtraArgs = append(o.ExtraArgs, args...) }
}

func buildInstallOptions(opts ...InstallOption) InstallOptions {
	o := InstallOptions{Timeout: 10 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RepoOptions modify an add-repository operation.
type RepoOptions struct {
	// Name is the repository alias, used by zypper.
	Name string

	// GPGCheck keeps signature checking enabled; the default matches the
	// package managers' permissive add-repo flags.
	GPGCheck bool

	// KeyURLs are signing keys to import before adding the repository.
	KeyURLs []string
}

// RepoOption mutates RepoOptions.
type RepoOption func(*RepoOptions)

// WithRepoName sets the repository alias.
func WithRepoName(name string) RepoOption { return func(o *RepoOptions) { o.Name = name } }

// WithGPGCheck keeps signature checking enabled for the new repository.
func WithGPGCheck() RepoOption { return func(o *RepoOptions) { o.GPGCheck = true } }

// WithKeys imports the given signing keys before adding the repository.
func WithKeys(urls ...string) RepoOption {
	return func(o *RepoOptions) { o.KeyURLs = append(o.KeyURLs, urls...) }
}

// OperatingSystem is the uniform contract over one classified target.
//
// One instance wraps exactly one connection, is created once by Classify,
// and lives as long as the connection. Instances hold unsynchronized mutable
// state (the version cache, the first-installation flag) and must not be
// shared across goroutines.
//
// Operations a variant does not support return an error unwrapping to
// ErrNotImplemented; Capabilities reports support up front.
type OperatingSystem interface {
	// Name is the variant name, for example "Ubuntu" or "SLES".
	Name() string

	// IsPosix reports whether the variant is POSIX-family.
	IsPosix() bool

	// Capabilities reports which optional operations the variant supports.
	Capabilities() Capability

	// Information resolves the target's OS identity. The result is
	// memoized for the lifetime of the instance.
	Information() (types.OsInformation, error)

	// KernelInformation probes the running kernel via uname.
	KernelInformation() (types.KernelInformation, error)

	// InstallPackages installs the given packages with the family's native
	// tool, waiting out competing package-manager processes and retrying
	// transient failures. The first package operation on an instance
	// triggers one-time package-index initialization.
	InstallPackages(pkgs []Package, opts ...InstallOption) error

	// UpdatePackages upgrades the given packages, or everything when none
	// are given.
	UpdatePackages(pkgs ...Package) error

	// PackageExists reports whether the package is installed on the target.
	PackageExists(pkg Package) (bool, error)

	// PackageInRepo reports whether the package is available from the
	// target's configured repositories.
	PackageInRepo(pkg Package) (bool, error)

	// PackageInformation resolves the installed version of a package.
	// Results are cached per instance; useCached=false forces a re-query.
	PackageInformation(name string, useCached bool) (osver.Version, error)

	// Repositories enumerates the configured package repositories. The
	// returned slice is fresh on every call, never cached.
	Repositories() ([]types.Repository, error)

	// AddRepository registers an extra package repository.
	AddRepository(repo string, opts ...RepoOption) error

	// ReplaceBootKernel makes the given installed kernel the boot default.
	ReplaceBootKernel(kernelVersion string) error

	// CaptureSystemInformation writes a diagnostic snapshot of the target
	// into dir.
	CaptureSystemInformation(dir string) error
}

// GroupInstaller is implemented by variants whose package manager groups
// packages (yum's "Development Tools" and friends).
type GroupInstaller interface {
	// InstallPackageGroup installs a named package group.
	InstallPackageGroup(group string) error
}

// VersionComparer is implemented by variants whose package-version syntax
// has a defined total order (dpkg and rpm rules differ; both differ from
// plain semver).
type VersionComparer interface {
	// CompareVersions returns -1, 0 or 1 as a is older than, equal to or
	// newer than b under the family's comparison rules.
	CompareVersions(a, b string) (int, error)
}

// Factory builds a variant bound to a runner.
type Factory func(r shell.Runner, pol *Policy) OperatingSystem

// Policy collects the timing knobs of the package-manager strategies.
// The defaults encode the production behavior; tests shrink them.
type Policy struct {
	// InstallTries/InstallDelay retry transient install failures.
	InstallTries uint
	InstallDelay time.Duration

	// InitTries/InitDelay retry package-index initialization and
	// repository registration.
	InitTries uint
	InitDelay time.Duration

	// LockTimeout bounds the wait for a competing package-manager process.
	LockTimeout time.Duration

	// DpkgLockTimeout is the longer bound used for dpkg, which routinely
	// holds its lock for minutes on first boot.
	DpkgLockTimeout time.Duration

	// LockPoll is the cadence of the lock-wait loop.
	LockPoll time.Duration
}

// DefaultPolicy returns the production retry and lock-wait policy.
func DefaultPolicy() *Policy {
	return &Policy{
		InstallTries:    30,
		InstallDelay:    10 * time.Second,
		InitTries:       10,
		InitDelay:       5 * time.Second,
		LockTimeout:     5 * time.Minute,
		DpkgLockTimeout: 10 * time.Minute,
		LockPoll:        time.Second,
	}
}
