package distro

import (
	"regexp"

	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// Microsoft Windows [Version 10.0.22000.100]
var windowsVersionPattern = regexp.MustCompile(`(?m)^Microsoft Windows \[Version (?P<version>[0-9.]*?)\]`)

// Windows is the non-POSIX variant. Classification never probes it: any
// target without a POSIX shell is Windows by definition. Package management
// and kernel probing are not part of its contract.
type Windows struct {
	runner shell.Runner
	info   *types.OsInformation
}

// NewWindows returns the Windows variant bound to r.
func NewWindows(r shell.Runner) *Windows {
	return &Windows{runner: r}
}

func (w *Windows) Name() string { return "Windows" }

func (w *Windows) IsPosix() bool { return false }

func (w *Windows) Capabilities() Capability { return 0 }

// Information resolves the Windows version from `ver`.
func (w *Windows) Information() (types.OsInformation, error) {
	if w.info != nil {
		return *w.info, nil
	}

	result, err := w.runner.Execute("ver", shell.WithShell(), shell.WithNoErrorLog())
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}

	groups, ok := osver.FindNamedGroups(result.Stdout, windowsVersionPattern)
	if !ok {
		return types.OsInformation{}, &osver.ParseError{Input: result.Stdout}
	}
	versionString := groups["version"]

	version, err := osver.Parse(versionString)
	if err != nil {
		return types.OsInformation{}, err
	}

	info := types.OsInformation{
		Version:     version,
		Vendor:      "Microsoft",
		Release:     versionString,
		FullVersion: result.Stdout,
	}
	w.info = &info
	return info, nil
}

func (w *Windows) KernelInformation() (types.KernelInformation, error) {
	return types.KernelInformation{}, &NotImplementedError{Op: "kernel information", OS: w.Name()}
}

func (w *Windows) InstallPackages(pkgs []Package, opts ...InstallOption) error {
	return &NotImplementedError{Op: "install packages", OS: w.Name()}
}

func (w *Windows) UpdatePackages(pkgs ...Package) error {
	return &NotImplementedError{Op: "update packages", OS: w.Name()}
}

func (w *Windows) PackageExists(pkg Package) (bool, error) {
	return false, &NotImplementedError{Op: "package existence check", OS: w.Name()}
}

func (w *Windows) PackageInRepo(pkg Package) (bool, error) {
	return false, &NotImplementedError{Op: "package repo check", OS: w.Name()}
}

func (w *Windows) PackageInformation(name string, useCached bool) (osver.Version, error) {
	return osver.Version{}, &NotImplementedError{Op: "package information", OS: w.Name()}
}

func (w *Windows) Repositories() ([]types.Repository, error) {
	return nil, &NotImplementedError{Op: "get repositories", OS: w.Name()}
}

func (w *Windows) AddRepository(repo string, opts ...RepoOption) error {
	return &NotImplementedError{Op: "add repository", OS: w.Name()}
}

func (w *Windows) ReplaceBootKernel(kernelVersion string) error {
	return &NotImplementedError{Op: "replace boot kernel", OS: w.Name()}
}

// CaptureSystemInformation records the `ver` banner.
func (w *Windows) CaptureSystemInformation(dir string) error {
	result, err := w.runner.Execute("ver", shell.WithShell(), shell.WithNoErrorLog())
	if err != nil {
		return err
	}
	return writeCaptureFile(dir, "ver.txt", result.Stdout)
}
