package distro

import (
	"strings"

	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// The BSD family is classified and probed but has no package-management
// support wired up. uname and /etc/os-release equivalents behave close enough
// to Linux that the shared POSIX behavior applies.

func newBSDNamed(r shell.Runner, pol *Policy, name string) *posix {
	p := newPosix(r, pol, name)
	p.infoFn = func() (types.OsInformation, error) { return unameInformation(p, name) }
	return p
}

// NewBSD builds the generic BSD fallback.
func NewBSD(r shell.Runner, pol *Policy) OperatingSystem {
	return newBSDNamed(r, pol, "BSD")
}

// NewFreeBSD builds the FreeBSD variant.
func NewFreeBSD(r shell.Runner, pol *Policy) OperatingSystem {
	return newBSDNamed(r, pol, "FreeBSD")
}

// NewOpenBSD builds the OpenBSD variant.
func NewOpenBSD(r shell.Runner, pol *Policy) OperatingSystem {
	return newBSDNamed(r, pol, "OpenBSD")
}

// NewMacOS builds the macOS variant.
func NewMacOS(r shell.Runner, pol *Policy) OperatingSystem {
	return newBSDNamed(r, pol, "MacOS")
}

// unameInformation resolves identity from uname alone; the BSDs have no
// /etc/os-release.
func unameInformation(p *posix, vendor string) (types.OsInformation, error) {
	result, err := p.runner.Execute("uname -rs")
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}

	fullVersion := strings.TrimSpace(result.Stdout)
	_, release, found := strings.Cut(fullVersion, " ")
	if !found {
		return types.OsInformation{}, &IncompleteInfoError{Field: "release"}
	}
	return buildOsInformation(vendor, release, "", fullVersion)
}
