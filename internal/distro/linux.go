package distro

import (
	"github.com/ancients-collective/hostenv/internal/shell"
)

// newBareLinux assembles a Linux variant without package management. Identity
// and kernel probing still work; every package operation reports
// ErrNotImplemented.
func newBareLinux(r shell.Runner, pol *Policy, name string) *posix {
	return newPosix(r, pol, name)
}

// NewLinux builds the generic Linux fallback used when only uname matched.
func NewLinux(r shell.Runner, pol *Policy) OperatingSystem {
	return newBareLinux(r, pol, "Linux")
}

// NewOtherLinux builds the catch-all for distributions recognized only
// through their ID_LIKE ancestry.
func NewOtherLinux(r shell.Runner, pol *Policy) OperatingSystem {
	return newBareLinux(r, pol, "OtherLinux")
}

// NewCoreOs builds the Flatcar/CoreOS variant. The OS is image-based with a
// read-only /usr, so there is no package manager to drive.
func NewCoreOs(r shell.Runner, pol *Policy) OperatingSystem {
	return newBareLinux(r, pol, "CoreOs")
}

// NewNixOS builds the NixOS variant. Packages come from declarative system
// configuration rather than imperative installs.
func NewNixOS(r shell.Runner, pol *Policy) OperatingSystem {
	return newBareLinux(r, pol, "NixOS")
}
