package distro

import (
	"fmt"
	"strings"

	debver "github.com/knqyf263/go-deb-version"

	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// compareDebVersions orders two dpkg version strings (epoch, upstream,
// revision) under Debian policy rules.
func compareDebVersions(a, b string) (int, error) {
	va, err := debver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", a, err)
	}
	vb, err := debver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", b, err)
	}
	return va.Compare(vb), nil
}

// NewDebian builds the Debian variant: apt package management, identity from
// /etc/os-release refined with /etc/debian_version.
func NewDebian(r shell.Runner, pol *Policy) OperatingSystem {
	return newDebianNamed(r, pol, "Debian")
}

func newDebianNamed(r shell.Runner, pol *Policy, name string) *posix {
	p := newPosix(r, pol, name)
	p.pm = &aptManager{runner: r, pol: p.pol}
	p.caps = CapPackages | CapPackageVersion | CapRepositories | CapAddRepository | CapCompareVersions
	p.compareFn = compareDebVersions
	p.infoFn = func() (types.OsInformation, error) { return debianInformation(p) }
	return p
}

// debianInformation resolves the Debian identity. /etc/os-release carries an
// integer-only VERSION_ID on Debian, so the precise point release is read
// from /etc/debian_version instead (10 there is 10.7).
func debianInformation(p *posix) (types.OsInformation, error) {
	result, err := p.runner.Execute("cat /etc/os-release")
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}
	fields := parseOsReleaseLines(result.Stdout)

	result, err = p.runner.Execute("cat /etc/debian_version")
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get debian version"); err != nil {
		return types.OsInformation{}, err
	}
	release := strings.TrimSpace(result.Stdout)

	return buildOsInformation(
		fields["NAME"],
		release,
		osver.ExtractFirstMatch(fields["VERSION"], distroCodenamePattern),
		fields["PRETTY_NAME"],
	)
}

// NewUbuntu builds the Ubuntu variant: Debian's package strategy, identity
// from lsb_release, and grub-based boot kernel replacement.
func NewUbuntu(r shell.Runner, pol *Policy) OperatingSystem {
	p := newDebianNamed(r, pol, "Ubuntu")
	p.caps |= CapBootKernel
	p.infoFn = func() (types.OsInformation, error) { return ubuntuInformation(p) }
	p.bootFn = func(kernelVersion string) error { return ubuntuReplaceBootKernel(p, kernelVersion) }
	return p
}

// ubuntuInformation parses `lsb_release -a` key: value rows.
func ubuntuInformation(p *posix) (types.OsInformation, error) {
	result, err := p.runner.Execute("lsb_release -a", shell.WithShell(), shell.WithNoErrorLog())
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}

	var vendor, release, codename, fullVersion string
	for _, row := range strings.Split(result.Stdout, "\n") {
		name, value, found := strings.Cut(row, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch name {
		case "Distributor ID":
			vendor = value
		case "Release":
			release = value
		case "Codename":
			codename = value
		case "Description":
			fullVersion = value
		}
	}
	return buildOsInformation(vendor, release, codename, fullVersion)
}

// ubuntuReplaceBootKernel points grub's default entry at the given installed
// kernel and regenerates the boot configuration.
//
// grub.cfg carries one menuentry per kernel plus a recovery twin:
//
//	menuentry 'Ubuntu, with Linux 5.11.0-1011-azure' ... $menuentry_id_option
//	'gnulinux-5.11.0-1011-azure-advanced-3fdd2548-...-9191404598fb' {
func ubuntuReplaceBootKernel(p *posix, kernelVersion string) error {
	result, err := p.runner.Execute("cat /boot/grub/grub.cfg", shell.WithSudo())
	if err != nil {
		return err
	}
	if err := result.AssertExitCode("error on read grub config"); err != nil {
		return err
	}

	submenuID := findGrubMenuEntry(result.Stdout, kernelVersion)
	if submenuID == "" {
		return fmt.Errorf("cannot find grub menu entry for kernel %q", kernelVersion)
	}
	logx.Debug("matched grub submenu id", "id", submenuID)

	menuID := grubTopLevelMenuID(submenuID)
	if menuID == "" {
		return fmt.Errorf("cannot composite top-level menu id from %q", submenuID)
	}
	menuEntry := menuID + ">" + submenuID
	logx.Debug("composited grub menu entry", "entry", menuEntry)

	substitute := fmt.Sprintf(`sed -i "s|^GRUB_DEFAULT=.*|GRUB_DEFAULT='%s'|" /etc/default/grub`, menuEntry)
	result, err = p.runner.Execute(substitute, shell.WithShell(), shell.WithSudo())
	if err != nil {
		return err
	}
	if err := result.AssertExitCode("error on set grub default entry"); err != nil {
		return err
	}

	result, err = p.runner.Execute("update-grub", shell.WithSudo())
	if err != nil {
		return err
	}
	if err := result.AssertExitCode("error on update-grub"); err != nil {
		return err
	}

	// Tool packages for the new kernel are nice to have; their absence in
	// the repos must not fail the kernel switch.
	toolErr := p.InstallPackages(Pkgs(
		"linux-tools-"+kernelVersion+"-azure",
		"linux-cloud-tools-"+kernelVersion+"-azure",
		"linux-headers-"+kernelVersion+"-azure",
	))
	if toolErr != nil {
		logx.Debug("ignorable error installing kernel tool packages", "err", toolErr)
	}
	return nil
}
