package distro

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

var (
	// Red Hat Enterprise Linux Server 7.8 (Maipo) => 7.8
	fedoraReleaseVersionPattern = regexp.MustCompile(`^.*release\s+([0-9.]+).*$`)

	// 305.40.1.el8_4.x86_64 / 240.el8.x86_64
	redhatKernelPartsPattern = regexp.MustCompile(
		`^(?P<part1>\d+)\.(?P<part2>\d+)?\.?(?P<part3>\d+)?\.?(?P<distro>.*?)\.(?P<platform>.*?)$`,
	)

	// Red Hat Enterprise Linux Server release 6.9 (Santiago)
	// CentOS Linux release 8.3.2011
	legacyRedhatPattern = regexp.MustCompile(
		`^(?P<vendor>.*?)?(?: Enterprise Linux Server)?(?: Linux)?(?: release)? (?P<version>[0-9.]+)(?: \((?P<codename>.*).*\))?$`,
	)

	// "Oracle Linux Server" => "Oracle", "Red Hat Enterprise Linux" => "Red Hat"
	redhatVendorPattern = regexp.MustCompile(`^(?P<vendor>.*?)(?: Enterprise)?(?: Linux)?(?: Server)?$`)
)

// redhatKernelParts refines kernel version parts on Red Hat derivatives:
// the trailing token carries its own numeric triplet plus distro and
// platform suffixes.
//
//	['4','18','0','305.40.1.el8_4.x86_64'] => ['4','18','0','305','40','1','el8_4','x86_64']
func redhatKernelParts(info types.KernelInformation) (types.KernelInformation, error) {
	groups, ok := osver.FindNamedGroups(info.VersionParts[3], redhatKernelPartsPattern)
	if !ok {
		return info, nil
	}
	info.VersionParts = append(info.VersionParts[:3:3],
		groups["part1"], groups["part2"], groups["part3"], groups["distro"], groups["platform"])
	return info, nil
}

// NewFedora builds the Fedora variant: dnf package management, identity from
// /etc/fedora-release.
func NewFedora(r shell.Runner, pol *Policy) OperatingSystem {
	p := newPosix(r, pol, "Fedora")
	p.pm = &dnfManager{runner: r, pol: p.pol, toolName: "dnf"}
	p.caps = CapPackages | CapPackageVersion | CapRepositories | CapAddRepository | CapCompareVersions
	p.compareFn = compareRPMVersions
	p.kernelFn = redhatKernelParts
	p.infoFn = func() (types.OsInformation, error) { return fedoraInformation(p) }
	return p
}

// fedoraInformation parses "/etc/fedora-release", typically
// "Fedora release 22 (Twenty Two)".
func fedoraInformation(p *posix) (types.OsInformation, error) {
	result, err := p.runner.Execute("cat /etc/fedora-release", shell.WithNoErrorLog())
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}

	fullVersion := strings.TrimSpace(result.Stdout)
	if !strings.Contains(fullVersion, "Fedora") {
		return types.OsInformation{}, &IncompleteInfoError{Field: "vendor"}
	}
	return buildOsInformation(
		"Fedora",
		osver.ExtractFirstMatch(fullVersion, fedoraReleaseVersionPattern),
		osver.ExtractFirstMatch(fullVersion, distroCodenamePattern),
		fullVersion,
	)
}

func newRedhatNamed(r shell.Runner, pol *Policy, name string) *posix {
	p := newPosix(r, pol, name)
	m := &dnfManager{runner: r, pol: p.pol, toolName: "yum", yumCompat: true}
	m.initFn = func(m *dnfManager) error { return redhatInitialize(p, m) }
	p.pm = m
	p.caps = CapPackages | CapPackageVersion | CapRepositories | CapAddRepository |
		CapCompareVersions | CapBootKernel | CapGroupInstall
	p.compareFn = compareRPMVersions
	p.kernelFn = redhatKernelParts
	p.infoFn = func() (types.OsInformation, error) { return redhatInformation(p) }
	// kernels on Red Hat derivatives become the boot default when their
	// RPM installs; there is nothing left to switch afterwards
	p.bootFn = func(string) error { return nil }
	p.groupInstallFn = func(group string) error { return yumGroupInstall(p, group) }
	p.captureExtra = []string{"/etc/redhat-release"}
	return p
}

// NewRedhat builds the Red Hat Enterprise Linux variant.
func NewRedhat(r shell.Runner, pol *Policy) OperatingSystem {
	return newRedhatNamed(r, pol, "Redhat")
}

// redhatInitialize refreshes the Azure RHUI client package before the first
// yum operation; an out-of-date rhui-microsoft-azure-rhel otherwise breaks
// every subsequent repo access. Non-Red-Hat vendors (Oracle, AlmaLinux)
// skip it.
func redhatInitialize(p *posix, m *dnfManager) error {
	info, err := p.Information()
	if err != nil {
		return err
	}
	if info.Vendor != "Red Hat" {
		return nil
	}
	result, err := m.runner.Execute("yum update -y --disablerepo='*' --enablerepo='*microsoft*'", shell.WithSudo())
	if err != nil {
		return err
	}
	return result.AssertExitCode("failed to refresh rhui client package")
}

// redhatInformation resolves identity from /etc/os-release on 7.0+, trimming
// the "Enterprise Linux Server" tail off the vendor, and falls back to the
// legacy /etc/redhat-release wording for 6.x images.
func redhatInformation(p *posix) (types.OsInformation, error) {
	info, err := p.osReleaseInformation()
	if err == nil {
		info.Vendor = osver.ExtractFirstMatch(info.Vendor, redhatVendorPattern)
		return info, nil
	}

	result, execErr := p.runner.Execute("cat /etc/redhat-release", shell.WithNoErrorLog())
	if execErr != nil {
		return types.OsInformation{}, execErr
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}

	fullVersion := strings.TrimSpace(result.Stdout)
	groups, ok := osver.FindNamedGroups(fullVersion, legacyRedhatPattern)
	if !ok || groups["vendor"] == "" {
		return types.OsInformation{}, &IncompleteInfoError{Field: "vendor"}
	}
	return buildOsInformation(groups["vendor"], groups["version"], groups["codename"], fullVersion)
}

// yumGroupInstall installs a yum package group, for example
// "Development Tools".
func yumGroupInstall(p *posix, group string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	result, err := p.runner.Execute(fmt.Sprintf(`yum -y groupinstall "%s"`, group), shell.WithSudo())
	if err != nil {
		return err
	}
	switch result.ExitCode {
	case 0:
		logx.Debug("package group installed", "group", group)
		return nil
	case 1:
		// yum exits 1 when dnf handled an error itself; warn, don't fail
		logx.Warn("package manager handled an error during group install", "group", group)
		return nil
	default:
		return &InstallError{Packages: []string{group}, ExitCode: result.ExitCode, Output: result.Stderr}
	}
}

// NewCentOs builds the CentOS variant. CentOS 8 is end-of-life and its
// original mirrors moved to vault.centos.org; initialization flips yum to
// skip_if_unavailable when the configured repos no longer resolve.
func NewCentOs(r shell.Runner, pol *Policy) OperatingSystem {
	p := newRedhatNamed(r, pol, "CentOs")
	p.captureExtra = append(p.captureExtra, "/etc/centos-release")
	m := p.pm.(*dnfManager)
	m.initFn = func(m *dnfManager) error {
		info, err := p.Information()
		if err != nil {
			return err
		}
		if info.Version.Major != 8 {
			return nil
		}
		result, err := m.runner.Execute("yum repolist -v", shell.WithSudo(), shell.WithNoErrorLog())
		if err != nil {
			return err
		}
		if result.ExitCode == 0 {
			return nil
		}
		_, err = m.runner.Execute("yum-config-manager --save --setopt=skip_if_unavailable=true", shell.WithSudo())
		return err
	}
	return p
}

// NewOracle builds the Oracle Linux variant, which behaves as Red Hat with
// an Oracle vendor string.
func NewOracle(r shell.Runner, pol *Policy) OperatingSystem {
	return newRedhatNamed(r, pol, "Oracle")
}
