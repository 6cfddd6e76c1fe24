package distro

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// osInfoLinePattern parses one key=value line of /etc/os-release, shedding
// optional quoting around the value.
var osInfoLinePattern = regexp.MustCompile(`^(?P<name>[^=]+)=["']?(?P<value>.*?)["']?$`)

// distroCodenamePattern carves the codename out of a parenthesized suffix:
// "Fedora release 22 (Twenty Two)" => "Twenty Two".
var distroCodenamePattern = regexp.MustCompile(`^.*\(([^)]+)`)

// unamePattern splits `uname -rvio` output: release token, free-form build
// info, hardware platform, operating system.
var unamePattern = regexp.MustCompile(`^(?P<raw>\S+)\s+(?P<build>.*)\s+(?P<platform>\S+)\s+(?P<os>\S+)$`)

// posix carries the behavior shared by every POSIX-family variant. Concrete
// variants are assembled by their constructors out of strategy hooks: a
// package manager, an identity resolver, and optional kernel/boot behaviors.
type posix struct {
	runner shell.Runner
	pol    *Policy

	name string
	caps Capability

	pm packageManager

	// infoFn resolves the variant's identity; nil uses /etc/os-release.
	infoFn func() (types.OsInformation, error)

	// kernelFn post-processes kernel information; nil keeps it as-is.
	kernelFn func(types.KernelInformation) (types.KernelInformation, error)

	// bootFn replaces the default boot kernel; nil means unsupported.
	bootFn func(kernelVersion string) error

	// compareFn orders package version strings; nil means unsupported.
	compareFn func(a, b string) (int, error)

	// groupInstallFn installs a named package group; nil means unsupported.
	groupInstallFn func(group string) error

	// captureExtra lists additional files copied back by
	// CaptureSystemInformation, e.g. /etc/redhat-release.
	captureExtra []string

	info        *types.OsInformation
	packages    map[string]osver.Version
	initialized bool
}

func newPosix(r shell.Runner, pol *Policy, name string) *posix {
	if pol == nil {
		pol = DefaultPolicy()
	}
	return &posix{
		runner:   r,
		pol:      pol,
		name:     name,
		packages: make(map[string]osver.Version),
	}
}

func (p *posix) Name() string { return p.name }

func (p *posix) IsPosix() bool { return true }

func (p *posix) Capabilities() Capability { return p.caps }

// Information resolves and memoizes the target's identity.
func (p *posix) Information() (types.OsInformation, error) {
	if p.info != nil {
		return *p.info, nil
	}
	resolve := p.infoFn
	if resolve == nil {
		resolve = p.osReleaseInformation
	}
	info, err := resolve()
	if err != nil {
		return types.OsInformation{}, err
	}
	logx.Debug("parsed os information", "os", p.name, "vendor", info.Vendor, "release", info.Release)
	p.info = &info
	return info, nil
}

// osReleaseInformation is the default identity resolver: parse
// /etc/os-release and require vendor and release to be present.
func (p *posix) osReleaseInformation() (types.OsInformation, error) {
	result, err := p.runner.Execute("cat /etc/os-release")
	if err != nil {
		return types.OsInformation{}, err
	}
	if err := result.AssertExitCode("error on get os information"); err != nil {
		return types.OsInformation{}, err
	}

	fields := parseOsReleaseLines(result.Stdout)
	return buildOsInformation(
		fields["NAME"],
		fields["VERSION_ID"],
		osver.ExtractFirstMatch(fields["VERSION"], distroCodenamePattern),
		fields["PRETTY_NAME"],
	)
}

// parseOsReleaseLines splits key="value" lines into a map. Lines that do not
// match the shape are skipped.
func parseOsReleaseLines(stdout string) map[string]string {
	fields := make(map[string]string)
	for _, row := range strings.Split(stdout, "\n") {
		groups, ok := osver.FindNamedGroups(strings.TrimRight(row, "\r"), osInfoLinePattern)
		if !ok {
			continue
		}
		fields[groups["name"]] = groups["value"]
	}
	return fields
}

// buildOsInformation validates the mandatory fields and assembles the
// record. A recognized family whose source yields no vendor or release is a
// detection mismatch, not a partial success.
func buildOsInformation(vendor, release, codename, fullVersion string) (types.OsInformation, error) {
	if vendor == "" {
		return types.OsInformation{}, &IncompleteInfoError{Field: "vendor"}
	}
	if release == "" {
		return types.OsInformation{}, &IncompleteInfoError{Field: "release"}
	}
	version, err := osver.Parse(release)
	if err != nil {
		return types.OsInformation{}, err
	}
	if fullVersion == "" {
		fullVersion = "Unknown"
	}
	return types.OsInformation{
		Version:     version,
		Vendor:      vendor,
		Release:     release,
		Codename:    codename,
		FullVersion: fullVersion,
	}, nil
}

// KernelInformation probes the kernel via uname. uname prints the fields in
// its own canonical order: release, build info, hardware platform,
// operating system.
func (p *posix) KernelInformation() (types.KernelInformation, error) {
	result, err := p.runner.Execute("uname -rvio")
	if err != nil {
		return types.KernelInformation{}, err
	}
	if err := result.AssertExitCode("error on get kernel information"); err != nil {
		return types.KernelInformation{}, err
	}

	groups, ok := osver.FindNamedGroups(strings.TrimSpace(result.Stdout), unamePattern)
	if !ok {
		return types.KernelInformation{}, &osver.ParseError{Input: result.Stdout}
	}

	raw := groups["raw"]
	version, err := osver.Parse(raw)
	if err != nil {
		return types.KernelInformation{}, err
	}

	info := types.KernelInformation{
		Version:          version,
		RawVersion:       raw,
		HardwarePlatform: groups["platform"],
		OperatingSystem:  groups["os"],
		VersionParts: []string{
			strconv.Itoa(version.Major),
			strconv.Itoa(version.Minor),
			strconv.Itoa(version.Patch),
			version.Build,
		},
	}
	if p.kernelFn != nil {
		return p.kernelFn(info)
	}
	return info, nil
}

// ensureInitialized runs the package manager's one-time index refresh. The
// flag flips before the attempt: a hard initialization failure is not
// retried on the next operation.
func (p *posix) ensureInitialized() error {
	if p.initialized || p.pm == nil {
		return nil
	}
	p.initialized = true
	return runRetry(p.pol.InitTries, p.pol.InitDelay, p.pm.initialize)
}

func packageNames(pkgs []Package) []string {
	names := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		names[i] = pkg.PackageName()
	}
	return names
}

// InstallPackages installs pkgs with the family's tool, retrying transient
// failures per the policy.
func (p *posix) InstallPackages(pkgs []Package, opts ...InstallOption) error {
	if p.pm == nil {
		return &NotImplementedError{Op: "install packages", OS: p.name}
	}
	names := packageNames(pkgs)
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	o := buildInstallOptions(opts...)
	return runRetry(p.pol.InstallTries, p.pol.InstallDelay, func() error {
		return p.pm.install(names, o)
	})
}

// UpdatePackages upgrades pkgs, or the whole system when none are given.
func (p *posix) UpdatePackages(pkgs ...Package) error {
	if p.pm == nil {
		return &NotImplementedError{Op: "update packages", OS: p.name}
	}
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	return p.pm.update(packageNames(pkgs))
}

// PackageExists reports whether pkg is installed on the target.
func (p *posix) PackageExists(pkg Package) (bool, error) {
	if p.pm == nil {
		return false, &NotImplementedError{Op: "package existence check", OS: p.name}
	}
	if err := p.ensureInitialized(); err != nil {
		return false, err
	}
	return p.pm.exists(pkg.PackageName())
}

// PackageInRepo reports whether pkg can be installed from the configured
// repositories.
func (p *posix) PackageInRepo(pkg Package) (bool, error) {
	if p.pm == nil {
		return false, &NotImplementedError{Op: "package repo check", OS: p.name}
	}
	if err := p.ensureInitialized(); err != nil {
		return false, err
	}
	return p.pm.inRepo(pkg.PackageName())
}

// PackageInformation resolves the installed version of a package, consulting
// the per-instance cache first.
func (p *posix) PackageInformation(name string, useCached bool) (osver.Version, error) {
	if p.pm == nil {
		return osver.Version{}, &NotImplementedError{Op: "package information", OS: p.name}
	}
	if v, ok := p.packages[name]; ok && useCached {
		return v, nil
	}
	v, err := p.pm.packageVersion(name)
	if err != nil {
		return osver.Version{}, err
	}
	logx.Debug("resolved package version", "package", name, "version", v.String())
	p.packages[name] = v
	return v, nil
}

// Repositories enumerates configured package repositories.
func (p *posix) Repositories() ([]types.Repository, error) {
	if p.pm == nil || !p.caps.Has(CapRepositories) {
		return nil, &NotImplementedError{Op: "get repositories", OS: p.name}
	}
	return p.pm.repositories()
}

// AddRepository registers an extra package repository, retrying transient
// failures per the policy.
func (p *posix) AddRepository(repo string, opts ...RepoOption) error {
	if p.pm == nil || !p.caps.Has(CapAddRepository) {
		return &NotImplementedError{Op: "add repository", OS: p.name}
	}
	var o RepoOptions
	for _, opt := range opts {
		opt(&o)
	}
	return runRetry(p.pol.InitTries, p.pol.InitDelay, func() error {
		return p.pm.addRepository(repo, o)
	})
}

// ReplaceBootKernel makes kernelVersion the boot default.
func (p *posix) ReplaceBootKernel(kernelVersion string) error {
	if p.bootFn == nil {
		return &NotImplementedError{Op: "replace boot kernel", OS: p.name}
	}
	return p.bootFn(kernelVersion)
}

// InstallPackageGroup installs a named package group, for example yum's
// "Development Tools".
func (p *posix) InstallPackageGroup(group string) error {
	if p.groupInstallFn == nil {
		return &NotImplementedError{Op: "install package group", OS: p.name}
	}
	return p.groupInstallFn(group)
}

// CompareVersions orders two package version strings under the family's
// rules.
func (p *posix) CompareVersions(a, b string) (int, error) {
	if p.compareFn == nil {
		return 0, &NotImplementedError{Op: "version comparison", OS: p.name}
	}
	return p.compareFn(a, b)
}

func writeCaptureFile(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

// CaptureSystemInformation writes a diagnostic snapshot into dir: uname,
// boot time, the hv_netvsc module, and the identity files the variant
// declares. Individual command failures are recorded in the files, not
// surfaced; a target missing modinfo is normal.
func (p *posix) CaptureSystemInformation(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	capture := func(cmd, file string, opts ...shell.Option) {
		result, err := p.runner.Execute(cmd, opts...)
		if err != nil {
			return
		}
		_ = os.WriteFile(filepath.Join(dir, file), []byte(result.Stdout), 0o644)
	}

	capture("uname -vrio", "uname.txt")
	capture("uptime -s || last reboot -F | head -1 | awk '{print $9,$6,$7,$8}'", "uptime.txt", shell.WithShell())
	capture("modinfo hv_netvsc", "modinfo-hv_netvsc.txt")

	copier, ok := p.runner.(shell.FileCopier)
	if !ok {
		return nil
	}
	for _, remote := range append([]string{"/etc/os-release"}, p.captureExtra...) {
		local := filepath.Join(dir, strings.TrimPrefix(filepath.Base(remote), ".")+".txt")
		if err := copier.CopyBack(remote, local); err != nil {
			logx.Debug("skipping copy-back, file not present", "path", remote)
		}
	}
	return nil
}
