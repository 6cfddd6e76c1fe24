package distro

import (
	"fmt"
	"regexp"
	"strings"

	rpmver "github.com/knqyf263/go-rpm-version"

	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

var (
	// microsoft-azure-rhel8-eus  Microsoft Azure RPMs for RHEL8 Extended Update Support
	rpmRepositoryPattern = regexp.MustCompile(`(?P<id>\S+)\s+(?P<name>\S.*\S)\s*`)

	// dpdk-20.11-3.el8.x86_64 or dpdk-18.11.8-1.el7_8.x86_64
	rpmVersionPattern = regexp.MustCompile(
		`(?P<package_name>[a-zA-Z0-9\-_]+)-(?P<major>[0-9]+)\.(?P<minor>[0-9]+)\.?(?P<patch>[0-9]+)?(?P<build>-[a-zA-Z0-9\-_.]+)?`,
	)
)

// compareRPMVersions orders two rpm version strings (epoch, version,
// release) under rpm comparison rules.
func compareRPMVersions(a, b string) (int, error) {
	return rpmver.NewVersion(a).Compare(rpmver.NewVersion(b)), nil
}

// dnfManager implements the RPM-family package strategy. The same strategy
// serves dnf, yum and tdnf; the tool name and a few behavioral switches are
// what distinguish the families.
type dnfManager struct {
	runner shell.Runner
	pol    *Policy

	// toolName is the package tool command: "dnf", "yum" or "tdnf -q".
	// CBL-Mariner resolves it during initialization.
	toolName string

	// initFn is the family-specific index initialization; nil is a no-op.
	// Red Hat refreshes its RHUI client package, CentOS 8 falls back to
	// the vault mirrors, CBL-Mariner picks between dnf and tdnf.
	initFn func(m *dnfManager) error

	// yumCompat tolerates yum's exit code 1 on handled install errors and
	// parses its "No match for argument:" diagnostics.
	yumCompat bool
}

func (m *dnfManager) tool() string {
	if m.toolName == "" {
		return "dnf"
	}
	return m.toolName
}

func (m *dnfManager) initialize() error {
	if m.initFn == nil {
		return nil
	}
	return m.initFn(m)
}

func (m *dnfManager) install(names []string, o InstallOptions) error {
	command := fmt.Sprintf("%s install %s -y %s", m.tool(), strings.Join(o.ExtraArgs, " "), strings.Join(names, " "))
	if o.Unsigned {
		command += " --nogpgcheck"
	}
	result, err := m.runner.Execute(command, shell.WithShell(), shell.WithSudo(), shell.WithTimeout(o.Timeout))
	if err != nil {
		return err
	}

	if m.yumCompat && result.ExitCode == 1 {
		// yum fails the whole transaction when a single package is
		// unknown; pick the unknown names out to report them precisely.
		var missing []string
		for _, line := range strings.Split(result.Stdout, "\n") {
			if rest, found := strings.CutPrefix(line, "No match for argument:"); found {
				missing = append(missing, strings.TrimSpace(rest))
			}
		}
		if len(missing) > 0 {
			return &MissingPackagesError{Packages: missing}
		}
		// exit 1 with no missing packages means dnf handled an error
		// itself; the transaction may still have partially applied.
		logx.Warn("package manager handled an install error", "packages", names)
		return nil
	}

	if result.ExitCode != 0 {
		return &InstallError{Packages: names, ExitCode: result.ExitCode, Output: result.Stderr}
	}
	logx.Debug("packages installed", "packages", names)
	return nil
}

func (m *dnfManager) update(names []string) error {
	command := fmt.Sprintf("%s update -y --nogpgcheck %s", m.tool(), strings.Join(names, " "))
	// older or under-provisioned images take a long time here
	result, err := m.runner.Execute(command, shell.WithShell(), shell.WithSudo(), shell.WithTimeout(updateTimeout))
	if err != nil {
		return err
	}
	return result.AssertExitCode("failed to update packages")
}

func (m *dnfManager) exists(name string) (bool, error) {
	result, err := m.runner.Execute(fmt.Sprintf("%s list installed %s", m.tool(), name), shell.WithSudo(), shell.WithNoErrorLog())
	if err != nil {
		return false, err
	}
	if result.ExitCode != 0 {
		return false, nil
	}
	if m.yumCompat {
		return true, nil
	}
	for _, row := range strings.Split(result.Stdout, "\n") {
		if strings.Contains(row, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *dnfManager) inRepo(name string) (bool, error) {
	command := fmt.Sprintf("%s list %s -y", m.tool(), name)
	if m.yumCompat {
		command = fmt.Sprintf("%s --showduplicates list %s", m.tool(), name)
	}
	result, err := m.runner.Execute(command, shell.WithShell(), shell.WithSudo(), shell.WithNoErrorLog())
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

func (m *dnfManager) packageVersion(name string) (osver.Version, error) {
	return rpmQueryVersion(m.runner, name)
}

// rpmQueryVersion resolves the installed version straight from the rpm
// database, which every rpm-family manager shares.
func rpmQueryVersion(r shell.Runner, name string) (osver.Version, error) {
	result, err := r.Execute("rpm -q " + name)
	if err != nil {
		return osver.Version{}, err
	}
	if err := result.AssertExitCode("could not find package information for " + name); err != nil {
		return osver.Version{}, err
	}

	groups, ok := osver.FindNamedGroups(strings.TrimSpace(result.Stdout), rpmVersionPattern)
	if !ok {
		return osver.Version{}, &osver.ParseError{Input: result.Stdout}
	}
	return osver.FromNamedGroups(groups)
}

// repositories parses `repolist` output, skipping everything up to and
// including the "repo id" header row.
func (m *dnfManager) repositories() ([]types.Repository, error) {
	if err := runRetry(m.pol.InitTries, m.pol.InitDelay, m.initialize); err != nil {
		return nil, err
	}
	result, err := m.runner.Execute(m.tool()+" repolist", shell.WithSudo())
	if err != nil {
		return nil, err
	}

	var repos []types.Repository
	pastHeader := false
	for _, line := range strings.Split(result.Stdout, "\n") {
		if !pastHeader {
			pastHeader = strings.HasPrefix(line, "repo id")
			continue
		}
		groups, ok := osver.FindNamedGroups(line, rpmRepositoryPattern)
		if !ok {
			continue
		}
		repos = append(repos, types.RPMRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: groups["name"]},
			ID:             groups["id"],
		})
	}
	return repos, nil
}

func (m *dnfManager) addRepository(repo string, o RepoOptions) error {
	command := fmt.Sprintf(`yum-config-manager --add-repo "%s"`, repo)
	if !o.GPGCheck {
		command += " --nogpgcheck"
	}
	result, err := m.runner.Execute(command, shell.WithSudo())
	if err != nil {
		return err
	}
	return result.AssertExitCode("fail to add repository")
}

// NewCBLMariner builds the CBL-Mariner variant. Mariner images ship either
// dnf or the lighter tdnf; initialization probes which one is present.
func NewCBLMariner(r shell.Runner, pol *Policy) OperatingSystem {
	p := newPosix(r, pol, "CBLMariner")
	p.pm = &dnfManager{
		runner: r,
		pol:    p.pol,
		initFn: func(m *dnfManager) error {
			result, err := m.runner.Execute("command -v dnf", shell.WithShell(), shell.WithNoErrorLog())
			if err == nil && result.ExitCode == 0 {
				m.toolName = "dnf"
				return nil
			}
			m.toolName = "tdnf -q"
			return nil
		},
	}
	p.caps = CapPackages | CapPackageVersion | CapRepositories | CapAddRepository | CapCompareVersions
	p.compareFn = compareRPMVersions
	return p
}
