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

// suseRepositoryPattern parses one data row of `zypper lr`:
//
//	4 | repo-oss | Main Repository | Yes | (r ) Yes | Yes
var suseRepositoryPattern = regexp.MustCompile(
	`(?P<id>\d+)\s+\|\s+(?P<alias>\S.+\S)\s+\|\s+(?P<name>\S.*\S)\s+\|\s+(?P<enabled>\S.*\S)\s+\|\s+(?P<gpgcheck>\S.*\S)\s+\|\s+(?P<refresh>\S.*\S)`,
)

// zypper exit codes carry meaning beyond success/failure.
const (
	zypperExitErr         = 1
	zypperExitNoUpdates   = 100
	zypperExitRepoExists  = "already exists. Please use another alias."
	zypperNonInteractive  = "zypper --non-interactive"
	zypperAutoImportFlags = "zypper --non-interactive --gpg-auto-import-keys"
)

// zypperManager drives zypper on SUSE-family targets.
type zypperManager struct {
	runner shell.Runner
	pol    *Policy
}

// initialize refreshes the repository metadata, first waiting out any zypper
// instance already holding the lock.
func (m *zypperManager) initialize() error {
	if err := waitRunningProcess(m.runner, m.pol, "zypper", m.pol.LockTimeout); err != nil {
		return err
	}
	result, err := m.runner.Execute(zypperAutoImportFlags+" refresh", shell.WithSudo())
	if err != nil {
		return err
	}
	return result.AssertExitCode("fail to run zypper refresh")
}

func (m *zypperManager) install(names []string, o InstallOptions) error {
	if err := waitRunningProcess(m.runner, m.pol, "zypper", m.pol.LockTimeout); err != nil {
		return err
	}

	cmd := zypperNonInteractive
	if len(o.ExtraArgs) > 0 {
		cmd += " " + strings.Join(o.ExtraArgs, " ")
	}
	if o.Unsigned {
		cmd += " --no-gpg-checks"
	}
	cmd += " in " + strings.Join(names, " ")

	result, err := m.runner.Execute(cmd, shell.WithSudo(), shell.WithTimeout(o.Timeout))
	if err != nil {
		return err
	}
	switch result.ExitCode {
	case 0:
		logx.Debug("packages installed", "packages", strings.Join(names, " "))
		return nil
	case zypperExitErr, zypperExitNoUpdates:
		return &InstallError{Packages: names, ExitCode: result.ExitCode, Output: result.Stderr}
	default:
		// 102/103: reboot or zypper restart suggested, the install itself
		// succeeded
		logx.Debug("zypper finished with a post-install hint", "exit_code", result.ExitCode)
		return nil
	}
}

func (m *zypperManager) update(names []string) error {
	if err := waitRunningProcess(m.runner, m.pol, "zypper", m.pol.LockTimeout); err != nil {
		return err
	}

	cmd := zypperAutoImportFlags + " update"
	if len(names) > 0 {
		cmd += " " + strings.Join(names, " ")
	}
	result, err := m.runner.Execute(cmd, shell.WithSudo(), shell.WithTimeout(updateTimeout))
	if err != nil {
		return err
	}
	return result.AssertExitCode("fail to run zypper update", 0, zypperExitNoUpdates)
}

func (m *zypperManager) exists(name string) (bool, error) {
	result, err := m.runner.Execute(
		fmt.Sprintf("zypper search --installed-only --match-exact %s", name),
		shell.WithSudo(), shell.WithNoErrorLog(),
	)
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

func (m *zypperManager) inRepo(name string) (bool, error) {
	result, err := m.runner.Execute(
		fmt.Sprintf("zypper search -s --match-exact %s", name),
		shell.WithSudo(), shell.WithNoErrorLog(),
	)
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

func (m *zypperManager) packageVersion(name string) (osver.Version, error) {
	return rpmQueryVersion(m.runner, name)
}

// repositories refreshes the metadata and parses the `zypper lr` table.
// zypper colorizes its output even without a tty, so escape sequences are
// stripped before matching.
func (m *zypperManager) repositories() ([]types.Repository, error) {
	if err := runRetry(m.pol.InitTries, m.pol.InitDelay, m.initialize); err != nil {
		return nil, err
	}
	result, err := m.runner.Execute("zypper lr", shell.WithSudo())
	if err != nil {
		return nil, err
	}
	if err := result.AssertExitCode("fail to list zypper repositories"); err != nil {
		return nil, err
	}

	var repos []types.Repository
	for _, line := range strings.Split(result.Stdout, "\n") {
		groups, ok := osver.FindNamedGroups(osver.FilterANSIEscape(line), suseRepositoryPattern)
		if !ok {
			continue
		}
		repos = append(repos, types.SuseRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: strings.TrimSpace(groups["name"])},
			ID:             groups["id"],
			Alias:          strings.TrimSpace(groups["alias"]),
			Enabled:        strings.Contains(groups["enabled"], "Yes"),
			GPGCheck:       strings.Contains(groups["gpgcheck"], "Yes"),
			Refresh:        strings.Contains(groups["refresh"], "Yes"),
		})
	}
	return repos, nil
}

// addRepository registers repo under the alias in o.Name. Re-adding an
// existing alias is not an error.
func (m *zypperManager) addRepository(repo string, o RepoOptions) error {
	cmd := "zypper ar"
	if !o.GPGCheck {
		cmd += " -G"
	}
	cmd += fmt.Sprintf(" %s %s", repo, o.Name)

	result, err := m.runner.Execute(cmd, shell.WithSudo())
	if err != nil {
		return err
	}
	if result.ExitCode != 0 && !strings.Contains(result.Stdout+result.Stderr, zypperExitRepoExists) {
		return result.AssertExitCode("fail to add repository " + repo)
	}
	return nil
}

func newSuseNamed(r shell.Runner, pol *Policy, name string) *posix {
	p := newPosix(r, pol, name)
	p.pm = &zypperManager{runner: r, pol: p.pol}
	p.caps = CapPackages | CapPackageVersion | CapRepositories | CapAddRepository | CapCompareVersions
	p.compareFn = compareRPMVersions
	p.captureExtra = []string{"/etc/SuSE-release"}
	return p
}

// NewSuse builds the openSUSE variant.
func NewSuse(r shell.Runner, pol *Policy) OperatingSystem {
	return newSuseNamed(r, pol, "Suse")
}

// NewSLES builds the SUSE Linux Enterprise Server variant.
func NewSLES(r shell.Runner, pol *Policy) OperatingSystem {
	return newSuseNamed(r, pol, "SLES")
}
