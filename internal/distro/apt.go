package distro

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

var (
	// Get:5 http://azure.archive.ubuntu.com/ubuntu focal-updates/main amd64 Packages [1298 kB]
	debianRepositoryPattern = regexp.MustCompile(
		`(?P<status>\S+):(?P<id>\d+)\s+(?P<uri>\S+)\s+(?P<name>\S+)\s+(?P<metadata>.*?)\s*$`,
	)

	// Package: dpdk
	// Version: 1:2.25.1-1ubuntu3.2
	debianPackageInfoPattern = regexp.MustCompile(
		`Package: ([a-zA-Z0-9:_\-.]+)\r?\nVersion: ([a-zA-Z0-9:_\-.~+]+)\r?\n`,
	)

	// Splits a dpkg version: optional epoch, major.minor.patch, build tail.
	debianVersionPattern = regexp.MustCompile(
		`(?:[0-9]+:)?(?P<major>[0-9]+)\.(?P<minor>[0-9]+)\.(?P<patch>[0-9]+)-(?P<build>[a-zA-Z0-9\-_.~+]+)`,
	)

	// `apt-cache policy <pkg>` for a package no repo carries prints either
	// "Candidate: (none)" or "Unable to locate package".
	packageCandidatePattern = regexp.MustCompile(
		`(?s)(.*?)(Candidate: \(none\)|Unable to locate package.*)`,
	)
)

// aptManager implements the Debian-family package strategy over apt-get,
// apt-cache and dpkg.
type aptManager struct {
	runner shell.Runner
	pol    *Policy
}

// aptErrorLines extracts apt's "E: " diagnostics from command output.
func aptErrorLines(stdout string) []string {
	var lines []string
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "E: ") {
			lines = append(lines, line)
		}
	}
	return lines
}

// waitDpkg waits out a competing dpkg, unwedging a broken one along the way.
// dpkg holds its lock far longer than other package managers on first boot,
// hence the dedicated, longer bound.
func (m *aptManager) waitDpkg() error {
	logged := false
	deadline := time.Now().Add(m.pol.DpkgLockTimeout)
	for time.Now().Before(deadline) {
		configure, err := m.runner.Execute("dpkg --force-all --configure -a", shell.WithSudo())
		if err != nil {
			return err
		}
		pidof, err := m.runner.Execute("pidof dpkg dpkg-deb", shell.WithNoErrorLog())
		if configure.ExitCode == 0 && (err != nil || pidof.ExitCode == 1) {
			return nil
		}
		if !logged {
			logged = true
			logx.Debug("found running dpkg process, waiting")
		}
		time.Sleep(m.pol.LockPoll)
	}
	return &LockTimeoutError{Process: "dpkg", Timeout: m.pol.DpkgLockTimeout}
}

func (m *aptManager) initialize() error {
	if err := m.waitDpkg(); err != nil {
		return err
	}
	result, err := m.runner.Execute("apt-get update", shell.WithSudo())
	if err != nil {
		return err
	}
	return result.AssertExitCode(strings.Join(aptErrorLines(result.Stdout), "\n"))
}

func (m *aptManager) install(names []string, o InstallOptions) error {
	// Local .deb files are unpacked with dpkg first, then installed by
	// name like any other package.
	var filePackages []string
	names = append([]string(nil), names...)
	for i, name := range names {
		if strings.HasSuffix(name, ".deb") {
			filePackages = append(filePackages, name)
			names[i] = strings.TrimSuffix(path.Base(name), ".deb")
		}
	}

	command := fmt.Sprintf(
		"DEBIAN_FRONTEND=noninteractive apt-get %s -y install %s",
		strings.Join(o.ExtraArgs, " "), strings.Join(names, " "),
	)
	if o.Unsigned {
		command += " --allow-unauthenticated"
	}

	if err := m.waitDpkg(); err != nil {
		return err
	}
	if len(filePackages) > 0 {
		if _, err := m.runner.Execute(
			"dpkg -i "+strings.Join(filePackages, " "),
			shell.WithSudo(), shell.WithTimeout(o.Timeout),
		); err != nil {
			return err
		}
		// the unpacked packages change the index; refresh before install
		if err := m.initialize(); err != nil {
			return err
		}
	}

	result, err := m.runner.Execute(command, shell.WithShell(), shell.WithSudo(), shell.WithTimeout(o.Timeout))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		// a stale index is the usual culprit; refresh so the retry has a chance
		if err := m.initialize(); err != nil {
			return err
		}
		return &InstallError{
			Packages: names,
			ExitCode: result.ExitCode,
			Output:   strings.Join(aptErrorLines(result.Stdout), "\n"),
		}
	}
	return nil
}

func (m *aptManager) update(names []string) error {
	command := `DEBIAN_FRONTEND=noninteractive apt-get upgrade -y ` +
		`-o Dpkg::Options::="--force-confdef" -o Dpkg::Options::="--force-confold" ` +
		strings.Join(names, " ")
	result, err := m.runner.Execute(command, shell.WithShell(), shell.WithSudo(), shell.WithTimeout(updateTimeout))
	if err != nil {
		return err
	}
	return result.AssertExitCode(strings.Join(aptErrorLines(result.Stdout), "\n"))
}

// exists parses `dpkg --get-selections` for an exact " install" state.
// A removed-but-not-purged package shows as "deinstall" and must not count.
func (m *aptManager) exists(name string) (bool, error) {
	result, err := m.runner.Execute("dpkg --get-selections", shell.WithShell(), shell.WithSudo())
	if err != nil {
		return false, err
	}
	selected := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `[ \t]+install$`)
	matches := 0
	for _, row := range strings.Split(result.Stdout, "\n") {
		if selected.MatchString(strings.TrimRight(row, "\r")) {
			matches++
		}
	}
	return matches == 1, nil
}

func (m *aptManager) inRepo(name string) (bool, error) {
	result, err := m.runner.Execute("apt-cache policy "+name, shell.WithShell(), shell.WithSudo())
	if err != nil {
		return false, err
	}
	return !packageCandidatePattern.MatchString(result.Stdout), nil
}

func (m *aptManager) packageVersion(name string) (osver.Version, error) {
	result, err := m.runner.Execute("apt show " + name)
	if err != nil {
		return osver.Version{}, err
	}
	if err := result.AssertExitCode("could not find package information for " + name); err != nil {
		return osver.Version{}, err
	}

	match := debianPackageInfoPattern.FindStringSubmatch(result.Stdout)
	if match == nil {
		return osver.Version{}, &osver.ParseError{Input: result.Stdout}
	}
	versionString := match[2]

	groups, ok := osver.FindNamedGroups(versionString, debianVersionPattern)
	if !ok {
		return osver.Version{}, &osver.ParseError{Input: versionString}
	}
	return osver.FromNamedGroups(groups)
}

// repositories runs `apt-get update` and parses the fetch lines. Lines that
// are not repository entries (progress, summaries) simply don't match.
func (m *aptManager) repositories() ([]types.Repository, error) {
	if err := runRetry(m.pol.InitTries, m.pol.InitDelay, m.initialize); err != nil {
		return nil, err
	}
	result, err := m.runner.Execute("apt-get update", shell.WithSudo())
	if err != nil {
		return nil, err
	}

	var repos []types.Repository
	for _, line := range strings.Split(result.Stdout, "\n") {
		groups, ok := osver.FindNamedGroups(line, debianRepositoryPattern)
		if !ok {
			continue
		}
		repos = append(repos, types.DebianRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: groups["name"]},
			Status:         groups["status"],
			ID:             groups["id"],
			URI:            groups["uri"],
			Metadata:       groups["metadata"],
		})
	}
	return repos, nil
}

func (m *aptManager) addRepository(repo string, o RepoOptions) error {
	for _, keyURL := range o.KeyURLs {
		keyPath := "/tmp/" + path.Base(keyURL)
		if _, err := m.runner.Execute(fmt.Sprintf("wget -q %s -O %s", keyURL, keyPath)); err != nil {
			return err
		}
		result, err := m.runner.Execute("apt-key add "+keyPath, shell.WithSudo())
		if err != nil {
			return err
		}
		if err := result.AssertExitCode("fail to add apt key"); err != nil {
			return err
		}
	}

	// apt-add-repository triggers an index refresh of its own.
	result, err := m.runner.Execute(fmt.Sprintf(`apt-add-repository -y "%s"`, repo), shell.WithSudo())
	if err != nil {
		return err
	}
	return result.AssertExitCode("fail to add repository")
}
