package distro

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

const lsbReleaseFull = "No LSB modules are available.\n" +
	"Distributor ID:\tUbuntu\n" +
	"Description:\tUbuntu 20.04.5 LTS\n" +
	"Release:\t20.04\n" +
	"Codename:\tfocal\n"

func aptReadyScript(extra map[string]shell.Result) *shell.Script {
	responses := map[string]shell.Result{
		"dpkg --force-all --configure -a": {ExitCode: 0},
		"pidof dpkg dpkg-deb":             {ExitCode: 1},
		"apt-get update":                  {ExitCode: 0},
	}
	for cmd, result := range extra {
		responses[cmd] = result
	}
	return shell.NewScript(responses)
}

func TestUbuntuInformation(t *testing.T) {
	r := shell.NewScript(map[string]shell.Result{
		"lsb_release -a": {Stdout: lsbReleaseFull},
	})
	os := NewUbuntu(r, testPolicy())

	info, err := os.Information()
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", info.Vendor)
	assert.Equal(t, "20.04", info.Release)
	assert.Equal(t, "focal", info.Codename)
	assert.Equal(t, "Ubuntu 20.04.5 LTS", info.FullVersion)
	assert.Equal(t, osver.Version{Major: 20, Minor: 4}, info.Version)
}

func TestDebianInformation_PointReleaseFromDebianVersion(t *testing.T) {
	r := shell.NewScript(map[string]shell.Result{
		"cat /etc/os-release": {Stdout: "NAME=\"Debian GNU/Linux\"\nVERSION_ID=\"10\"\n" +
			"VERSION=\"10 (buster)\"\nPRETTY_NAME=\"Debian GNU/Linux 10 (buster)\"\n"},
		"cat /etc/debian_version": {Stdout: "10.7\n"},
	})
	os := NewDebian(r, testPolicy())

	info, err := os.Information()
	require.NoError(t, err)
	assert.Equal(t, "10.7", info.Release)
	assert.Equal(t, osver.Version{Major: 10, Minor: 7}, info.Version)
	assert.Equal(t, "buster", info.Codename)
}

func TestAptRepositories(t *testing.T) {
	update := "Hit:1 http://azure.archive.ubuntu.com/ubuntu focal InRelease\n" +
		"Get:5 http://azure.archive.ubuntu.com/ubuntu focal-updates/main amd64 Packages [1298 kB]\n" +
		"Fetched 1298 kB in 1s (1078 kB/s)\n" +
		"Reading package lists...\n"
	r := aptReadyScript(map[string]shell.Result{
		"apt-get update": {Stdout: update},
	})
	os := NewUbuntu(r, testPolicy())

	repos, err := os.Repositories()
	require.NoError(t, err)
	require.Len(t, repos, 2)

	repo, ok := repos[1].(types.DebianRepositoryInfo)
	require.True(t, ok)
	assert.Equal(t, "Get", repo.Status)
	assert.Equal(t, "5", repo.ID)
	assert.Equal(t, "http://azure.archive.ubuntu.com/ubuntu", repo.URI)
	assert.Equal(t, "focal-updates/main", repo.RepositoryName())
	assert.Equal(t, "amd64 Packages [1298 kB]", repo.Metadata)
}

func TestAptRepositories_RetriesFailedIndexRefresh(t *testing.T) {
	r := aptReadyScript(map[string]shell.Result{
		"apt-get update": {
			ExitCode: 100,
			Stdout:   "E: Could not get lock /var/lib/apt/lists/lock\n",
		},
	})
	os := NewUbuntu(r, testPolicy())

	_, err := os.Repositories()

	require.Error(t, err)
	assert.Equal(t, 2, r.CallCount("apt-get update"))
}

func TestAptPackageExists(t *testing.T) {
	selections := "vim\t\t\t\t\t\tinstall\n" +
		"vim-common\t\t\t\tinstall\n" +
		"nano\t\t\t\t\t\tdeinstall\n"
	r := aptReadyScript(map[string]shell.Result{
		"dpkg --get-selections": {Stdout: selections},
	})
	os := NewUbuntu(r, testPolicy())

	installed, err := os.PackageExists(Pkg("vim"))
	require.NoError(t, err)
	assert.True(t, installed)

	removed, err := os.PackageExists(Pkg("nano"))
	require.NoError(t, err)
	assert.False(t, removed, "a deinstall selection must not count as installed")

	absent, err := os.PackageExists(Pkg("emacs"))
	require.NoError(t, err)
	assert.False(t, absent)
}

func TestAptPackageInRepo(t *testing.T) {
	r := aptReadyScript(map[string]shell.Result{
		"apt-cache policy vim":    {Stdout: "vim:\n  Installed: (none)\n  Candidate: 2:8.1.2269-1ubuntu5\n"},
		"apt-cache policy nosuch": {Stdout: "N: Unable to locate package nosuch\n"},
		"apt-cache policy ghost":  {Stdout: "ghost:\n  Installed: (none)\n  Candidate: (none)\n"},
	})
	os := NewUbuntu(r, testPolicy())

	available, err := os.PackageInRepo(Pkg("vim"))
	require.NoError(t, err)
	assert.True(t, available)

	missing, err := os.PackageInRepo(Pkg("nosuch"))
	require.NoError(t, err)
	assert.False(t, missing)

	noCandidate, err := os.PackageInRepo(Pkg("ghost"))
	require.NoError(t, err)
	assert.False(t, noCandidate)
}

func TestAptPackageInformation(t *testing.T) {
	show := "Package: wget\n" +
		"Version: 1:2.25.1-1ubuntu3.2\n" +
		"Priority: standard\n"
	r := aptReadyScript(map[string]shell.Result{
		"apt show wget": {Stdout: show},
	})
	os := NewUbuntu(r, testPolicy())

	v, err := os.PackageInformation("wget", true)
	require.NoError(t, err)
	assert.Equal(t, osver.Version{Major: 2, Minor: 25, Patch: 1, Build: "1ubuntu3.2"}, v)
}

func TestAptInstall_ReportsAptErrors(t *testing.T) {
	pol := testPolicy()
	pol.InstallTries = 1
	r := aptReadyScript(map[string]shell.Result{
		"DEBIAN_FRONTEND=noninteractive apt-get  -y install nosuch": {
			ExitCode: 100,
			Stdout:   "Reading package lists...\nE: Unable to locate package nosuch\n",
		},
	})
	os := NewUbuntu(r, pol)

	err := os.InstallPackages(Pkgs("nosuch"))

	var installErr *InstallError
	require.ErrorAs(t, err, &installErr)
	assert.Equal(t, 100, installErr.ExitCode)
	assert.Equal(t, "E: Unable to locate package nosuch", installErr.Output)
}

func TestAptInstall_LocalDebUnpackedFirst(t *testing.T) {
	r := aptReadyScript(map[string]shell.Result{
		"dpkg -i /tmp/pkgs/dpdk_20.11_amd64.deb":                              {ExitCode: 0},
		"DEBIAN_FRONTEND=noninteractive apt-get  -y install dpdk_20.11_amd64": {ExitCode: 0},
	})
	os := NewUbuntu(r, testPolicy())

	require.NoError(t, os.InstallPackages(Pkgs("/tmp/pkgs/dpdk_20.11_amd64.deb")))

	calls := strings.Join(r.Calls(), "\n")
	assert.Contains(t, calls, "dpkg -i /tmp/pkgs/dpdk_20.11_amd64.deb")
	assert.Contains(t, calls, "install dpdk_20.11_amd64")
}

func TestAptAddRepository(t *testing.T) {
	r := aptReadyScript(map[string]shell.Result{
		"wget -q https://packages.microsoft.com/keys/microsoft.asc -O /tmp/microsoft.asc": {ExitCode: 0},
		"apt-key add /tmp/microsoft.asc": {ExitCode: 0},
		`apt-add-repository -y "deb [arch=amd64] https://packages.microsoft.com/ubuntu/20.04/prod focal main"`: {ExitCode: 0},
	})
	os := NewUbuntu(r, testPolicy())

	err := os.AddRepository(
		"deb [arch=amd64] https://packages.microsoft.com/ubuntu/20.04/prod focal main",
		WithKeys("https://packages.microsoft.com/keys/microsoft.asc"),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, r.CallCount("apt-key add /tmp/microsoft.asc"))
}

const (
	grubSubmenuID  = "gnulinux-5.11.0-1011-azure-advanced-3fdd2548-1430-450b-b16d-9191404598fb"
	grubRecoveryID = "gnulinux-5.11.0-1011-azure-recovery-3fdd2548-1430-450b-b16d-9191404598fb"
	grubTopMenuID  = "gnulinux-advanced-3fdd2548-1430-450b-b16d-9191404598fb"
)

func TestFindGrubMenuEntry(t *testing.T) {
	grubCfg := strings.Join([]string{
		`menuentry 'Ubuntu' --class ubuntu $menuentry_id_option 'gnulinux-simple-3fdd2548-1430-450b-b16d-9191404598fb' {`,
		`submenu 'Advanced options for Ubuntu' $menuentry_id_option '` + grubTopMenuID + `' {`,
		`	menuentry 'Ubuntu, with Linux 5.11.0-1011-azure' --class ubuntu $menuentry_id_option '` + grubSubmenuID + `' {`,
		`	menuentry 'Ubuntu, with Linux 5.11.0-1011-azure (recovery mode)' --class ubuntu $menuentry_id_option '` + grubRecoveryID + `' {`,
		`}`,
	}, "\n")

	id := findGrubMenuEntry(grubCfg, "5.11.0-1011-azure")
	assert.Equal(t, grubSubmenuID, id)
}

func TestFindGrubMenuEntry_SkipsRecoveryOnly(t *testing.T) {
	grubCfg := `menuentry 'Ubuntu, with Linux 5.8.0 (recovery mode)' $menuentry_id_option 'gnulinux-5.8.0-recovery-abc' {`

	assert.Empty(t, findGrubMenuEntry(grubCfg, "5.8.0"))
	assert.Empty(t, findGrubMenuEntry(grubCfg, "5.4.0"))
}

func TestGrubTopLevelMenuID(t *testing.T) {
	assert.Equal(t, grubTopMenuID, grubTopLevelMenuID(grubSubmenuID))
}

func TestUbuntuReplaceBootKernel(t *testing.T) {
	grubCfg := `menuentry 'Ubuntu, with Linux 5.11.0-1011-azure' --class ubuntu $menuentry_id_option '` + grubSubmenuID + `' {`
	r := aptReadyScript(map[string]shell.Result{
		"cat /boot/grub/grub.cfg": {Stdout: grubCfg},
		`sed -i "s|^GRUB_DEFAULT=.*|GRUB_DEFAULT='` + grubTopMenuID + `>` + grubSubmenuID + `'|" /etc/default/grub`: {ExitCode: 0},
		"update-grub": {ExitCode: 0},
	})
	os := NewUbuntu(r, testPolicy())

	require.NoError(t, os.ReplaceBootKernel("5.11.0-1011-azure"))
	assert.Equal(t, 1, r.CallCount("update-grub"))
}
