package comply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostenv/internal/config"
	"github.com/ancients-collective/hostenv/internal/distro"
	"github.com/ancients-collective/hostenv/internal/shell"
)

func testPolicy() *distro.Policy {
	return &distro.Policy{
		InstallTries:    2,
		InstallDelay:    time.Millisecond,
		InitTries:       2,
		InitDelay:       time.Millisecond,
		LockTimeout:     20 * time.Millisecond,
		DpkgLockTimeout: 20 * time.Millisecond,
		LockPoll:        time.Millisecond,
	}
}

// ubuntuHost builds an Ubuntu instance over a runner with git installed at
// 1:2.25.1-1ubuntu3.2 and the apt machinery ready.
func ubuntuHost(extra map[string]shell.Result) distro.OperatingSystem {
	responses := map[string]shell.Result{
		"dpkg --force-all --configure -a": {ExitCode: 0},
		"pidof dpkg dpkg-deb":             {ExitCode: 1},
		"apt-get update":                  {ExitCode: 0},
		"dpkg --get-selections":           {Stdout: "git\tinstall\nvim\tdeinstall\n"},
		"apt show git":                    {Stdout: "Package: git\nVersion: 1:2.25.1-1ubuntu3.2\n"},
	}
	for cmd, result := range extra {
		responses[cmd] = result
	}
	return distro.NewUbuntu(shell.NewScript(responses), testPolicy())
}

func TestVerify_MinVersionSatisfied(t *testing.T) {
	statuses := Verify(ubuntuHost(nil), []config.Requirement{
		{Name: "git", MinVersion: "2.20.0-1"},
	})

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Installed)
	assert.True(t, statuses[0].Satisfied)
	assert.Equal(t, "2.25.1-1ubuntu3.2", statuses[0].Version)
	assert.Empty(t, statuses[0].Detail)
	assert.True(t, Satisfied(statuses))
}

func TestVerify_InstalledTooOld(t *testing.T) {
	statuses := Verify(ubuntuHost(nil), []config.Requirement{
		{Name: "git", MinVersion: "2.30.0-1"},
	})

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Installed)
	assert.False(t, statuses[0].Satisfied)
	assert.Equal(t, "installed 2.25.1-1ubuntu3.2 is older than required 2.30.0-1", statuses[0].Detail)
	assert.False(t, Satisfied(statuses))
}

func TestVerify_NotInstalled(t *testing.T) {
	statuses := Verify(ubuntuHost(nil), []config.Requirement{
		{Name: "nosuch"},
	})

	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Installed)
	assert.False(t, statuses[0].Satisfied)
	assert.Equal(t, "not installed", statuses[0].Detail)
}

func TestVerify_DeinstalledDoesNotCount(t *testing.T) {
	statuses := Verify(ubuntuHost(nil), []config.Requirement{
		{Name: "vim"},
	})

	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Installed)
}

func TestVerify_NoMinVersionToleratesVersionFailure(t *testing.T) {
	host := ubuntuHost(map[string]shell.Result{
		"dpkg --get-selections": {Stdout: "curl\tinstall\n"},
	})

	statuses := Verify(host, []config.Requirement{{Name: "curl"}})

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Installed)
	assert.True(t, statuses[0].Satisfied)
	assert.Empty(t, statuses[0].Version)
}

func TestVerify_MinVersionNeedsResolvableVersion(t *testing.T) {
	host := ubuntuHost(map[string]shell.Result{
		"dpkg --get-selections": {Stdout: "curl\tinstall\n"},
	})

	statuses := Verify(host, []config.Requirement{{Name: "curl", MinVersion: "7.0.0-1"}})

	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Installed)
	assert.False(t, statuses[0].Satisfied)
	assert.Contains(t, statuses[0].Detail, "version lookup failed")
}

func TestVerify_UnsupportedVariant(t *testing.T) {
	host := distro.NewCoreOs(shell.NewScript(nil), testPolicy())

	statuses := Verify(host, []config.Requirement{{Name: "git"}})

	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Satisfied)
	assert.Contains(t, statuses[0].Detail, "not supported on CoreOs")
}

func TestVerify_RequirementOrderPreserved(t *testing.T) {
	statuses := Verify(ubuntuHost(nil), []config.Requirement{
		{Name: "git"},
		{Name: "nosuch"},
	})

	require.Len(t, statuses, 2)
	assert.Equal(t, "git", statuses[0].Name)
	assert.Equal(t, "nosuch", statuses[1].Name)
	assert.False(t, Satisfied(statuses))
}

func TestSatisfied_Empty(t *testing.T) {
	assert.True(t, Satisfied(nil))
}
