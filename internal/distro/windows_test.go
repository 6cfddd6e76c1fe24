package distro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
)

func windowsScript() *shell.Script {
	r := shell.NewScript(map[string]shell.Result{
		"ver": {Stdout: "\nMicrosoft Windows [Version 10.0.22000.100]\n"},
	})
	r.Posix = false
	return r
}

func TestWindowsInformation(t *testing.T) {
	w := NewWindows(windowsScript())

	info, err := w.Information()
	require.NoError(t, err)
	assert.Equal(t, "Microsoft", info.Vendor)
	assert.Equal(t, "10.0.22000.100", info.Release)
	assert.Equal(t, osver.Version{Major: 10, Minor: 0, Patch: 22000}, info.Version)
}

func TestWindowsInformation_Memoized(t *testing.T) {
	r := windowsScript()
	w := NewWindows(r)

	_, err := w.Information()
	require.NoError(t, err)
	_, err = w.Information()
	require.NoError(t, err)

	assert.Equal(t, 1, r.CallCount("ver"))
}

func TestWindows_PackageOperationsNotImplemented(t *testing.T) {
	w := NewWindows(windowsScript())

	assert.Zero(t, w.Capabilities())
	assert.ErrorIs(t, w.InstallPackages(Pkgs("vim")), ErrNotImplemented)
	_, err := w.KernelInformation()
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = w.Repositories()
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestWindowsCaptureSystemInformation(t *testing.T) {
	w := NewWindows(windowsScript())
	dir := t.TempDir()

	require.NoError(t, w.CaptureSystemInformation(dir))

	content, err := os.ReadFile(filepath.Join(dir, "ver.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Microsoft Windows")
}
