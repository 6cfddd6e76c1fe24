package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFixture_Valid(t *testing.T) {
	path := writeFixtureYAML(t, `
commands:
  - cmd: uname
    stdout: FreeBSD
  - cmd: whoami
    exit: 1
    stderr: "whoami: no login"
files:
  /etc/motd: "welcome"
`)

	runner, err := loadFixture(path)
	require.NoError(t, err)
	assert.True(t, runner.IsPosix())

	result, err := runner.Execute("uname")
	require.NoError(t, err)
	assert.Equal(t, "FreeBSD", result.Stdout)
	assert.Zero(t, result.ExitCode)

	result, err = runner.Execute("whoami")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "whoami: no login", result.Stderr)

	// Unrecorded commands behave like an absent binary.
	result, err = runner.Execute("hostname")
	require.NoError(t, err)
	assert.Equal(t, 127, result.ExitCode)

	assert.Equal(t, "welcome", runner.Files["/etc/motd"])
}

func TestLoadFixture_NonPosix(t *testing.T) {
	path := writeFixtureYAML(t, `
posix: false
commands:
  - cmd: ver
    stdout: "Microsoft Windows [Version 10.0.22000.100]"
`)

	runner, err := loadFixture(path)
	require.NoError(t, err)
	assert.False(t, runner.IsPosix())
}

func TestLoadFixture_MissingFile(t *testing.T) {
	_, err := loadFixture(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture")
}

func TestLoadFixture_BadYAML(t *testing.T) {
	path := writeFixtureYAML(t, "commands: [unclosed")

	_, err := loadFixture(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse fixture")
}

func TestLoadFixture_NoCommands(t *testing.T) {
	path := writeFixtureYAML(t, "posix: true\n")

	_, err := loadFixture(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "records no commands")
}

func TestLoadFixture_EmptyCmd(t *testing.T) {
	path := writeFixtureYAML(t, "commands:\n  - stdout: orphan\n")

	_, err := loadFixture(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no cmd")
}

func TestLoadFixture_DuplicateCmd(t *testing.T) {
	path := writeFixtureYAML(t, "commands:\n  - cmd: uname\n  - cmd: uname\n")

	_, err := loadFixture(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate cmd "uname"`)
}
