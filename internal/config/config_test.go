package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `targets:
  - name: build-host
    shell: local
    sudo: true
    timeout: 30s
packages:
  - name: openssl
    min_version: "1.1.1"
  - name: git
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostenv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfig(t, validConfigYAML)

	cfg, err := New().Load(path)

	require.NoError(t, err)
	require.Len(t, cfg.Targets, 1)
	assert.Equal(t, "build-host", cfg.Targets[0].Name)
	assert.Equal(t, "local", cfg.Targets[0].Shell)
	assert.True(t, cfg.Targets[0].Sudo)
	assert.Equal(t, 30*time.Second, cfg.Targets[0].TimeoutDuration())

	require.Len(t, cfg.Packages, 2)
	assert.Equal(t, "openssl", cfg.Packages[0].Name)
	assert.Equal(t, "1.1.1", cfg.Packages[0].MinVersion)
	assert.Empty(t, cfg.Packages[1].MinVersion)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New().Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := New().Parse([]byte("targets: [unclosed"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_TargetNameRequired(t *testing.T) {
	_, err := New().Parse([]byte("targets:\n  - shell: local\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name is required")
}

func TestParse_BadName(t *testing.T) {
	_, err := New().Parse([]byte("packages:\n  - name: \"rm -rf /\"\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be alphanumeric")
}

func TestParse_BadShell(t *testing.T) {
	_, err := New().Parse([]byte("targets:\n  - name: host1\n    shell: telnet\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestParse_BadTimeout(t *testing.T) {
	_, err := New().Parse([]byte("targets:\n  - name: host1\n    timeout: fast\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive duration")
}

func TestParse_DuplicateTarget(t *testing.T) {
	_, err := New().Parse([]byte("targets:\n  - name: host1\n  - name: host1\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate target name "host1"`)
}

func TestParse_DuplicateRequirement(t *testing.T) {
	_, err := New().Parse([]byte("packages:\n  - name: git\n  - name: git\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate package requirement "git"`)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := New().Parse([]byte(""))

	require.NoError(t, err)
	assert.Empty(t, cfg.Targets)
	assert.Empty(t, cfg.Packages)
}

func TestTimeoutDuration_Unset(t *testing.T) {
	assert.Zero(t, Target{}.TimeoutDuration())
}
