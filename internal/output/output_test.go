package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/types"
)

func newTestReport() *types.HostReport {
	return &types.HostReport{
		Version:   "1.0.0",
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Controller: types.ControllerInfo{
			Hostname: "workbench",
			OS:       "ubuntu 22.04",
			Kernel:   "5.15.0-101-generic",
			Arch:     "amd64",
			Virt:     "kvm",
		},
		Variant: "Ubuntu",
		OS: &types.OsInformation{
			Version:     osver.Version{Major: 20, Minor: 4, Patch: 5},
			Vendor:      "Ubuntu",
			Release:     "20.04",
			Codename:    "focal",
			FullVersion: "Ubuntu 20.04.5 LTS (Focal Fossa)",
		},
		Kernel: &types.KernelInformation{
			Version:    osver.Version{Major: 5, Minor: 4, Patch: 0},
			RawVersion: "5.4.0-1091-azure",
		},
		Repositories: []types.Repository{
			types.DebianRepositoryInfo{
				RepositoryInfo: types.RepositoryInfo{Name: "focal-updates/main"},
				Status:         "Get",
				ID:             "5",
				URI:            "http://azure.archive.ubuntu.com/ubuntu",
			},
			types.DebianRepositoryInfo{
				RepositoryInfo: types.RepositoryInfo{Name: "focal-security/main"},
				Status:         "Hit",
				ID:             "6",
				URI:            "http://security.ubuntu.com/ubuntu",
			},
		},
		Packages: []types.PackageStatus{
			{Name: "openssl", Installed: true, Version: "1.1.1-1ubuntu2", MinVersion: "1.1.1", Satisfied: true},
			{Name: "git", Installed: false, Detail: "not installed"},
		},
		Warnings: []string{"repository listing was rate limited"},
	}
}

func TestTextFormatter_Write(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	f := &TextFormatter{}

	require.NoError(t, f.Write(&buf, newTestReport()))
	out := buf.String()

	assert.Contains(t, out, "v1.0.0")
	assert.Contains(t, out, "Host:    workbench")
	assert.Contains(t, out, "Variant: Ubuntu")
	assert.Contains(t, out, "Release: 20.04 (focal)")
	assert.Contains(t, out, "Full:    Ubuntu 20.04.5 LTS (Focal Fossa)")
	assert.Contains(t, out, "Kernel:  5.4.0-1091-azure")
	assert.Contains(t, out, "Repositories (2)")
	assert.Contains(t, out, "focal-updates/main  http://azure.archive.ubuntu.com/ubuntu")
	assert.Contains(t, out, "✓ openssl 1.1.1-1ubuntu2 (>= 1.1.1)")
	assert.Contains(t, out, "✗ git")
	assert.Contains(t, out, "Detail:  not installed")
	assert.Contains(t, out, "1 of 2 requirement(s) unsatisfied")
	assert.Contains(t, out, "⚠ repository listing was rate limited")
}

func TestTextFormatter_CompliantVerdict(t *testing.T) {
	color.NoColor = true
	report := newTestReport()
	report.Packages = []types.PackageStatus{
		{Name: "openssl", Installed: true, Satisfied: true},
	}
	var buf bytes.Buffer

	require.NoError(t, (&TextFormatter{}).Write(&buf, report))

	assert.Contains(t, buf.String(), "Compliant — 1 requirement(s) satisfied")
}

func TestTextFormatter_NoPackagesNoVerdict(t *testing.T) {
	color.NoColor = true
	report := newTestReport()
	report.Packages = nil
	var buf bytes.Buffer

	require.NoError(t, (&TextFormatter{}).Write(&buf, report))

	assert.NotContains(t, buf.String(), "requirement(s)")
}

func TestTextFormatter_DumbIcons(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	f := &TextFormatter{Dumb: true}

	require.NoError(t, f.Write(&buf, newTestReport()))
	out := buf.String()

	assert.Contains(t, out, "+ openssl")
	assert.Contains(t, out, "x git")
	assert.NotContains(t, out, "✓")
	assert.NotContains(t, out, "✗")
}

func TestTextFormatter_WrapsLongDetail(t *testing.T) {
	color.NoColor = true
	report := newTestReport()
	report.Packages = []types.PackageStatus{
		{Name: "git", Detail: strings.Repeat("word ", 30)},
	}
	var buf bytes.Buffer
	f := &TextFormatter{Width: 60}

	require.NoError(t, f.Write(&buf, report))

	var detailLines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "word") {
			detailLines = append(detailLines, line)
		}
	}
	require.Greater(t, len(detailLines), 1, "long detail should wrap onto continuation lines")
	for _, line := range detailLines {
		assert.LessOrEqual(t, len(line), 60)
	}
}

func TestTextFormatter_SuseRepositoryLine(t *testing.T) {
	color.NoColor = true
	report := newTestReport()
	report.Repositories = []types.Repository{
		types.SuseRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: "Main Repository"},
			ID:             "1",
			Alias:          "repo-oss",
			Enabled:        true,
		},
		types.SuseRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: "Debug Repository"},
			ID:             "2",
			Alias:          "repo-debug",
		},
	}
	var buf bytes.Buffer

	require.NoError(t, (&TextFormatter{}).Write(&buf, report))
	out := buf.String()

	assert.Contains(t, out, "repo-oss  enabled")
	assert.Contains(t, out, "repo-debug  disabled")
}

func TestJSONFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{}

	require.NoError(t, f.Write(&buf, newTestReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1.0.0", decoded["version"])
	assert.Equal(t, "Ubuntu", decoded["variant"])

	controller, ok := decoded["controller"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "workbench", controller["hostname"])

	packages, ok := decoded["packages"].([]any)
	require.True(t, ok)
	assert.Len(t, packages, 2)

	repos, ok := decoded["repositories"].([]any)
	require.True(t, ok)
	require.Len(t, repos, 2)
	first, ok := repos[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "apt", first["family"])
	assert.Equal(t, "focal-updates/main", first["name"])
	assert.Equal(t, "http://azure.archive.ubuntu.com/ubuntu", first["uri"])
}

func TestJSONFormatter_RepositoryFamilies(t *testing.T) {
	report := newTestReport()
	report.Repositories = []types.Repository{
		types.RPMRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: "Microsoft Azure RPMs for RHEL8"},
			ID:             "microsoft-azure-rhel8",
		},
		types.SuseRepositoryInfo{
			RepositoryInfo: types.RepositoryInfo{Name: "Main Repository"},
			ID:             "1",
			Alias:          "repo-oss",
			Enabled:        true,
		},
	}
	var buf bytes.Buffer

	require.NoError(t, (&JSONFormatter{}).Write(&buf, report))

	var decoded struct {
		Repositories []map[string]any `json:"repositories"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Repositories, 2)
	assert.Equal(t, "rpm", decoded.Repositories[0]["family"])
	assert.Equal(t, "zypper", decoded.Repositories[1]["family"])
	assert.Equal(t, "repo-oss", decoded.Repositories[1]["alias"])
}

func TestJSONFormatter_OmitsEmptyRepositories(t *testing.T) {
	report := newTestReport()
	report.Repositories = nil
	var buf bytes.Buffer

	require.NoError(t, (&JSONFormatter{}).Write(&buf, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	_, present := decoded["repositories"]
	assert.False(t, present)
}

func TestJSONLFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONLFormatter{}

	require.NoError(t, f.Write(&buf, newTestReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5) // header + 2 repositories + 2 packages

	var header map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	assert.Equal(t, "header", header["type"])
	assert.Equal(t, "Ubuntu", header["variant"])
	assert.Equal(t, "2026-03-14T09:30:00Z", header["timestamp"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "repository", second["type"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &last))
	assert.Equal(t, "package", last["type"])
}

func TestIsDumbTerm(t *testing.T) {
	t.Setenv("TERM", "dumb")
	assert.True(t, IsDumbTerm())

	t.Setenv("TERM", "xterm-256color")
	assert.False(t, IsDumbTerm())
}
