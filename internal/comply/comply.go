// Package comply verifies configured package requirements against a
// classified host: every required package must be installed, and at least
// the configured minimum version where one is given.
package comply

import (
	"fmt"

	"github.com/ancients-collective/hostenv/internal/config"
	"github.com/ancients-collective/hostenv/internal/distro"
	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/types"
)

// Verify evaluates each requirement on the given host. One status is
// returned per requirement, in requirement order; query failures mark the
// requirement unsatisfied with the failure recorded in Detail rather than
// aborting the run.
func Verify(host distro.OperatingSystem, reqs []config.Requirement) []types.PackageStatus {
	statuses := make([]types.PackageStatus, 0, len(reqs))
	for _, req := range reqs {
		statuses = append(statuses, verifyOne(host, req))
	}
	return statuses
}

// Satisfied reports whether every status in the set holds.
func Satisfied(statuses []types.PackageStatus) bool {
	for _, s := range statuses {
		if !s.Satisfied {
			return false
		}
	}
	return true
}

func verifyOne(host distro.OperatingSystem, req config.Requirement) types.PackageStatus {
	status := types.PackageStatus{Name: req.Name, MinVersion: req.MinVersion}

	if !host.Capabilities().Has(distro.CapPackages) {
		status.Detail = fmt.Sprintf("package queries are not supported on %s", host.Name())
		return status
	}

	installed, err := host.PackageExists(distro.Pkg(req.Name))
	if err != nil {
		status.Detail = fmt.Sprintf("existence check failed: %v", err)
		return status
	}
	status.Installed = installed
	if !installed {
		status.Detail = "not installed"
		return status
	}

	if !host.Capabilities().Has(distro.CapPackageVersion) {
		if req.MinVersion != "" {
			status.Detail = fmt.Sprintf("version queries are not supported on %s", host.Name())
			return status
		}
		status.Satisfied = true
		return status
	}

	version, err := host.PackageInformation(req.Name, true)
	if err != nil {
		if req.MinVersion == "" {
			// Installed is all the requirement asks for; a failed
			// version lookup only costs the report detail.
			logx.Debug("package version lookup failed", "package", req.Name, "error", err)
			status.Satisfied = true
			return status
		}
		status.Detail = fmt.Sprintf("version lookup failed: %v", err)
		return status
	}
	status.Version = version.String()

	if req.MinVersion == "" {
		status.Satisfied = true
		return status
	}

	cmp, err := compare(host, version, req.MinVersion)
	if err != nil {
		status.Detail = fmt.Sprintf("version comparison failed: %v", err)
		return status
	}
	if cmp < 0 {
		status.Detail = fmt.Sprintf("installed %s is older than required %s", status.Version, req.MinVersion)
		return status
	}

	status.Satisfied = true
	return status
}

// compare orders the installed version against the required minimum,
// preferring the family's native comparison rules when the host has them.
func compare(host distro.OperatingSystem, installed osver.Version, minVersion string) (int, error) {
	if comparer, ok := host.(distro.VersionComparer); ok && host.Capabilities().Has(distro.CapCompareVersions) {
		return comparer.CompareVersions(installed.String(), minVersion)
	}
	want, err := osver.Parse(minVersion)
	if err != nil {
		return 0, err
	}
	return installed.Compare(want), nil
}
