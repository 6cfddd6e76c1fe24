package types

import "time"

// HostReport is the top-level structure for one classified host.
// It is serialized directly to JSON for the --format=json output.
type HostReport struct {
	// Version is the hostenv version that produced this report.
	Version string `json:"version"`

	// Timestamp is when classification started.
	Timestamp time.Time `json:"timestamp"`

	// Controller describes the machine hostenv ran on.
	Controller ControllerInfo `json:"controller"`

	// Variant is the detected OS variant name, for example "Ubuntu".
	Variant string `json:"variant"`

	// OS is the resolved operating system identity.
	OS *OsInformation `json:"os,omitempty"`

	// Kernel is the target's kernel information; nil on Windows targets.
	Kernel *KernelInformation `json:"kernel,omitempty"`

	// Repositories lists the target's configured package repositories,
	// when the variant supports enumeration.
	Repositories []Repository `json:"repositories,omitempty"`

	// Packages holds per-package compliance results, when requested.
	Packages []PackageStatus `json:"packages,omitempty"`

	// Warnings collects non-fatal problems hit while filling the report.
	Warnings []string `json:"warnings,omitempty"`
}

// ControllerInfo describes the machine that ran the classification.
type ControllerInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Kernel   string `json:"kernel,omitempty"`
	Arch     string `json:"arch"`
	Virt     string `json:"virt,omitempty"`
}

// PackageStatus is the outcome of one package compliance requirement.
type PackageStatus struct {
	// Name is the package name as given to the package manager.
	Name string `json:"name"`

	// Installed reports whether the package is present on the target.
	Installed bool `json:"installed"`

	// Version is the resolved installed version, when available.
	Version string `json:"version,omitempty"`

	// MinVersion is the required minimum, when one was configured.
	MinVersion string `json:"min_version,omitempty"`

	// Satisfied reports whether the requirement as a whole holds.
	Satisfied bool `json:"satisfied"`

	// Detail explains an unsatisfied or partially evaluated requirement.
	Detail string `json:"detail,omitempty"`
}
