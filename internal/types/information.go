// Package types holds the typed records the classifier and the
// package-manager strategies normalize loose command output into.
package types

import "github.com/ancients-collective/hostenv/internal/osver"

// OsInformation is the resolved identity of a target's operating system.
// It is built lazily on first access by an OperatingSystem instance and is
// never mutated afterwards. Vendor and Release are guaranteed non-empty:
// resolution fails outright rather than producing a half-filled record.
type OsInformation struct {
	// Version is the structured form of Release.
	Version osver.Version `json:"version"`

	// Vendor names the producer. Examples: "Ubuntu", "Red Hat", "Microsoft".
	Vendor string `json:"vendor"`

	// Release is the raw version token. Examples: "18.04", "8.3".
	Release string `json:"release"`

	// Codename is the release codename, when the distribution has one.
	Codename string `json:"codename,omitempty"`

	// FullVersion is the human-readable release line, for example
	// "Ubuntu 18.04.5 LTS (Bionic Beaver)". "Unknown" until resolved.
	FullVersion string `json:"full_version"`
}

// KernelInformation describes the running kernel, derived from uname output.
type KernelInformation struct {
	// Version is the structured kernel version.
	Version osver.Version `json:"version"`

	// RawVersion is the kernel release string as printed by uname -r.
	RawVersion string `json:"raw_version"`

	// HardwarePlatform is the uname hardware platform token.
	HardwarePlatform string `json:"hardware_platform"`

	// OperatingSystem is the uname operating system token ("GNU/Linux").
	OperatingSystem string `json:"operating_system"`

	// VersionParts is the ordered decomposition of the release string.
	// Some families decompose the trailing token further; on Red Hat
	// derivatives "305.40.1.el8_4.x86_64" splits into numeric, distro and
	// platform parts.
	VersionParts []string `json:"version_parts"`
}
