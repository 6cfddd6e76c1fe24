package types

// Repository is one configured package repository on a target. Each
// package-manager family returns its own concrete type carrying whatever
// extra fields that family's listing format exposes.
type Repository interface {
	// RepositoryName is the human-facing repository name, for example
	// "focal-updates/main".
	RepositoryName() string
}

// RepositoryInfo is the common part of every repository record.
type RepositoryInfo struct {
	Name string `json:"name"`
}

// RepositoryName implements Repository.
func (r RepositoryInfo) RepositoryName() string { return r.Name }

// DebianRepositoryInfo is one line of `apt-get update` output:
//
//	Get:5 http://azure.archive.ubuntu.com/ubuntu focal-updates/main amd64 Packages [1298 kB]
type DebianRepositoryInfo struct {
	RepositoryInfo

	// Status is the fetch status, "Hit" or "Get".
	Status string `json:"status"`

	// ID is the sequence number in the listing.
	ID string `json:"id"`

	// URI is the repository mirror URI.
	URI string `json:"uri"`

	// Metadata is the trailing description, e.g. "amd64 Packages [1298 kB]".
	Metadata string `json:"metadata"`
}

// RPMRepositoryInfo is one entry of `dnf repolist` / `yum repolist`:
//
//	microsoft-azure-rhel8-eus  Microsoft Azure RPMs for RHEL8 Extended Update Support
type RPMRepositoryInfo struct {
	RepositoryInfo

	// ID is the repository id, e.g. "microsoft-azure-rhel8-eus".
	ID string `json:"id"`
}

// SuseRepositoryInfo is one row of the `zypper lr` table.
type SuseRepositoryInfo struct {
	RepositoryInfo

	// ID is the numeric repository id.
	ID string `json:"id"`

	// Alias is the repository alias, e.g. "repo-oss".
	Alias string `json:"alias"`

	Enabled  bool `json:"enabled"`
	GPGCheck bool `json:"gpg_check"`
	Refresh  bool `json:"refresh"`
}
