package output

import (
	"encoding/json"
	"io"

	"github.com/ancients-collective/hostenv/internal/types"
)

// JSONFormatter writes a host report as a single JSON object.
type JSONFormatter struct{}

// repositoryFamily names the package-manager family behind a repository
// record. The concrete Go type carries it, but the serialized shape would
// otherwise leave consumers guessing from the field set.
func repositoryFamily(repo types.Repository) string {
	switch repo.(type) {
	case types.DebianRepositoryInfo:
		return "apt"
	case types.RPMRepositoryInfo:
		return "rpm"
	case types.SuseRepositoryInfo:
		return "zypper"
	default:
		return ""
	}
}

// taggedRepository merges the family discriminator into the record's own
// JSON object.
type taggedRepository struct {
	family string
	entry  types.Repository
}

func (t taggedRepository) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(t.entry)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if t.family != "" {
		fields["family"] = t.family
	}
	return json.Marshal(fields)
}

// Write renders the full report as pretty-printed JSON, tagging each
// repository record with its package-manager family.
func (f *JSONFormatter) Write(w io.Writer, report *types.HostReport) error {
	repos := make([]taggedRepository, len(report.Repositories))
	for i, repo := range report.Repositories {
		repos[i] = taggedRepository{family: repositoryFamily(repo), entry: repo}
	}

	out := struct {
		*types.HostReport
		Repositories []taggedRepository `json:"repositories,omitempty"`
	}{report, repos}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
