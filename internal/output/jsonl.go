package output

import (
	"encoding/json"
	"io"

	"github.com/ancients-collective/hostenv/internal/types"
)

// JSONLFormatter writes a host report as newline-delimited JSON (one object
// per line). The first line is a header with the host identity. Subsequent
// lines carry one repository or package status each, so log pipelines can
// ingest them without buffering the whole report.
type JSONLFormatter struct{}

// Write renders the report as JSONL: header line + one line per record.
func (f *JSONLFormatter) Write(w io.Writer, report *types.HostReport) error {
	enc := json.NewEncoder(w)

	header := struct {
		Type       string                   `json:"type"`
		Version    string                   `json:"version"`
		Timestamp  string                   `json:"timestamp"`
		Controller types.ControllerInfo     `json:"controller"`
		Variant    string                   `json:"variant"`
		OS         *types.OsInformation     `json:"os,omitempty"`
		Kernel     *types.KernelInformation `json:"kernel,omitempty"`
		Warnings   []string                 `json:"warnings,omitempty"`
	}{
		Type:       "header",
		Version:    report.Version,
		Timestamp:  report.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Controller: report.Controller,
		Variant:    report.Variant,
		OS:         report.OS,
		Kernel:     report.Kernel,
		Warnings:   report.Warnings,
	}
	if err := enc.Encode(header); err != nil {
		return err
	}

	for _, repo := range report.Repositories {
		line := struct {
			Type       string           `json:"type"`
			Repository types.Repository `json:"repository"`
		}{
			Type:       "repository",
			Repository: repo,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	for _, pkg := range report.Packages {
		line := struct {
			Type    string              `json:"type"`
			Package types.PackageStatus `json:"package"`
		}{
			Type:    "package",
			Package: pkg,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	return nil
}
