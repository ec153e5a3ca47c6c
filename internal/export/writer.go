// Package export turns a finished run into its artifacts: the alerts JSON
// document, an optional S3 copy, and the console report.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"forestwatch/internal/types"
)

// AlertDocument is the envelope around the alert list. Dashboards key on
// generatedTimestamp and count, so both are written even when the list is
// empty.
type AlertDocument struct {
	GeneratedTimestamp string        `json:"generatedTimestamp"`
	Count              int           `json:"count"`
	Alerts             []types.Alert `json:"alerts"`
}

// NewDocument wraps alerts in the envelope. A nil slice becomes an empty
// JSON array, never null.
func NewDocument(alerts []types.Alert, generatedAt time.Time) AlertDocument {
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return AlertDocument{
		GeneratedTimestamp: generatedAt.UTC().Format(time.RFC3339),
		Count:              len(alerts),
		Alerts:             alerts,
	}
}

// Render serializes the document with two-space indentation and a
// trailing newline.
func (d AlertDocument) Render() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalExport,
			"failed to serialize alert document",
			err,
		)
	}
	return append(data, '\n'), nil
}

// WriteFile writes data to path atomically: the bytes land in a temp file
// in the target directory and replace any previous artifact in a single
// rename. Missing parent directories are created.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalExport,
			fmt.Sprintf("failed to create output directory %s", dir),
			err,
		)
	}

	tmp, err := os.CreateTemp(dir, ".alerts-*.json")
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalExport,
			"failed to create temp file for alert document",
			err,
		)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return types.NewAppError(
			types.ErrCodeInternalExport,
			"failed to write alert document",
			err,
		)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return types.NewAppError(
			types.ErrCodeInternalExport,
			"failed to flush alert document",
			err,
		)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return types.NewAppError(
			types.ErrCodeInternalExport,
			fmt.Sprintf("failed to move alert document into place at %s", path),
			err,
		)
	}
	return nil
}
