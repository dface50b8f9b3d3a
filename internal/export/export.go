// Package export writes prediction history to Parquet, YAML or JSON Lines.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

const (
	FormatParquet = "parquet"
	FormatYAML    = "yaml"
	FormatJSONL   = "jsonl"
)

// Formats lists every supported export format
var Formats = []string{FormatParquet, FormatYAML, FormatJSONL}

// yamlDocument is the top-level shape of a YAML export
type yamlDocument struct {
	Total   int                   `yaml:"total"`
	Records []models.HistoryEntry `yaml:"records"`
}

// Write encodes entries to w in the given format
func Write(w io.Writer, format string, entries []models.HistoryEntry) error {
	switch strings.ToLower(format) {
	case FormatParquet:
		return WriteParquet(w, entries)
	case FormatYAML, "yml":
		return WriteYAML(w, entries)
	case FormatJSONL, "ndjson":
		return WriteJSONL(w, entries)
	}
	return fmt.Errorf("unsupported export format %q (use one of %s)", format, strings.Join(Formats, ", "))
}

// WriteFile creates path and writes entries to it
func WriteFile(path, format string, entries []models.HistoryEntry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := Write(file, format, entries); err != nil {
		return err
	}
	return file.Close()
}

func WriteParquet(w io.Writer, entries []models.HistoryEntry) error {
	writer := parquet.NewGenericWriter[models.HistoryEntry](w)
	if _, err := writer.Write(entries); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func WriteYAML(w io.Writer, entries []models.HistoryEntry) error {
	doc := yamlDocument{Total: len(entries), Records: entries}
	if doc.Records == nil {
		doc.Records = []models.HistoryEntry{}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	return nil
}

func WriteJSONL(w io.Writer, entries []models.HistoryEntry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to write JSON line: %w", err)
		}
	}
	return nil
}
