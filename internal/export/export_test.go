package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

func sampleEntries() []models.HistoryEntry {
	return []models.HistoryEntry{
		{QueryID: 1, Time: "2024-05-01_08-30-00", QueryImageFile: "q/1.png", ResultImageFile: "r/1.png", NumHumans: 0},
		{QueryID: 2, Time: "2024-05-01_08-31-10", QueryImageFile: "q/2.png", ResultImageFile: "r/2.png", NumHumans: 4},
	}
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteParquet(&buf, sampleEntries()); err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}

	pf, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Failed to open parquet output: %v", err)
	}
	if pf.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", pf.NumRows())
	}

	reader := parquet.NewGenericReader[models.HistoryEntry](pf)
	defer reader.Close()

	rows := make([]models.HistoryEntry, 2)
	n, _ := reader.Read(rows)
	if n != 2 {
		t.Fatalf("Expected to read 2 rows, got %d", n)
	}
	if rows[1] != sampleEntries()[1] {
		t.Errorf("Expected %+v, got %+v", sampleEntries()[1], rows[1])
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, sampleEntries()); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if doc.Total != 2 || len(doc.Records) != 2 {
		t.Fatalf("Expected 2 records, got total %d and %d records", doc.Total, len(doc.Records))
	}
	if doc.Records[0].Time != "2024-05-01_08-30-00" {
		t.Errorf("Unexpected time %s", doc.Records[0].Time)
	}
	if !strings.Contains(buf.String(), "query_image_file: q/1.png") {
		t.Errorf("Expected snake_case keys in YAML, got:\n%s", buf.String())
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sampleEntries()); err != nil {
		t.Fatalf("WriteJSONL failed: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var lines int
	for scanner.Scan() {
		var e models.HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", lines+1, err)
		}
		if e != sampleEntries()[lines] {
			t.Errorf("Line %d: expected %+v, got %+v", lines+1, sampleEntries()[lines], e)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("Expected 2 lines, got %d", lines)
	}
}

func TestWriteFile(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{format: "parquet"},
		{format: "YAML"},
		{format: "jsonl"},
		{format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "history."+strings.ToLower(tt.format))
			err := WriteFile(path, tt.format, sampleEntries())
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil || info.Size() == 0 {
				t.Errorf("Expected non-empty file at %s", path)
			}
		})
	}
}
