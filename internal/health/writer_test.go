package health

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleReport() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Mode:        "analyze",
		Counts:      Counts{Files: 1200, Locations: 40, OrphanedRefs: 2},
		HealthScore: 87,
		Passed:      false,
		Errors: []Issue{
			{Category: "orphaned_reference", Subject: "f1", Detail: "references missing location L9"},
		},
		Warnings:  []Issue{},
		Successes: []string{"all file statuses consistent with locations"},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteJSON(sampleReport(), path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.HealthScore != 87 || decoded.Mode != "analyze" || decoded.Passed {
		t.Errorf("report did not round-trip: %+v", decoded)
	}
	if len(decoded.Errors) != 1 || decoded.Errors[0].Category != "orphaned_reference" {
		t.Errorf("errors did not round-trip: %v", decoded.Errors)
	}
}

func TestWriteJSONCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "20260830-120000", "report.json")

	if err := WriteJSON(sampleReport(), path); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")

	if err := WriteMarkdown(sampleReport(), path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	md := string(data)

	for _, want := range []string{
		"87/100",
		"FAILED",
		"1,200", // counts are humanized
		"orphaned_reference",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestReportDirLayout(t *testing.T) {
	dir := ReportDir("artifacts")

	if !strings.HasPrefix(dir, filepath.Join("artifacts", "reports")) {
		t.Errorf("unexpected report dir %q", dir)
	}
	base := filepath.Base(dir)
	if _, err := time.Parse("20060102-150405", base); err != nil {
		t.Errorf("report dir %q is not timestamped: %v", base, err)
	}
}
