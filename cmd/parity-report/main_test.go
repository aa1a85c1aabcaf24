package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"parity/internal/report"
	"parity/internal/runinfo"
)

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix string
		name   string
		want   string
	}{
		{prefix: "", name: "reports.json", want: "reports.json"},
		{prefix: "site", name: "reports.json", want: "site/reports.json"},
		{prefix: "/site/", name: "reports.json", want: "site/reports.json"},
		{prefix: "  ", name: "reports.json", want: "reports.json"},
	}
	for _, tc := range cases {
		if got := objectKey(tc.prefix, tc.name); got != tc.want {
			t.Fatalf("objectKey(%q, %q) = %q, want %q", tc.prefix, tc.name, got, tc.want)
		}
	}
}

func TestDeriveUploadObjectURL(t *testing.T) {
	cases := []struct {
		name   string
		upload string
		file   string
		base   string
		want   string
	}{
		{name: "empty upload", upload: "", file: "summary.json", base: "https://cdn", want: ""},
		{name: "empty file", upload: "https://cdn/case/", file: "", want: ""},
		{name: "http upload", upload: "https://cdn/case/", file: "summary.json", want: "https://cdn/case/summary.json"},
		{name: "s3 without base", upload: "s3://bucket/runs/case/", file: "summary.json", want: ""},
		{name: "s3 with base", upload: "s3://bucket/runs/case/", file: "case.tar.zst", base: "https://cdn/", want: "https://cdn/runs/case/case.tar.zst"},
		{name: "gcs upload", upload: "gs://bucket/case/", file: "summary.json", base: "https://cdn", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveUploadObjectURL(tc.upload, tc.file, tc.base); got != tc.want {
				t.Fatalf("deriveUploadObjectURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseS3URI(t *testing.T) {
	bucket, prefix, err := parseS3URI("s3://runs/nightly")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bucket != "runs" || prefix != "nightly/" {
		t.Fatalf("unexpected bucket=%q prefix=%q", bucket, prefix)
	}
	if _, _, err := parseS3URI("s3://"); err == nil {
		t.Fatalf("expected error for empty bucket")
	}
}

func writeSummary(t *testing.T, dir string, summary report.Summary) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.json"), data, 0o644); err != nil {
		t.Fatalf("write summary: %v", err)
	}
}

func TestLoadLocalCases(t *testing.T) {
	root := t.TempDir()
	writeSummary(t, filepath.Join(root, "case_0001"), report.Summary{
		EntryPoint: "adder",
		Passed:     true,
		Total:      80,
		Timestamp:  "2026-01-02T00:00:00Z",
	})
	failing := filepath.Join(root, "case_0002")
	writeSummary(t, failing, report.Summary{
		EntryPoint: "adder-wrong",
		CaseID:     "case_0002_x",
		Total:      80,
		Failures:   3,
		Timestamp:  "2026-01-01T00:00:00Z",
		RunInfo:    &runinfo.BasicInfo{Commit: "abc123"},
		FirstFailure: &report.Counterexample{
			Verdict: "Mismatch",
			Reason:  "return value differs",
		},
		ArchiveName: report.CaseArchiveName,
	})
	if err := os.WriteFile(filepath.Join(failing, "README.md"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	if err := os.WriteFile(filepath.Join(failing, report.CaseArchiveName), []byte{0x28, 0xb5}, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	bad := filepath.Join(root, "bad")
	if err := os.MkdirAll(bad, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bad, "summary.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write bad summary: %v", err)
	}

	cases, err := loadLocalCases(root, loadOptions{MaxBytes: 4})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	sortCases(cases)
	first := cases[0]
	if first.EntryPoint != "adder-wrong" || first.ID != "case_0002_x" {
		t.Fatalf("failing case should sort first, got %+v", first)
	}
	if first.Commit != "abc123" || first.FirstVerdict != "Mismatch" {
		t.Fatalf("unexpected metadata: commit=%q verdict=%q", first.Commit, first.FirstVerdict)
	}
	readme := first.Files["README.md"]
	if readme.Content != "0123" || !readme.Truncated {
		t.Fatalf("readme should be truncated to 4 bytes, got %+v", readme)
	}
	if _, ok := first.Files[report.CaseArchiveName]; !ok {
		t.Fatalf("archive should be listed")
	}
	if cases[1].ID != "case_0001" {
		t.Fatalf("fallback id should be the directory name, got %q", cases[1].ID)
	}
}

func TestWriteJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	site := SiteData{Source: ".report", Cases: []CaseEntry{{ID: "a", EntryPoint: "adder"}}}
	if err := writeJSON(out, site); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "reports.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got SiteData
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Cases) != 1 || got.Cases[0].EntryPoint != "adder" {
		t.Fatalf("unexpected site: %+v", got)
	}
}
