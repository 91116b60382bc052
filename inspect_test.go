package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInspectNpdm builds a blob, writes it to disk and checks the layout
// report names every section
func TestInspectNpdm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.npdm")
	if err := os.WriteFile(path, buildPlaceholder(t), 0o644); err != nil {
		t.Fatalf("Failed to write blob: %v", err)
	}

	var out bytes.Buffer
	if err := inspectNpdm(path, &out); err != nil {
		t.Fatalf("inspectNpdm failed: %v", err)
	}
	report := out.String()

	for _, want := range []string{
		"nxmeta-test",
		"program id: 0x0100000000010000",
		"ACID signature",
		"ACID kernel access control",
		"ACI0 service access control",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Report is missing %q:\n%s", want, report)
		}
	}
}

// TestInspectRejectsBadMagic verifies that a non-NPDM file is refused
func TestInspectRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.npdm")
	if err := os.WriteFile(path, make([]byte, 0x200), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	var out bytes.Buffer
	if err := inspectNpdm(path, &out); err == nil {
		t.Errorf("Expected an error for a file without the META magic")
	}
}
