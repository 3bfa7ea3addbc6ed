package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsExcluded(t *testing.T) {
	testCases := []struct {
		name     string
		target   string
		excludes []string
		expected bool
	}{
		{"empty list", "/dev/sdb", nil, false},
		{"exact match", "/dev/sdb", []string{"/dev/sdb"}, true},
		{"no match", "/dev/sdb", []string{"/dev/sda", "/dev/sdc"}, false},
		{"cleaned paths match", "/dev//sdb/", []string{"/dev/sdb"}, true},
		{"whitespace tolerated", "/dev/sdb", []string{" /dev/sdb "}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isExcluded(tc.target, tc.excludes); got != tc.expected {
				t.Errorf("isExcluded(%q, %v) = %v, expected %v", tc.target, tc.excludes, got, tc.expected)
			}
		})
	}
}

func TestRunExcludedDeviceExitCode(t *testing.T) {
	if code := run([]string{"/dev/sdx", "--exclude", "/dev/sdx"}); code != exitExcluded {
		t.Errorf("Expected exit code %d for excluded device, got %d", exitExcluded, code)
	}
}

func TestRunMissingDeviceExitCode(t *testing.T) {
	if code := run([]string{"/dev/definitely-not-a-disk"}); code != exitUsage {
		t.Errorf("Expected exit code %d for missing device, got %d", exitUsage, code)
	}
}

func TestRunInvalidCheckTypeExitCode(t *testing.T) {
	target := diskImage(t)
	if code := run([]string{target, "--type", "bogus"}); code != exitUsage {
		t.Errorf("Expected exit code %d for invalid check type, got %d", exitUsage, code)
	}
}

func TestRunInvalidFormatExitCode(t *testing.T) {
	target := diskImage(t)
	if code := run([]string{target, "--format", "yaml"}); code != exitUsage {
		t.Errorf("Expected exit code %d for invalid format, got %d", exitUsage, code)
	}
}

func TestVersionSubcommand(t *testing.T) {
	if code := run([]string{"version"}); code != exitOK {
		t.Errorf("Expected exit code %d from version subcommand, got %d", exitOK, code)
	}
}

func diskImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drive.img")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 4096)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
