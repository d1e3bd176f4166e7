package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleHeader = `<?php
/**
 * Plugin Name: Demo Plugin
 * Version: 1.4.2
 * Author: Example Ltd
 * Requires at least: 6.0
 * Requires PHP: 8.0
 * Version: 9.9.9
 */
`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Descriptor
		wantErr error
	}{
		{
			name:  "docblock header",
			input: sampleHeader,
			want: Descriptor{
				Name:            "Demo Plugin",
				Version:         "1.4.2",
				Author:          "Example Ltd",
				RequiresHost:    "6.0",
				RequiresRuntime: "8.0",
			},
		},
		{
			name:  "hash comments and runtime alias",
			input: "# Plugin Name: Tool\n# Version: 0.1.0\n# Requires Runtime: 1.22\n",
			want:  Descriptor{Name: "Tool", Version: "0.1.0", RequiresRuntime: "1.22"},
		},
		{
			name:  "single line comment closing",
			input: "/* Version: 2.0.0 */\n// Plugin Name: Inline\n",
			want:  Descriptor{Name: "Inline", Version: "2.0.0"},
		},
		{
			name:    "missing version",
			input:   "/* Plugin Name: Broken */\n",
			wantErr: ErrNoVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "demo-plugin")
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		t.Fatal(err)
	}
	mainFile := filepath.Join(pluginDir, "demo-plugin.php")
	if err := os.WriteFile(mainFile, []byte(sampleHeader), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, file := range []string{mainFile, filepath.Join("demo-plugin", "demo-plugin.php")} {
		d, err := Load(dir, file)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", file, err)
		}
		if d.FilePath != "demo-plugin/demo-plugin.php" {
			t.Errorf("FilePath = %q, want %q", d.FilePath, "demo-plugin/demo-plugin.php")
		}
		if d.Slug != "demo-plugin" {
			t.Errorf("Slug = %q, want %q", d.Slug, "demo-plugin")
		}
		if d.Version != "1.4.2" {
			t.Errorf("Version = %q, want %q", d.Version, "1.4.2")
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir, "missing/missing.php"); err == nil {
		t.Error("Load() of missing file expected error")
	}

	outside := filepath.Join(t.TempDir(), "x.php")
	if err := os.WriteFile(outside, []byte("/* Version: 1.0.0 */"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, outside); err == nil || !strings.Contains(err.Error(), "outside plugins directory") {
		t.Errorf("Load() of file outside dir error = %v", err)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"demo/demo.php":     "demo",
		"nested/a/b.php":    "nested/a",
		"single-file.php":   ".",
		"my-plugin/main.go": "my-plugin",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
