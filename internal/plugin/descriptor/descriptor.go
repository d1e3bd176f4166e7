// Package descriptor reads the local plugin descriptor from the header block
// of a plugin's main file.
package descriptor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// headerSize is how much of the main file is scanned for header fields.
const headerSize = 8 * 1024

// ErrNoVersion is returned when the header declares no Version field.
var ErrNoVersion = errors.New("plugin header has no Version field")

// headerLine matches "Key: value", optionally behind comment markers.
var headerLine = regexp.MustCompile(`^[\s/*#@]*([A-Za-z][A-Za-z ]*?)\s*:\s*(.*?)\s*(?:\*/)?\s*$`)

// Header keys and the Descriptor fields they populate.
var headerKeys = map[string]func(*Descriptor, string){
	"plugin name":       func(d *Descriptor, v string) { d.Name = v },
	"version":           func(d *Descriptor, v string) { d.Version = v },
	"author":            func(d *Descriptor, v string) { d.Author = v },
	"requires at least": func(d *Descriptor, v string) { d.RequiresHost = v },
	"requires php":      func(d *Descriptor, v string) { d.RequiresRuntime = v },
	"requires runtime":  func(d *Descriptor, v string) { d.RequiresRuntime = v },
}

// Descriptor describes the installed plugin. It is immutable once loaded.
type Descriptor struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Author          string `json:"author,omitempty"`
	RequiresHost    string `json:"requires,omitempty"`
	RequiresRuntime string `json:"requires_php,omitempty"`

	// FilePath is the main file relative to the plugins directory, using
	// forward slashes (e.g. "my-plugin/my-plugin.php").
	FilePath string `json:"file_path"`

	// Slug is the directory name of FilePath.
	Slug string `json:"slug"`
}

// Load reads the descriptor of the plugin whose main file is pluginFile.
// pluginFile may be absolute or relative to pluginsDir.
func Load(pluginsDir, pluginFile string) (*Descriptor, error) {
	full := pluginFile
	if !filepath.IsAbs(full) {
		full = filepath.Join(pluginsDir, pluginFile)
	}

	f, err := os.Open(full) // #nosec G304 - plugin path comes from host configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin file: %w", err)
	}
	defer f.Close()

	d, err := Parse(io.LimitReader(f, headerSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", full, err)
	}

	rel, err := Basename(pluginsDir, full)
	if err != nil {
		return nil, err
	}
	d.FilePath = rel
	d.Slug = Slug(rel)

	return d, nil
}

// Parse reads header fields from r. The first occurrence of a key wins.
func Parse(r io.Reader) (*Descriptor, error) {
	d := &Descriptor{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := headerLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(m[1]))
		set, ok := headerKeys[key]
		if !ok || seen[key] || m[2] == "" {
			continue
		}
		seen[key] = true
		set(d, m[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plugin header: %w", err)
	}

	if d.Version == "" {
		return nil, ErrNoVersion
	}

	return d, nil
}

// Basename returns file relative to pluginsDir with forward slashes.
func Basename(pluginsDir, file string) (string, error) {
	absDir, err := filepath.Abs(pluginsDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve plugins directory: %w", err)
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve plugin file: %w", err)
	}

	rel, err := filepath.Rel(absDir, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("plugin file %s is outside plugins directory %s", file, pluginsDir)
	}
	return filepath.ToSlash(rel), nil
}

// Slug returns the directory name of a plugin file path.
func Slug(filePath string) string {
	return path.Dir(filePath)
}
