// Package examples bundles ready-made procedure definitions into the binary
// so the CLI can offer starting points without touching the network.
package examples

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed *.yaml
var bundled embed.FS

// descriptions gives each bundled procedure a one-line summary for listings.
// A file without an entry falls back to a generic line rather than failing.
var descriptions = map[string]string{
	"daily-forecast-digest": "Conditional branching over collected records with templated parameters",
	"document-fanout":       "Concurrent foreach and parallel fan-out across a document list",
}

// Example identifies one bundled procedure definition.
type Example struct {
	Name        string
	Description string
	FilePath    string
}

// List returns the bundled examples in name order.
func List() ([]Example, error) {
	files, err := fs.Glob(bundled, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading bundled examples: %w", err)
	}

	examples := make([]Example, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(file, ".yaml")
		desc := descriptions[name]
		if desc == "" {
			desc = "Example procedure"
		}
		examples = append(examples, Example{
			Name:        name,
			Description: desc,
			FilePath:    file,
		})
	}
	return examples, nil
}

// Get returns the YAML content of a bundled example.
func Get(name string) ([]byte, error) {
	content, err := bundled.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("example %q not found", name)
	}
	return content, nil
}

// Exists reports whether a bundled example with the given name exists.
func Exists(name string) bool {
	_, err := fs.Stat(bundled, name+".yaml")
	return err == nil
}

// CopyTo writes a bundled example to destPath, creating parent directories
// as needed.
func CopyTo(name, destPath string) error {
	content, err := Get(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return fmt.Errorf("writing example file: %w", err)
	}
	return nil
}
