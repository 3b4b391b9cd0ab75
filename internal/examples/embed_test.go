package examples

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/opsforge/playbook/pkg/function/builtin"
	"github.com/opsforge/playbook/pkg/procedure"
)

func TestList(t *testing.T) {
	examples, err := List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	if len(examples) == 0 {
		t.Fatal("List() returned no examples")
	}

	found := false
	for _, ex := range examples {
		if ex.Name == "daily-forecast-digest" {
			found = true
			if ex.Description == "" {
				t.Error("daily-forecast-digest example has no description")
			}
			break
		}
	}

	if !found {
		t.Error("daily-forecast-digest example not found in list")
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"daily-forecast-digest", false},
		{"document-fanout", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := Get(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Get() expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Get() unexpected error: %v", err)
				}
				if len(content) == 0 {
					t.Error("Get() returned empty content")
				}
			}
		})
	}
}

func TestExists(t *testing.T) {
	if !Exists("document-fanout") {
		t.Error("Exists(document-fanout) = false")
	}
	if Exists("nonexistent") {
		t.Error("Exists(nonexistent) = true")
	}
}

func TestCopyTo(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "copy.yaml")

	if err := CopyTo("document-fanout", dest); err != nil {
		t.Fatalf("CopyTo() failed: %v", err)
	}

	copied, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading copied example: %v", err)
	}
	original, _ := Get("document-fanout")
	if string(copied) != string(original) {
		t.Error("copied example does not match embedded content")
	}

	if err := CopyTo("nonexistent", dest); err == nil {
		t.Error("CopyTo(nonexistent) expected error, got nil")
	}
}

// Every embedded example must parse and pass the full validator against
// the builtin function catalog.
func TestEmbeddedExamplesValidate(t *testing.T) {
	registry, err := builtin.NewRegistry(slog.Default())
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	validator := procedure.NewValidator(registry)

	examples, err := List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	for _, ex := range examples {
		t.Run(ex.Name, func(t *testing.T) {
			content, err := Get(ex.Name)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}

			def, err := procedure.Parse(content)
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}

			result := validator.Validate(def)
			if !result.Valid {
				t.Errorf("example does not validate: %+v", result.Errors)
			}
		})
	}
}
