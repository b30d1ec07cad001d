package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func exportFixture() *Definition {
	return &Definition{
		Name: "exported",
		Definition: Body{
			Steps: []Step{
				{ID: "api", Name: "Webhook", Type: "api", Config: map[string]any{
					KeyURL:    "https://example.com",
					KeyMethod: "POST",
					"api_key": "sk-abcdefghijklmnopqrstuvwx",
					"headers": map[string]any{"Authorization_token": "secret"},
				}},
				{ID: "agent", Name: "Agent", Type: "agent", Config: map[string]any{
					KeyAgentID:   "3f2b9c1e-8d4a-4e7b-9a61-2c5d7e8f9a0b",
					"max_tokens": 1000,
				}},
			},
		},
	}
}

func TestScanForCredentials(t *testing.T) {
	warnings := ScanForCredentials(exportFixture())

	locations := make(map[string]bool)
	for _, w := range warnings {
		locations[w.Location] = true
	}

	for _, want := range []string{
		"steps[0].api.config.api_key",
		"steps[0].api.config.headers.Authorization_token",
	} {
		if !locations[want] {
			t.Errorf("Expected warning at %s, got %+v", want, warnings)
		}
	}
	for loc := range locations {
		if strings.Contains(loc, "agent_id") || strings.Contains(loc, "max_tokens") {
			t.Errorf("Unexpected warning at %s", loc)
		}
	}

	if ScanForCredentials(nil) != nil {
		t.Error("Expected nil warnings for nil definition")
	}
}

func TestExport_RedactsWithoutMutating(t *testing.T) {
	def := exportFixture()
	out, warnings, err := Export(def)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(warnings) == 0 {
		t.Error("Expected credential warnings")
	}

	text := string(out)
	if strings.Contains(text, "sk-abcdefghijklmnopqrstuvwx") {
		t.Error("Exported YAML still contains the api key")
	}
	if !strings.Contains(text, RedactedValue) {
		t.Error("Exported YAML missing redaction marker")
	}
	if !strings.Contains(text, "max_tokens: 1000") {
		t.Error("Non-sensitive key was redacted")
	}
	if def.Definition.Steps[0].Config["api_key"] != "sk-abcdefghijklmnopqrstuvwx" {
		t.Error("Export modified the input definition")
	}
}

func TestExportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	if _, err := ExportFile(exportFixture(), path); err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	def, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("exported file does not parse: %v", err)
	}
	if def.Definition.Steps[0].Config["api_key"] != RedactedValue {
		t.Errorf("Expected redacted api_key, got %v", def.Definition.Steps[0].Config["api_key"])
	}

	if _, err := ExportFile(exportFixture(), ""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestRedactedLocations(t *testing.T) {
	def := &Definition{
		Name: "redacted",
		Definition: Body{
			Steps: []Step{
				{ID: "api", Type: "api", Config: map[string]any{
					KeyURL:    "https://example.com",
					"api_key": RedactedValue,
					"headers": map[string]any{"x_token": RedactedValue, "accept": "json"},
				}},
				{ID: "out", Type: "output", Config: map[string]any{}},
			},
		},
	}

	got := RedactedLocations(def)
	want := []string{
		"steps[0].api.config.api_key",
		"steps[0].api.config.headers.x_token",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("RedactedLocations() = %v, want %v", got, want)
	}

	if locs := RedactedLocations(nil); locs != nil {
		t.Errorf("RedactedLocations(nil) = %v, want nil", locs)
	}
}
