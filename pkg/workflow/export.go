package workflow

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
)

// RedactedValue replaces sensitive config values on export
const RedactedValue = "<CREDENTIAL_REQUIRED>"

// sensitiveKeyPatterns are key fragments that indicate credentials
var sensitiveKeyPatterns = []string{
	"KEY",
	"SECRET",
	"TOKEN",
	"PASSWORD",
	"PASSPHRASE",
	"CREDENTIAL",
	"BEARER",
	"PRIVATE",
}

// credentialPatterns detect common secret formats inside values
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                   // AWS access key id
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),              // OpenAI style key
	regexp.MustCompile(`sk_(live|test)_[a-zA-Z0-9]{24,}`),    // Stripe key
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),        // GitHub token
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_=.]{16,}`), // bearer header
	regexp.MustCompile(`-----BEGIN\s+(RSA|DSA|EC|OPENSSH)\s+PRIVATE\s+KEY-----`),
	regexp.MustCompile(`(?i)(postgres|mysql|mongodb)://[^:]+:[^@]+@`),
}

// CredentialWarning is a potential credential found in a definition
type CredentialWarning struct {
	Location string
	Pattern  string
	Severity string
	Message  string
}

// ScanForCredentials looks for credential-like keys and values in step
// configs and connection conditions
func ScanForCredentials(def *Definition) []CredentialWarning {
	if def == nil {
		return nil
	}

	var warnings []CredentialWarning
	warnings = append(warnings, scanString(def.Description, "description")...)

	for i, s := range def.Definition.Steps {
		location := fmt.Sprintf("steps[%d].%s.config", i, s.ID)
		warnings = append(warnings, scanMap(s.Config, location)...)
	}
	for i, c := range def.Definition.Connections {
		if c.Condition != "" {
			warnings = append(warnings, scanString(c.Condition, fmt.Sprintf("connections[%d].condition", i))...)
		}
	}
	return warnings
}

func scanString(value, location string) []CredentialWarning {
	if value == "" {
		return nil
	}
	for _, pattern := range credentialPatterns {
		if pattern.MatchString(value) {
			return []CredentialWarning{{
				Location: location,
				Pattern:  pattern.String(),
				Severity: "high",
				Message:  "Potential credential detected in value",
			}}
		}
	}
	if len(value) >= 24 && !strings.ContainsAny(value, " \n\t") && isHighEntropy(value) {
		return []CredentialWarning{{
			Location: location,
			Pattern:  "high entropy string",
			Severity: "medium",
			Message:  fmt.Sprintf("String has high entropy (%d chars), may be a credential", len(value)),
		}}
	}
	return nil
}

func scanMap(m map[string]any, location string) []CredentialWarning {
	var warnings []CredentialWarning
	for _, key := range sortedKeys(m) {
		if key == KeyAgentID {
			continue
		}
		keyLocation := location + "." + key
		if isSensitiveKey(key) {
			warnings = append(warnings, CredentialWarning{
				Location: keyLocation,
				Pattern:  "sensitive key name",
				Severity: "high",
				Message:  fmt.Sprintf("Configuration key '%s' suggests it may contain credentials", key),
			})
		}
		switch v := m[key].(type) {
		case string:
			warnings = append(warnings, scanString(v, keyLocation)...)
		case map[string]any:
			warnings = append(warnings, scanMap(v, keyLocation)...)
		case []any:
			for i, item := range v {
				itemLocation := fmt.Sprintf("%s[%d]", keyLocation, i)
				switch iv := item.(type) {
				case string:
					warnings = append(warnings, scanString(iv, itemLocation)...)
				case map[string]any:
					warnings = append(warnings, scanMap(iv, itemLocation)...)
				}
			}
		}
	}
	return warnings
}

// isHighEntropy reports whether the Shannon entropy of s, normalized by
// the maximum for its length, is above 0.8
func isHighEntropy(s string) bool {
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	if n < 2 {
		return false
	}
	var entropy float64
	for _, count := range freq {
		p := float64(count) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy/math.Log2(float64(n)) > 0.8
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	if strings.HasSuffix(upper, "TOKENS") {
		return false
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return strings.Contains(upper, "DSN") || strings.Contains(upper, "OAUTH")
}

// Export renders a definition as shareable YAML. Config values under
// sensitive keys are replaced with RedactedValue; the input is not modified.
func Export(def *Definition) ([]byte, []CredentialWarning, error) {
	if def == nil {
		return nil, nil, errors.New("definition cannot be nil")
	}
	warnings := ScanForCredentials(def)

	c := *def
	c.Definition.Steps = make([]Step, len(def.Definition.Steps))
	for i, s := range def.Definition.Steps {
		s.Config = redactMap(s.Config)
		c.Definition.Steps[i] = s
	}

	out, err := ToYAML(&c)
	if err != nil {
		return nil, warnings, err
	}
	return out, warnings, nil
}

// ExportFile writes Export output to path
func ExportFile(def *Definition, path string) ([]CredentialWarning, error) {
	if path == "" {
		return nil, errors.New("file path cannot be empty")
	}
	out, warnings, err := Export(def)
	if err != nil {
		return warnings, fmt.Errorf("failed to export workflow: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return warnings, fmt.Errorf("failed to write workflow file: %w", err)
	}
	return warnings, nil
}

// RedactedLocations lists the config values of def still holding
// RedactedValue, as left by Export
func RedactedLocations(def *Definition) []string {
	if def == nil {
		return nil
	}
	var locs []string
	var walk func(m map[string]any, prefix string)
	walk = func(m map[string]any, prefix string) {
		for _, k := range sortedKeys(m) {
			switch v := m[k].(type) {
			case string:
				if v == RedactedValue {
					locs = append(locs, prefix+"."+k)
				}
			case map[string]any:
				walk(v, prefix+"."+k)
			}
		}
	}
	for i, s := range def.Definition.Steps {
		walk(s.Config, fmt.Sprintf("steps[%d].%s.config", i, s.ID))
	}
	return locs
}

func redactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case k == KeyAgentID:
			out[k] = v
		case isSensitiveKey(k):
			out[k] = RedactedValue
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = redactMap(nested)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
