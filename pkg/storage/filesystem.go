package storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// ErrExportNotFound is returned when no export file has the requested name
var ErrExportNotFound = errors.New("export not found")

// loadConcurrency bounds the files parsed at once by LoadAll
const loadConcurrency = 4

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// ExportDirectory stores shareable workflow exports as YAML files.
// Credentials are redacted on the way in.
type ExportDirectory struct {
	baseDir string
}

// NewExportDirectory opens the exports directory under configDir,
// creating it if needed
func NewExportDirectory(configDir string) (*ExportDirectory, error) {
	dir := filepath.Join(configDir, "exports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	return &ExportDirectory{baseDir: dir}, nil
}

// Dir returns the directory holding the exports
func (r *ExportDirectory) Dir() string {
	return r.baseDir
}

// Slug turns a workflow name into a file name stem
func Slug(name string) string {
	s := unsafeNameChars.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "workflow"
	}
	return s
}

// Save writes def as <slug>.yaml and returns the path and any credential
// warnings. The file is written atomically using a temp file and rename.
func (r *ExportDirectory) Save(def *workflow.Definition) (string, []workflow.CredentialWarning, error) {
	if def == nil {
		return "", nil, fmt.Errorf("cannot save nil workflow")
	}

	data, warnings, err := workflow.Export(def)
	if err != nil {
		return "", warnings, err
	}

	filePath := r.path(Slug(def.Name))
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", warnings, fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return "", warnings, fmt.Errorf("failed to save export file: %w", err)
	}
	return filePath, warnings, nil
}

// Load reads the export with the given name
func (r *ExportDirectory) Load(name string) (*workflow.Definition, error) {
	filePath := r.path(Slug(strings.TrimSuffix(name, ".yaml")))
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, name)
	}
	return workflow.ParseFile(filePath)
}

// Delete removes the export with the given name
func (r *ExportDirectory) Delete(name string) error {
	filePath := r.path(Slug(strings.TrimSuffix(name, ".yaml")))
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrExportNotFound, name)
		}
		return fmt.Errorf("failed to delete export file: %w", err)
	}
	return nil
}

// List returns the names of all exports
func (r *ExportDirectory) List() ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read exports directory: %w", err)
	}

	names := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	return names, nil
}

// LoadAll returns every export that parses, in name order; broken files
// are logged and skipped. Files are parsed concurrently.
func (r *ExportDirectory) LoadAll() ([]*workflow.Definition, error) {
	names, err := r.List()
	if err != nil {
		return nil, err
	}

	loaded := make([]*workflow.Definition, len(names))
	var g errgroup.Group
	g.SetLimit(loadConcurrency)
	for i, name := range names {
		g.Go(func() error {
			def, err := r.Load(name)
			if err != nil {
				log.Printf("storage: skipping export %s: %v", name, err)
				return nil
			}
			loaded[i] = def
			return nil
		})
	}
	_ = g.Wait()

	defs := make([]*workflow.Definition, 0, len(names))
	for _, def := range loaded {
		if def != nil {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func (r *ExportDirectory) path(stem string) string {
	return filepath.Join(r.baseDir, stem+".yaml")
}
