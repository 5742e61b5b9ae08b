package runtime

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed runtimes/*.yaml
var embeddedRuntimes embed.FS

// PathEnv names the environment variable pointing at a directory of extra
// runtime files
const PathEnv = "PIPEGEN_RUNTIMES_PATH"

// runtimeFile is the YAML shape of a runtime registry file
type runtimeFile struct {
	Tools map[string]map[string]string `yaml:"tools"`
}

// NewDefaultRegistry returns a registry loaded with the embedded runtimes and
// any files found in the directory named by PIPEGEN_RUNTIMES_PATH
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadFromFS(embeddedRuntimes, "runtimes"); err != nil {
		return nil, fmt.Errorf("failed to load embedded runtimes: %w", err)
	}
	if path := os.Getenv(PathEnv); path != "" {
		if err := r.LoadFromDirectory(path); err != nil {
			return nil, fmt.Errorf("failed to load runtimes from %s: %w", path, err)
		}
	}
	return r, nil
}

// LoadFromFS loads every .yaml/.yml file found directly under basePath
func (r *Registry) LoadFromFS(fsys fs.FS, basePath string) error {
	entries, err := fs.ReadDir(fsys, basePath)
	if err != nil {
		return fmt.Errorf("failed to read runtimes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		filePath := filepath.ToSlash(filepath.Join(basePath, entry.Name()))
		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filePath, err)
		}

		if err := r.LoadBytes(data); err != nil {
			return fmt.Errorf("failed to load runtimes from %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// LoadFromDirectory loads runtime files from a filesystem directory. A missing
// directory is not an error.
func (r *Registry) LoadFromDirectory(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return nil
	}
	return r.LoadFromFS(os.DirFS(dirPath), ".")
}

// LoadBytes registers every triple of a YAML runtime document
func (r *Registry) LoadBytes(data []byte) error {
	var file runtimeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for tool, versions := range file.Tools {
		for version, image := range versions {
			if err := r.Register(Entry{Tool: tool, Version: version, Image: image}); err != nil {
				return err
			}
		}
	}
	return nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
