package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// TasksFile is the top-level structure parsed from a tasks.toml file.
type TasksFile struct {
	Tasks []TaskConfig `toml:"tasks"`
	path  string       // unexported: filesystem path of the tasks.toml
}

// Path returns the filesystem path this file was loaded from.
func (f *TasksFile) Path() string {
	return f.path
}

// Dir returns the directory containing this file.
func (f *TasksFile) Dir() string {
	return filepath.Dir(f.path)
}

// TaskConfig holds a single task definition.
type TaskConfig struct {
	Name    string         `toml:"name"`
	Command string         `toml:"command"`
	Status  string         `toml:"status"`
	After   []string       `toml:"after"`
	Inputs  map[string]any `toml:"inputs"`
}

// Load parses a tasks.toml file.
func Load(path string) (*TasksFile, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", absPath, err)
	}

	var f TasksFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", absPath, err)
	}

	f.path = absPath
	return &f, nil
}
