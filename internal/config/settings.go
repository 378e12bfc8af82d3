package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings holds workspace-level options from devenv.toml, next to the
// tasks file. Everything here can also be given on the command line; flags
// win over the file.
type Settings struct {
	CacheDB     string `toml:"cache_db"`
	SecretsFile string `toml:"secrets_file"`
}

// LoadSettings loads devenv.toml from rootDir.
// Returns nil, nil if the file doesn't exist (settings are optional).
func LoadSettings(rootDir string) (*Settings, error) {
	path := filepath.Join(rootDir, "devenv.toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}

	// Make relative paths absolute relative to rootDir
	if s.CacheDB != "" && !filepath.IsAbs(s.CacheDB) {
		s.CacheDB = filepath.Join(rootDir, s.CacheDB)
	}
	if s.SecretsFile != "" && !filepath.IsAbs(s.SecretsFile) {
		s.SecretsFile = filepath.Join(rootDir, s.SecretsFile)
	}

	return &s, nil
}
