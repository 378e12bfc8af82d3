// Package secrets loads a flat TOML map of environment secrets for task
// commands. Files ending in .age are decrypted first, using X25519
// identities read from the file named by $DEVENV_AGE_IDENTITY.
package secrets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"filippo.io/age"
	"github.com/BurntSushi/toml"
)

// IdentityEnv names the environment variable pointing at the age identity
// file used to decrypt .age secrets files.
const IdentityEnv = "DEVENV_AGE_IDENTITY"

// Store holds secrets parsed from a TOML file.
type Store struct {
	data map[string]string
}

// Load parses a secrets file and returns a Store.
// If path is empty, returns nil (secrets are optional).
func Load(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %q: %w", path, err)
	}

	if strings.HasSuffix(path, ".age") {
		raw, err = decrypt(raw)
		if err != nil {
			return nil, fmt.Errorf("decrypting secrets file %q: %w", path, err)
		}
	}

	var data map[string]string
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing secrets file %q: %w", path, err)
	}

	return &Store{data: data}, nil
}

// decrypt unwraps an age ciphertext with the identities from $DEVENV_AGE_IDENTITY.
func decrypt(ciphertext []byte) ([]byte, error) {
	idPath := os.Getenv(IdentityEnv)
	if idPath == "" {
		return nil, fmt.Errorf("%s is not set", IdentityEnv)
	}

	f, err := os.Open(idPath)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Resolve looks up a single secret by key.
func (s *Store) Resolve(key string) (string, error) {
	if val, ok := s.data[key]; ok {
		return val, nil
	}
	return "", fmt.Errorf("secret %q not found", key)
}

// Environ returns the secrets as KEY=value pairs in sorted order, ready to
// append to a task environment.
func (s *Store) Environ() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+s.data[k])
	}
	return env
}
