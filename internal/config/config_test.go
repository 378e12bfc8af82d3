package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tasks.toml", `
[[tasks]]
name = "db:start"
command = "pg_ctl start"
status = "pg_isready"

[[tasks]]
name = "app:build"
command = "make build"
after = ["db:start"]

[tasks.inputs]
profile = "debug"
jobs = 4

[[tasks]]
name = "app:docs"
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(f.Tasks) != 3 {
		t.Fatalf("len(Tasks) = %d, want 3", len(f.Tasks))
	}

	db := f.Tasks[0]
	if db.Name != "db:start" || db.Command != "pg_ctl start" || db.Status != "pg_isready" {
		t.Errorf("db:start parsed as %+v", db)
	}

	build := f.Tasks[1]
	if len(build.After) != 1 || build.After[0] != "db:start" {
		t.Errorf("app:build after = %v, want [db:start]", build.After)
	}
	if build.Inputs["profile"] != "debug" {
		t.Errorf("inputs[profile] = %v, want debug", build.Inputs["profile"])
	}
	if build.Inputs["jobs"] != int64(4) {
		t.Errorf("inputs[jobs] = %v (%T), want 4", build.Inputs["jobs"], build.Inputs["jobs"])
	}

	if f.Tasks[2].Command != "" {
		t.Errorf("app:docs command = %q, want empty", f.Tasks[2].Command)
	}

	if f.Dir() != filepath.Dir(path) {
		t.Errorf("Dir() = %q, want %q", f.Dir(), filepath.Dir(path))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_BadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tasks.toml", "[[tasks]\nname = ")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected parse error, got nil")
	}
}

func TestLoadSettings_Missing(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if s != nil {
		t.Errorf("LoadSettings() = %+v, want nil for absent file", s)
	}
}

func TestLoadSettings_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "devenv.toml", `
cache_db = ".devenv/tasks.db"
secrets_file = "secrets.toml.age"
`)

	s, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadSettings() = nil, want settings")
	}
	if want := filepath.Join(dir, ".devenv", "tasks.db"); s.CacheDB != want {
		t.Errorf("CacheDB = %q, want %q", s.CacheDB, want)
	}
	if want := filepath.Join(dir, "secrets.toml.age"); s.SecretsFile != want {
		t.Errorf("SecretsFile = %q, want %q", s.SecretsFile, want)
	}
}

func TestLoadSettings_AbsolutePathsKept(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "devenv.toml", `cache_db = "/var/cache/devenv/tasks.db"`)

	s, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if s.CacheDB != "/var/cache/devenv/tasks.db" {
		t.Errorf("CacheDB = %q, want absolute path untouched", s.CacheDB)
	}
}

func TestVerbosity_String(t *testing.T) {
	tests := []struct {
		v    Verbosity
		want string
	}{
		{Quiet, "quiet"},
		{Normal, "normal"},
		{Verbose, "verbose"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("Verbosity(%d).String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}
