package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
)

func TestLoad_EmptyPath(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if s != nil {
		t.Error("Load(\"\") = store, want nil (secrets are optional)")
	}
}

func TestLoad_PlainTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	content := "DB_PASSWORD = \"hunter2\"\nAPI_TOKEN = \"abc\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	val, err := s.Resolve("DB_PASSWORD")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if val != "hunter2" {
		t.Errorf("Resolve(DB_PASSWORD) = %q, want hunter2", val)
	}

	if _, err := s.Resolve("MISSING"); err == nil {
		t.Error("Resolve(MISSING) expected error, got nil")
	}
}

func TestStore_EnvironSorted(t *testing.T) {
	s := &Store{data: map[string]string{
		"ZEBRA": "z",
		"ALPHA": "a",
	}}

	env := s.Environ()
	want := []string{"ALPHA=a", "ZEBRA=z"}
	if len(env) != 2 || env[0] != want[0] || env[1] != want[1] {
		t.Errorf("Environ() = %v, want %v", env, want)
	}
}

func TestLoad_AgeEncrypted(t *testing.T) {
	dir := t.TempDir()

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatal(err)
	}
	identityPath := filepath.Join(dir, "identity.txt")
	if err := os.WriteFile(identityPath, []byte(identity.String()+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(IdentityEnv, identityPath)

	var ciphertext bytes.Buffer
	w, err := age.Encrypt(&ciphertext, identity.Recipient())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("TOKEN = \"sealed\"\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "secrets.toml.age")
	if err := os.WriteFile(path, ciphertext.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	val, err := s.Resolve("TOKEN")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if val != "sealed" {
		t.Errorf("Resolve(TOKEN) = %q, want sealed", val)
	}
}

func TestLoad_AgeWithoutIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.toml.age")
	if err := os.WriteFile(path, []byte("age junk"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(IdentityEnv, "")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error without identity, got nil")
	}
	if !strings.Contains(err.Error(), IdentityEnv) {
		t.Errorf("error = %v, want mention of %s", err, IdentityEnv)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}
