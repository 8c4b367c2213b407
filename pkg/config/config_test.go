package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	s.valid = true
	return nil
}

func TestLoad_ExpandsEnvAndKeepsPresets(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "archieve")
	path := filepath.Join(t.TempDir(), "c.yaml")
	_ = os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\n"), 0o644)

	s := sample{Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "archieve" || s.Port != 8080 || !s.valid {
		t.Errorf("sample = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	_ = os.WriteFile(path, []byte("port: 0\n"), 0o644)
	err := Load(path, &sample{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "default.yaml")
	_ = os.WriteFile(fallback, []byte("name: fallback\nport: 1\n"), 0o644)

	s := sample{}
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), fallback, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q, want fallback", s.Name)
	}

	s = sample{Port: 9}
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), "", &s); err != nil {
		t.Fatalf("no files should keep presets: %v", err)
	}
	if !s.valid {
		t.Error("presets were not validated")
	}
}
