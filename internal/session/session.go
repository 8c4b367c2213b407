// Package session reads the current user's identity and page address from a
// small TOML file such as ~/.config/archieve/session.toml.
package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/publiclogic/archieve/internal/models"
)

const defaultSessionPath = "~/.config/archieve/session.toml"

// Snapshot is the session file content.
type Snapshot struct {
	Actor     string `toml:"actor"`
	SourceURL string `toml:"source_url"`
}

// DefaultPath returns the default session file path.
func DefaultPath() string {
	return defaultSessionPath
}

// Load reads the session at path. Missing or unreadable files yield the
// unknown actor.
func Load(path string) Snapshot {
	snap := Snapshot{Actor: models.UnknownActor}

	resolved, err := resolvePath(path)
	if err != nil {
		return snap
	}
	file, err := os.Open(resolved)
	if err != nil {
		return snap
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return snap
	}
	if err := toml.Unmarshal(bytes, &snap); err != nil {
		return Snapshot{Actor: models.UnknownActor}
	}

	snap.Actor = strings.TrimSpace(snap.Actor)
	if snap.Actor == "" {
		snap.Actor = models.UnknownActor
	}
	snap.SourceURL = strings.TrimSpace(snap.SourceURL)
	return snap
}

// Save writes s to path, creating directories as needed.
func Save(path string, s Snapshot) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	bytes, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// File is a session backed by a TOML file. Each accessor rereads the file so
// a session change is picked up by the next capture.
type File struct {
	Path string
}

func (f File) Actor() string     { return Load(f.Path).Actor }
func (f File) SourceURL() string { return Load(f.Path).SourceURL }

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultSessionPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
