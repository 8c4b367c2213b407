package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/publiclogic/archieve/internal/models"
)

func TestLoad_MissingFileIsUnknown(t *testing.T) {
	snap := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if snap.Actor != models.UnknownActor || snap.SourceURL != "" {
		t.Errorf("snap = %+v", snap)
	}
}

func TestLoad_CorruptFileIsUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	_ = os.WriteFile(path, []byte("actor = [unterminated"), 0o600)
	if snap := Load(path); snap.Actor != models.UnknownActor {
		t.Errorf("actor = %q", snap.Actor)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	want := Snapshot{Actor: "dana@publiclogic.org", SourceURL: "https://app.test/dashboard"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := Load(path); got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestFile_RereadsOnEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	f := File{Path: path}
	if f.Actor() != models.UnknownActor {
		t.Fatalf("actor before file = %q", f.Actor())
	}
	_ = os.WriteFile(path, []byte("actor = \"sam\"\nsource_url = \"https://app.test/x\"\n"), 0o600)
	if f.Actor() != "sam" || f.SourceURL() != "https://app.test/x" {
		t.Errorf("actor = %q url = %q", f.Actor(), f.SourceURL())
	}
	_ = os.WriteFile(path, []byte("actor = \"  \"\n"), 0o600)
	if f.Actor() != models.UnknownActor {
		t.Errorf("blank actor = %q, want unknown", f.Actor())
	}
}
