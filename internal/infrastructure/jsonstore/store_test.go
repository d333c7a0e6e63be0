package jsonstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string         `json:"name"`
	Count int            `json:"count"`
	Tags  map[string]any `json:"tags,omitempty"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}

	in := record{Name: "kiosk-7", Count: 3, Tags: map[string]any{"site": "lobby"}}
	if err := store.Save("test.json", in); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	var out record
	if err := store.Load("test.json", &out); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
	if out.Tags["site"] != "lobby" {
		t.Errorf("tags not preserved: %+v", out.Tags)
	}
}

func TestLoadMissingDocument(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var out record
	err = store.Load("never-saved.json", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() = %v, want ErrNotFound", err)
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{truncated"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out record
	err = store.Load("bad.json", &out)
	if err == nil {
		t.Fatal("Load() accepted corrupt JSON")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("corrupt document reported as not found")
	}
}

func TestSaveReplacesPreviousContent(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save("doc.json", record{Name: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("doc.json", record{Name: "second"}); err != nil {
		t.Fatal(err)
	}

	var out record
	if err := store.Load("doc.json", &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "second" {
		t.Errorf("Load() after overwrite = %q, want %q", out.Name, "second")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("state dir has %d entries, want 1", len(entries))
	}
}

func TestOpenRequiresDirectory(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") succeeded, want error")
	}
}
