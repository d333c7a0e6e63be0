package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Load when the named document does not exist.
var ErrNotFound = errors.New("jsonstore: document not found")

// dirPerm and filePerm match the state directory's expected ownership model:
// readable by the service user only.
const (
	dirPerm  = 0o755
	filePerm = 0o600
)

// Store reads and writes JSON documents under a single state directory.
//
// Thread Safety:
//   - Save is atomic per document (temp file + rename), but callers are
//     expected to serialise saves of the same document; every component that
//     persists through a Store already holds its own table lock while saving.
type Store struct {
	dir string
}

// Open creates the state directory if needed and returns a Store rooted at it.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("jsonstore: state directory is required")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the named document into v.
// Returns ErrNotFound when the document has never been saved.
func (s *Store) Load(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// Save writes v as the named document, replacing any previous content.
// The write goes to a temp file in the same directory and is renamed into
// place, so readers never observe a partially written document.
func (s *Store) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions on %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}
