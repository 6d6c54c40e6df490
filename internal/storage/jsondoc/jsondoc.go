package jsondoc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Store owns a data directory of JSON documents. The directory is guarded by
// a file lock so only one process mutates it at a time; within the process,
// callers are expected to serialize writes per document.
type Store struct {
	dir  string
	lock *flock.Flock
}

func New(dir string) (*Store, error) {
	const op = "jsondoc.New"

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: data directory %s is locked by another process", op, dir)
	}

	return &Store{dir: dir, lock: lock}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Close releases the directory lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Document binds a named JSON file within the store.
func (s *Store) Document(name string) *Document {
	return &Document{path: filepath.Join(s.dir, name)}
}

// Document is one whole-file JSON document. There are no partial writes:
// every Write serializes the full value and atomically replaces the file.
type Document struct {
	path string
}

func (d *Document) Path() string {
	return d.path
}

// Exists reports whether the document file is present on disk.
func (d *Document) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// Read unmarshals the document into v. A missing file is returned as
// os.ErrNotExist so callers can treat first run as empty state.
func (d *Document) Read(v any) error {
	const op = "jsondoc.Document.Read"

	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Write serializes v and replaces the document in one rename, so readers
// never observe a half-written file.
func (d *Document) Write(v any) error {
	const op = "jsondoc.Document.Write"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), d.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
