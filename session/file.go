package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore persists one session snapshot as a JSON file with owner-only
// permissions. Writes go through a temp file and rename so a crashed
// write never leaves a truncated snapshot.
type FileStore struct {
	path        string
	outerExpiry time.Duration
}

// NewFileStore creates a FileStore writing to path. outerExpiry bounds
// snapshot age on load; zero selects [DefaultOuterExpiry].
func NewFileStore(path string, outerExpiry time.Duration) *FileStore {
	return &FileStore{path: path, outerExpiry: outerExpiry}
}

func (s *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess := decodeSnapshot(data, time.Now(), s.outerExpiry)
	if sess == nil {
		// Stale or corrupt snapshots are removed eagerly so the next
		// load does not re-read them.
		_ = os.Remove(s.path)
		return nil, nil
	}
	return sess, nil
}

func (s *FileStore) Save(sess *Session) error {
	data, err := encodeSnapshot(sess, time.Now())
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
