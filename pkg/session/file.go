package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/calavorn/realmmap/pkg/explorer"
)

// FileStore keeps one JSON file per session under a directory. Writes go
// through a temporary file and a rename, so a crash never leaves a torn
// session behind.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates dir if needed and stores sessions in it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session directory not set")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// file maps an id to its path. Base strips any directory part a hostile id
// might carry.
func (s *FileStore) file(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".json")
}

// read decodes the session at path. A missing file is (nil, nil).
func read(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", filepath.Base(path), err)
	}
	return &sess, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, err := read(s.file(id))
	s.mu.RUnlock()
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.IsExpired() {
		return nil, s.Delete(ctx, id)
	}
	return sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp.Name(), s.file(sess.ID))
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.file(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Cleanup removes expired and unreadable session files.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sess, err := read(p)
		if err != nil || (sess != nil && sess.IsExpired()) {
			os.Remove(p)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Dir returns the directory holding the session files.
func (s *FileStore) Dir() string { return s.dir }

var _ Store = (*FileStore)(nil)

// resumeID names the single session the terminal explorer keeps.
const resumeID = "explore"

// ResumeStore remembers where the terminal explorer was left: the tier,
// the drill state and the hovered region.
type ResumeStore struct {
	files *FileStore
	ttl   time.Duration
}

// NewResumeStore keeps the resume file in dir for ttl after each save.
func NewResumeStore(dir string, ttl time.Duration) (*ResumeStore, error) {
	files, err := NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	return &ResumeStore{files: files, ttl: ttl}, nil
}

// Load returns the saved state. ok is false when nothing was saved or the
// save has expired.
func (r *ResumeStore) Load(ctx context.Context) (saved explorer.Saved, ok bool, err error) {
	sess, err := r.files.Get(ctx, resumeID)
	if err != nil || sess == nil {
		return explorer.Saved{}, false, err
	}
	return sess.Saved, true, nil
}

// Save replaces the saved state.
func (r *ResumeStore) Save(ctx context.Context, saved explorer.Saved) error {
	sess := New(r.ttl)
	sess.ID = resumeID
	sess.Saved = saved
	return r.files.Set(ctx, sess)
}

// Forget drops the saved state.
func (r *ResumeStore) Forget(ctx context.Context) error {
	return r.files.Delete(ctx, resumeID)
}

// Path returns the resume file.
func (r *ResumeStore) Path() string {
	return r.files.file(resumeID)
}
