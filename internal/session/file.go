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

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/database"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// DefaultFilePath returns the session file location under the user's config
// directory, e.g. $XDG_CONFIG_HOME/lms/session.json.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "lms", "session.json"), nil
}

// FileStore keeps the session as one JSON document on disk. Writes go through
// a temp file and a rename so readers never see a partial document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(ctx context.Context) (s domain.Session, err error) {
	_, end := database.TraceOp(ctx, "file", "session.get", f.path)
	defer func() { end(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileStore) Set(ctx context.Context, s domain.Session) (err error) {
	_, end := database.TraceOp(ctx, "file", "session.set", f.path)
	defer func() { end(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(s)
}

func (f *FileStore) Clear(ctx context.Context) (err error) {
	_, end := database.TraceOp(ctx, "file", "session.clear", f.path)
	defer func() { end(err) }()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) SetAccessToken(ctx context.Context, token string) (err error) {
	_, end := database.TraceOp(ctx, "file", "session.set_access_token", f.path)
	defer func() { end(err) }()

	return f.update(func(s *domain.Session) { s.AccessToken = token })
}

func (f *FileStore) SetUser(ctx context.Context, user *domain.User) (err error) {
	_, end := database.TraceOp(ctx, "file", "session.set_user", f.path)
	defer func() { end(err) }()

	u := copyUser(user)
	return f.update(func(s *domain.Session) { s.User = u })
}

func (f *FileStore) update(fn func(*domain.Session)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.read()
	if err != nil {
		return err
	}
	if s.IsZero() {
		return ErrNoSession
	}
	fn(&s)
	return f.write(s)
}

func (f *FileStore) read() (domain.Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Session{}, nil
		}
		return domain.Session{}, fmt.Errorf("read session file: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Session{}, fmt.Errorf("decode session file: %w", err)
	}
	return s, nil
}

func (f *FileStore) write(s domain.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
