// Package session keeps admin sessions server-side. The browser only holds
// a signed cookie carrying the session id.
package session

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/erazemk/vitrina/internal/model"
)

func init() {
	gob.Register(model.SessionUser{})
}

// Backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
)

const filePrefix = "session_"

// Options configures a session store.
type Options struct {
	Backend string
	Dir     string
	Secret  string
	TTL     time.Duration
	Secure  bool
}

// Store is a gorilla sessions.Store that can also drop a single record and
// sweep expired ones.
type Store interface {
	sessions.Store
	// Destroy removes the server-side record of s. Removing a record that
	// does not exist is not an error.
	Destroy(s *sessions.Session) error
	// Sweep removes expired records and returns how many were removed.
	Sweep() (int, error)
}

// NewStore builds the store selected by opts.Backend.
func NewStore(opts Options) (Store, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}

	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts)
	case BackendMemory:
		return NewMemoryStore(opts), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}
}

func cookieOptions(opts Options) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// FileStore keeps one session_<id> file per session.
type FileStore struct {
	*sessions.FilesystemStore
	dir string
	ttl time.Duration
}

// NewFileStore creates the sessions directory when missing.
func NewFileStore(opts Options) (*FileStore, error) {
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}

	store := sessions.NewFilesystemStore(opts.Dir, []byte(opts.Secret))
	// Sets the cookie MaxAge and the securecookie timestamp limit.
	store.MaxAge(int(opts.TTL.Seconds()))
	store.Options = cookieOptions(opts)

	return &FileStore{FilesystemStore: store, dir: opts.Dir, ttl: opts.TTL}, nil
}

func (s *FileStore) Destroy(sess *sessions.Session) error {
	if sess.ID == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filePrefix+filepath.Base(sess.ID)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// Sweep removes session files not written within the TTL. Every save
// rewrites the file, so the modification time tracks the last activity.
func (s *FileStore) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading sessions directory: %w", err)
	}

	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing expired session: %w", err)
		}
		removed++
	}
	return removed, nil
}

// setCodecMaxAge limits how old a cookie timestamp may be.
func setCodecMaxAge(codecs []securecookie.Codec, age int) {
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}
