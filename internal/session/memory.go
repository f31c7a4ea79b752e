package session

import (
	"encoding/base32"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

type memoryEntry struct {
	values  map[any]any
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart.
type MemoryStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore(opts Options) *MemoryStore {
	codecs := securecookie.CodecsFromPairs([]byte(opts.Secret))
	setCodecMaxAge(codecs, int(opts.TTL.Seconds()))
	return &MemoryStore{
		Codecs:  codecs,
		Options: cookieOptions(opts),
		ttl:     opts.TTL,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the session cached for this request, loading it on first use.
func (m *MemoryStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(m, name)
}

// New loads the session named by the request cookie or returns a new one.
func (m *MemoryStore) New(r *http.Request, name string) (*sessions.Session, error) {
	s := sessions.NewSession(m, name)
	opts := *m.Options
	s.Options = &opts
	s.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return s, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &s.ID, m.Codecs...); err != nil {
		return s, err
	}

	m.mu.RLock()
	e, ok := m.entries[s.ID]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expires) {
		return s, nil
	}

	maps.Copy(s.Values, e.values)
	s.IsNew = false
	return s, nil
}

// Save stores the session and writes its cookie. A non-positive MaxAge
// deletes it instead.
func (m *MemoryStore) Save(r *http.Request, w http.ResponseWriter, s *sessions.Session) error {
	if s.Options.MaxAge <= 0 {
		m.Destroy(s)
		http.SetCookie(w, sessions.NewCookie(s.Name(), "", s.Options))
		return nil
	}

	if s.ID == "" {
		s.ID = strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
	}

	encoded, err := securecookie.EncodeMulti(s.Name(), s.ID, m.Codecs...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[s.ID] = memoryEntry{values: maps.Clone(s.Values), expires: m.now().Add(m.ttl)}
	m.mu.Unlock()

	http.SetCookie(w, sessions.NewCookie(s.Name(), encoded, s.Options))
	return nil
}

func (m *MemoryStore) Destroy(s *sessions.Session) error {
	m.mu.Lock()
	delete(m.entries, s.ID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Sweep() (int, error) {
	now := m.now()
	removed := 0

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
