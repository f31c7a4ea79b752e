package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/erazemk/vitrina/internal/model"
)

const userKey = "user"

// Manager binds admin identities to sessions for a request.
type Manager struct {
	store Store
	name  string
	ttl   time.Duration
	log   zerolog.Logger
}

func NewManager(store Store, cookieName string, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{store: store, name: cookieName, ttl: ttl, log: log}
}

// Store returns the underlying session store.
func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		// Tampered, expired, or signed with an old secret.
		m.log.Debug().Err(err).Msg("discarding session cookie")
	}
	return sess
}

// Current returns the admin bound to the request's session, or nil when
// there is no live session.
func (m *Manager) Current(r *http.Request) *model.SessionUser {
	sess := m.session(r)
	if sess == nil || sess.IsNew {
		return nil
	}
	user, ok := sess.Values[userKey].(model.SessionUser)
	if !ok {
		return nil
	}
	return &user
}

// Begin binds user to a fresh session. Any previous session is destroyed
// and a new id is issued.
func (m *Manager) Begin(w http.ResponseWriter, r *http.Request, user *model.SessionUser) error {
	sess := m.session(r)
	if sess == nil {
		sess = sessions.NewSession(m.store, m.name)
	}
	if !sess.IsNew {
		if err := m.store.Destroy(sess); err != nil {
			return fmt.Errorf("destroying previous session: %w", err)
		}
	}

	sess.ID = ""
	clear(sess.Values)
	sess.Values[userKey] = *user
	sess.Options = m.options(int(m.ttl.Seconds()))

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	sess.IsNew = false
	return nil
}

// End destroys the request's session and expires its cookie. Ending a
// request without a session is not an error.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	if sess != nil && !sess.IsNew {
		if err := m.store.Destroy(sess); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}
		clear(sess.Values)
		sess.IsNew = true
	}
	http.SetCookie(w, sessions.NewCookie(m.name, "", m.options(-1)))
	return nil
}

// Touch re-saves a live session so its expiry moves forward.
func (m *Manager) Touch(w http.ResponseWriter, r *http.Request) error {
	if m.Current(r) == nil {
		return nil
	}
	sess := m.session(r)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	return nil
}

func (m *Manager) options(maxAge int) *sessions.Options {
	var opts sessions.Options
	switch s := m.store.(type) {
	case *FileStore:
		opts = *s.Options
	case *MemoryStore:
		opts = *s.Options
	default:
		opts = sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
	}
	opts.MaxAge = maxAge
	return &opts
}
