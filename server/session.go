package server

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/papercomputeco/docchat/pkg/conversation"
)

const sessionCookie = "docchat_session"

// session is one browser's conversation.
// turn is held for the whole duration of a turn (or a reset), so a session
// never has two turns in flight; mu guards log for readers.
type session struct {
	turn sync.Mutex

	mu  sync.RWMutex
	log conversation.Log
}

func (s *session) snapshot() conversation.Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log
}

func (s *session) setLog(log conversation.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = log
}

// sessionStore expires idle sessions.
type sessionStore struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{cache: cache.New(ttl, ttl/2)}
}

// get returns the session for id, creating it if needed, and refreshes its expiry.
func (st *sessionStore) get(id string) *session {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.cache.Get(id)
	if !ok {
		sess = &session{log: conversation.Reset()}
	}
	st.cache.SetDefault(id, sess)
	return sess.(*session)
}

func (st *sessionStore) count() int {
	return st.cache.ItemCount()
}

// session resolves the caller's session, issuing a cookie on first contact.
func (s *Server) session(c *fiber.Ctx) *session {
	id := c.Cookies(sessionCookie)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return s.sessions.get(id)
}
