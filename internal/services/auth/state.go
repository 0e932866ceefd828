package auth

import (
	"context"
	"sync"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long a resolved session is trusted before it is
// looked up again.
const DefaultSessionTTL = 2 * time.Minute

// AppState is the application-wide view of identity. It is created once at
// startup and caches sessions for at most ttl, so subscription changes and
// revocations at the provider show up without a restart.
type AppState struct {
	identity    IdentityService
	logger      *zap.Logger
	unsubscribe func()
	ttl         time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]cachedSession
}

type cachedSession struct {
	session *models.AuthSession
	fetched time.Time
}

func NewAppState(identity IdentityService, ttl time.Duration, logger *zap.Logger) *AppState {
	if identity == nil {
		identity = Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &AppState{
		identity: identity,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]cachedSession),
	}
	s.unsubscribe = identity.Subscribe(s.onEvent)
	return s
}

func (s *AppState) Identity() IdentityService { return s.identity }

func (s *AppState) onEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case EventSignedIn:
		if ev.Session != nil && ev.Token != "" {
			s.storeLocked(ev.Token, ev.Session)
		}
	case EventSignedOut:
		delete(s.sessions, ev.Token)
	}
	s.logger.Debug("Auth state changed", zap.String("event", string(ev.Type)))
}

// Status resolves token into the status snapshot. Identity failures degrade
// to a signed-out status instead of failing the request.
func (s *AppState) Status(ctx context.Context, token string) models.AuthStatus {
	if !s.identity.Enabled() {
		return Derive(false, nil)
	}
	if token == "" {
		return Derive(true, nil)
	}

	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.fetched) < s.ttl {
		return Derive(true, entry.session)
	}

	session, err := s.identity.Session(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to resolve session", zap.Error(err))
		s.Forget(token)
		return Derive(true, nil)
	}

	s.mu.Lock()
	if session != nil {
		s.storeLocked(token, session)
	} else {
		delete(s.sessions, token)
	}
	s.mu.Unlock()
	return Derive(true, session)
}

// storeLocked caches session and drops expired entries. s.mu must be held.
func (s *AppState) storeLocked(token string, session *models.AuthSession) {
	now := s.now()
	for t, e := range s.sessions {
		if now.Sub(e.fetched) >= s.ttl {
			delete(s.sessions, t)
		}
	}
	s.sessions[token] = cachedSession{session: session, fetched: now}
}

// Forget drops a cached session without contacting the identity service.
func (s *AppState) Forget(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *AppState) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Derive computes the status from a session snapshot. It has no side effects.
func Derive(enabled bool, session *models.AuthSession) models.AuthStatus {
	status := models.AuthStatus{Enabled: enabled}
	if !enabled {
		status.ShowAds = true
		status.Unlocked = true
		return status
	}
	if session == nil {
		status.ShowAds = true
		return status
	}

	user := session.User
	sub := session.Subscription
	status.SignedIn = true
	status.User = &user
	status.Subscription = &sub
	status.IsPremium = sub.IsPremium()
	status.ShowAds = !status.IsPremium
	status.Unlocked = status.IsPremium
	return status
}
