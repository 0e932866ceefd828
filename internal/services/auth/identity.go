package auth

import (
	"context"
	"sync"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

type EventType string

const (
	EventSignedIn  EventType = "SIGNED_IN"
	EventSignedOut EventType = "SIGNED_OUT"
)

// Event is delivered to subscribers on every sign-in and sign-out. Session
// is nil for sign-out.
type Event struct {
	Type    EventType
	Token   string
	Session *models.AuthSession
}

// IdentityService is the consumed identity and subscription provider.
type IdentityService interface {
	Enabled() bool
	Session(ctx context.Context, token string) (*models.AuthSession, error)
	SignUp(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignOut(ctx context.Context, token string) error
	Subscribe(fn func(Event)) (unsubscribe func())
}

var ErrAuthDisabled = apperrors.New(apperrors.KindValidation, "AUTH_DISABLED",
	"Sign-in is not available: identity service is not configured", nil)

// Disabled is the identity service used in no-auth mode.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Session(context.Context, string) (*models.AuthSession, error) {
	return nil, nil
}

func (Disabled) SignUp(context.Context, string, string) (*models.AuthSession, error) {
	return nil, ErrAuthDisabled
}

func (Disabled) SignIn(context.Context, string, string) (*models.AuthSession, error) {
	return nil, ErrAuthDisabled
}

func (Disabled) SignOut(context.Context, string) error { return nil }

func (Disabled) Subscribe(func(Event)) func() { return func() {} }

// listeners fans events out to subscribers.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

func (l *listeners) add(fn func(Event)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(Event))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(ev Event) {
	l.mu.Lock()
	fns := make([]func(Event), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
