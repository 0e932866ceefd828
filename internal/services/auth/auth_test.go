package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap/zaptest"
)

const testUserID = "6f1c5a2e-3b7d-4c8e-9a10-1b2c3d4e5f60"

type fakeIdentity struct {
	mu        sync.Mutex
	sessions  map[string]*models.AuthSession
	lookups   int
	failWith  error
	listeners listeners
}

func (f *fakeIdentity) Enabled() bool { return true }

func (f *fakeIdentity) Session(_ context.Context, token string) (*models.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.sessions[token], nil
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	return f.SignIn(ctx, email, password)
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string) (*models.AuthSession, error) {
	s := &models.AuthSession{
		User:         models.User{ID: "u1", Email: email},
		AccessToken:  "tok-" + email,
		Subscription: models.Subscription{UserID: "u1", Plan: models.PlanPremiumYearly, Status: models.SubscriptionActive},
	}
	f.listeners.emit(Event{Type: EventSignedIn, Token: s.AccessToken, Session: s})
	return s, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, token string) error {
	f.listeners.emit(Event{Type: EventSignedOut, Token: token})
	return nil
}

func (f *fakeIdentity) Subscribe(fn func(Event)) func() { return f.listeners.add(fn) }

func TestDerive(t *testing.T) {
	noAuth := Derive(false, nil)
	if noAuth.Enabled || !noAuth.ShowAds || !noAuth.Unlocked || noAuth.SignedIn {
		t.Fatalf("no-auth mode must show ads and unlock features: %+v", noAuth)
	}

	signedOut := Derive(true, nil)
	if signedOut.SignedIn || signedOut.Unlocked || !signedOut.ShowAds {
		t.Fatalf("unexpected signed-out status: %+v", signedOut)
	}

	tests := []struct {
		name    string
		sub     models.Subscription
		premium bool
	}{
		{"free", models.Subscription{Plan: models.PlanFree, Status: models.SubscriptionActive}, false},
		{"monthly active", models.Subscription{Plan: models.PlanPremiumMonthly, Status: models.SubscriptionActive}, true},
		{"yearly canceled", models.Subscription{Plan: models.PlanPremiumYearly, Status: models.SubscriptionCanceled}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Derive(true, &models.AuthSession{User: models.User{ID: "u"}, Subscription: tt.sub})
			if st.IsPremium != tt.premium || st.ShowAds == tt.premium || st.Unlocked != tt.premium {
				t.Fatalf("Derive() = %+v, want premium %v", st, tt.premium)
			}
			if !st.SignedIn || st.User == nil || st.Subscription == nil {
				t.Fatalf("signed-in status missing user data: %+v", st)
			}
		})
	}
}

func TestAppStateDisabled(t *testing.T) {
	state := NewAppState(nil, 0, zaptest.NewLogger(t))
	defer state.Close()

	st := state.Status(context.Background(), "anything")
	if st.Enabled || !st.Unlocked {
		t.Fatalf("expected no-auth status, got %+v", st)
	}
	if _, err := state.Identity().SignIn(context.Background(), "a@b.c", "secret1"); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
}

func TestAppStateTracksEvents(t *testing.T) {
	identity := &fakeIdentity{sessions: map[string]*models.AuthSession{}}
	state := NewAppState(identity, 0, zaptest.NewLogger(t))
	defer state.Close()
	ctx := context.Background()

	session, err := identity.SignIn(ctx, "me@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	st := state.Status(ctx, session.AccessToken)
	if !st.IsPremium || st.ShowAds {
		t.Fatalf("expected premium status from cached session, got %+v", st)
	}
	if identity.lookups != 0 {
		t.Fatalf("cached session should not hit the identity service, got %d lookups", identity.lookups)
	}

	_ = identity.SignOut(ctx, session.AccessToken)
	if st := state.Status(ctx, session.AccessToken); st.SignedIn {
		t.Fatalf("expected signed-out status after sign-out, got %+v", st)
	}
	if identity.lookups != 1 {
		t.Fatalf("expected one lookup after sign-out, got %d", identity.lookups)
	}
}

func TestAppStateRefreshesExpiredSessions(t *testing.T) {
	identity := &fakeIdentity{sessions: map[string]*models.AuthSession{
		"tok": {
			User:         models.User{ID: "u1", Email: "me@example.com"},
			Subscription: models.Subscription{UserID: "u1", Plan: models.PlanFree, Status: models.SubscriptionActive},
		},
	}}
	state := NewAppState(identity, time.Minute, zaptest.NewLogger(t))
	defer state.Close()
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state.now = func() time.Time { return now }

	if st := state.Status(ctx, "tok"); !st.SignedIn || st.IsPremium {
		t.Fatalf("expected free signed-in status, got %+v", st)
	}

	identity.mu.Lock()
	identity.sessions["tok"] = &models.AuthSession{
		User:         models.User{ID: "u1", Email: "me@example.com"},
		Subscription: models.Subscription{UserID: "u1", Plan: models.PlanPremiumMonthly, Status: models.SubscriptionActive},
	}
	identity.mu.Unlock()

	now = now.Add(30 * time.Second)
	if st := state.Status(ctx, "tok"); st.IsPremium || identity.lookups != 1 {
		t.Fatalf("expected cached free status within the TTL, got %+v after %d lookups", st, identity.lookups)
	}

	now = now.Add(time.Minute)
	if st := state.Status(ctx, "tok"); !st.IsPremium || st.ShowAds {
		t.Fatalf("expected premium status after the TTL, got %+v", st)
	}
	if identity.lookups != 2 {
		t.Fatalf("expected a second lookup, got %d", identity.lookups)
	}

	identity.mu.Lock()
	delete(identity.sessions, "tok")
	identity.mu.Unlock()

	now = now.Add(2 * time.Minute)
	if st := state.Status(ctx, "tok"); st.SignedIn {
		t.Fatalf("expected revoked token to read as signed out, got %+v", st)
	}
	if identity.lookups != 3 {
		t.Fatalf("expected a third lookup, got %d", identity.lookups)
	}
	if len(state.sessions) != 0 {
		t.Errorf("expected revoked session to be evicted, got %d entries", len(state.sessions))
	}
}

func TestAppStatePrunesExpiredEntries(t *testing.T) {
	identity := &fakeIdentity{sessions: map[string]*models.AuthSession{
		"a": {User: models.User{ID: "a"}},
		"b": {User: models.User{ID: "b"}},
	}}
	state := NewAppState(identity, time.Minute, zaptest.NewLogger(t))
	defer state.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state.now = func() time.Time { return now }

	state.Status(context.Background(), "a")
	now = now.Add(2 * time.Minute)
	state.Status(context.Background(), "b")

	state.mu.RLock()
	defer state.mu.RUnlock()
	if _, ok := state.sessions["a"]; ok || len(state.sessions) != 1 {
		t.Errorf("expected only the fresh session to remain, got %d entries", len(state.sessions))
	}
}

func TestAppStateDegradesOnLookupFailure(t *testing.T) {
	identity := &fakeIdentity{failWith: errors.New("unreachable")}
	state := NewAppState(identity, 0, zaptest.NewLogger(t))
	defer state.Close()

	st := state.Status(context.Background(), "tok")
	if !st.Enabled || st.SignedIn {
		t.Fatalf("expected signed-out status, got %+v", st)
	}
}

func TestListenersUnsubscribe(t *testing.T) {
	var l listeners
	calls := 0
	unsubscribe := l.add(func(Event) { calls++ })
	l.emit(Event{Type: EventSignedIn})
	unsubscribe()
	unsubscribe()
	l.emit(Event{Type: EventSignedOut})
	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
}

// newSupabaseServer emulates the GoTrue and PostgREST endpoints used by Supabase.
func newSupabaseServer(t *testing.T, subscriptionRows string) *httptest.Server {
	t.Helper()
	user := map[string]string{"id": testUserID, "email": "me@example.com"}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/auth/v1/token":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "access-1",
				"token_type":    "bearer",
				"expires_in":    3600,
				"refresh_token": "refresh-1",
				"user":          user,
			})
		case r.URL.Path == "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer access-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"msg":"invalid token"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(user)
		case r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(r.URL.Path, "/rest/v1/subscriptions"):
			if subscriptionRows == "" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message":"relation does not exist"}`))
				return
			}
			_, _ = w.Write([]byte(subscriptionRows))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSupabaseSignInAndSession(t *testing.T) {
	rows := `[{"user_id":"` + testUserID + `","plan":"premium_monthly","status":"active","current_period_end":"2026-12-01T00:00:00Z"}]`
	srv := newSupabaseServer(t, rows)
	defer srv.Close()

	sb := NewSupabase(srv.URL, "anon", zaptest.NewLogger(t))
	var events []EventType
	defer sb.Subscribe(func(ev Event) { events = append(events, ev.Type) })()
	ctx := context.Background()

	session, err := sb.SignIn(ctx, "me@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if session.User.ID != testUserID || session.AccessToken != "access-1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.Subscription.IsPremium() || session.Subscription.CurrentPeriodEnd == "" {
		t.Fatalf("expected premium subscription, got %+v", session.Subscription)
	}

	again, err := sb.Session(ctx, "access-1")
	if err != nil || again == nil || again.User.Email != "me@example.com" {
		t.Fatalf("Session() = %+v, %v", again, err)
	}
	if none, _ := sb.Session(ctx, "bogus"); none != nil {
		t.Fatalf("invalid token should yield no session, got %+v", none)
	}

	if err := sb.SignOut(ctx, "access-1"); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if len(events) != 2 || events[0] != EventSignedIn || events[1] != EventSignedOut {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestSupabaseSubscriptionFallback(t *testing.T) {
	srv := newSupabaseServer(t, "")
	defer srv.Close()

	sb := NewSupabase(srv.URL, "anon", zaptest.NewLogger(t))
	session, err := sb.SignIn(context.Background(), "me@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if session.Subscription.Plan != models.PlanFree || session.Subscription.Status != models.SubscriptionActive {
		t.Fatalf("expected free/active fallback, got %+v", session.Subscription)
	}
}

func TestSupabaseSignInFailures(t *testing.T) {
	srv := newSupabaseServer(t, "[]")
	defer srv.Close()
	sb := NewSupabase(srv.URL, "anon", zaptest.NewLogger(t))

	if _, err := sb.SignIn(context.Background(), "me@example.com", "wrong-pass"); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for bad credentials, got %v", err)
	}
	if _, err := sb.SignIn(context.Background(), "not-an-email", "secret1"); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}
}

func TestToSubscription(t *testing.T) {
	sub := toSubscription(subscriptionRow{Plan: "enterprise", Status: "paused"}, "u")
	if sub.Plan != models.PlanFree || sub.Status != models.SubscriptionExpired {
		t.Fatalf("unknown values must not grant premium: %+v", sub)
	}
}

func TestCheckoutClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/functions/v1/create-checkout" || r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if req.Plan == models.PlanPremiumYearly {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Price not configured"}`))
			return
		}
		_, _ = w.Write([]byte(`{"url":"https://pay.example/cs_123"}`))
	}))
	defer srv.Close()

	c := NewCheckoutClient(srv.URL, "anon", zaptest.NewLogger(t))
	session := &models.AuthSession{User: models.User{ID: "u1", Email: "me@example.com"}, AccessToken: "user-token"}
	ctx := context.Background()

	url, err := c.Create(ctx, session, models.PlanPremiumMonthly)
	if err != nil || url != "https://pay.example/cs_123" {
		t.Fatalf("Create = %q, %v", url, err)
	}

	_, err = c.Create(ctx, session, models.PlanPremiumYearly)
	if !apperrors.Is(err, apperrors.KindNetwork) || apperrors.Message(err) != checkoutFailed {
		t.Fatalf("expected generic network error, got %v", err)
	}
	if _, err := c.Create(ctx, session, models.PlanFree); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for free plan, got %v", err)
	}
	if _, err := c.Create(ctx, nil, models.PlanPremiumMonthly); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected sign-in required, got %v", err)
	}
	if _, err := NewCheckoutClient("", "", nil).Create(ctx, session, models.PlanPremiumMonthly); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
}
