package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/postgrest-go"
	"go.uber.org/zap"
)

const subscriptionsTable = "subscriptions"

// Supabase implements IdentityService with GoTrue for accounts and PostgREST
// for the subscriptions table.
type Supabase struct {
	projectURL string
	apiKey     string
	client     gotrue.Client
	logger     *zap.Logger
	listeners  listeners
}

func NewSupabase(projectURL, apiKey string, logger *zap.Logger) *Supabase {
	if logger == nil {
		logger = zap.NewNop()
	}
	projectURL = strings.TrimRight(projectURL, "/")
	client := gotrue.New(projectRef(projectURL), apiKey).WithCustomGoTrueURL(projectURL + "/auth/v1")
	return &Supabase{projectURL: projectURL, apiKey: apiKey, client: client, logger: logger}
}

func (s *Supabase) Enabled() bool { return true }

// Session returns the session for token, or nil when token is empty.
func (s *Supabase) Session(ctx context.Context, token string) (*models.AuthSession, error) {
	if token == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.client.WithToken(token).GetUser()
	if err != nil {
		s.logger.Debug("Session lookup failed", zap.Error(err))
		return nil, nil
	}
	user := toUser(resp.User)
	return &models.AuthSession{
		User:         user,
		AccessToken:  token,
		Subscription: s.subscription(ctx, token, user.ID),
	}, nil
}

func (s *Supabase) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	resp, err := s.client.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Warn("Sign-up failed", zap.String("email", email), zap.Error(err))
		return nil, apperrors.New(apperrors.KindValidation, "SIGNUP_FAILED", "Could not create the account", err)
	}

	// Without auto-confirm there is no session until the email is confirmed.
	if resp.AccessToken == "" {
		user := toUser(resp.User)
		return &models.AuthSession{User: user, Subscription: models.FreeSubscription(user.ID)}, nil
	}
	session := s.newSession(ctx, resp.Session)
	s.listeners.emit(Event{Type: EventSignedIn, Token: session.AccessToken, Session: session})
	return session, nil
}

func (s *Supabase) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	resp, err := s.client.SignInWithEmailPassword(email, password)
	if err != nil {
		s.logger.Warn("Sign-in failed", zap.String("email", email), zap.Error(err))
		return nil, apperrors.New(apperrors.KindValidation, "SIGNIN_FAILED", "Invalid email or password", err)
	}
	session := s.newSession(ctx, resp.Session)
	s.listeners.emit(Event{Type: EventSignedIn, Token: session.AccessToken, Session: session})
	return session, nil
}

func (s *Supabase) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.WithToken(token).Logout(); err != nil {
		s.logger.Warn("Sign-out failed", zap.Error(err))
		return apperrors.Network("Could not sign out", err)
	}
	s.listeners.emit(Event{Type: EventSignedOut, Token: token})
	return nil
}

func (s *Supabase) Subscribe(fn func(Event)) func() {
	return s.listeners.add(fn)
}

func (s *Supabase) newSession(ctx context.Context, sess types.Session) *models.AuthSession {
	user := toUser(sess.User)
	return &models.AuthSession{
		User:         user,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Subscription: s.subscription(ctx, sess.AccessToken, user.ID),
	}
}

type subscriptionRow struct {
	UserID           string  `json:"user_id"`
	Plan             string  `json:"plan"`
	Status           string  `json:"status"`
	CurrentPeriodEnd *string `json:"current_period_end"`
}

// subscription looks up the user's plan. Any failure falls back to a free,
// active subscription.
func (s *Supabase) subscription(ctx context.Context, token, userID string) models.Subscription {
	if userID == "" || ctx.Err() != nil {
		return models.FreeSubscription(userID)
	}
	client := postgrest.NewClient(s.projectURL+"/rest/v1", "public", map[string]string{
		"apikey":        s.apiKey,
		"Authorization": "Bearer " + token,
	})

	var rows []subscriptionRow
	_, err := client.From(subscriptionsTable).
		Select("user_id,plan,status,current_period_end", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil || len(rows) == 0 {
		if err != nil {
			s.logger.Warn("Subscription lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return models.FreeSubscription(userID)
	}
	return toSubscription(rows[0], userID)
}

func toSubscription(row subscriptionRow, userID string) models.Subscription {
	sub := models.Subscription{UserID: userID, Plan: models.PlanFree, Status: models.SubscriptionActive}
	switch p := models.Plan(row.Plan); p {
	case models.PlanFree, models.PlanPremiumMonthly, models.PlanPremiumYearly:
		sub.Plan = p
	}
	switch st := models.SubscriptionStatus(row.Status); st {
	case models.SubscriptionActive, models.SubscriptionCanceled, models.SubscriptionExpired:
		sub.Status = st
	default:
		sub.Status = models.SubscriptionExpired
	}
	if row.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = *row.CurrentPeriodEnd
	}
	return sub
}

func toUser(u types.User) models.User {
	return models.User{ID: u.ID.String(), Email: u.Email}
}

func validateCredentials(email, password string) error {
	if !strings.Contains(email, "@") {
		return apperrors.Validation("A valid email is required")
	}
	if len(password) < 6 {
		return apperrors.Validation("Password must be at least 6 characters")
	}
	return nil
}

// projectRef extracts the project reference from https://<ref>.supabase.co.
// Custom URLs get a placeholder since the GoTrue URL is set explicitly.
func projectRef(projectURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(projectURL, "https://"), "http://")
	if ref, _, ok := strings.Cut(host, "."); ok && ref != "" {
		return ref
	}
	return fmt.Sprintf("local-%s", strings.ReplaceAll(host, ":", "-"))
}
