package models

type Plan string

const (
	PlanFree           Plan = "free"
	PlanPremiumMonthly Plan = "premium_monthly"
	PlanPremiumYearly  Plan = "premium_yearly"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Subscription struct {
	UserID           string             `json:"user_id"`
	Plan             Plan               `json:"plan"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd string             `json:"current_period_end,omitempty"`
}

// IsPremium holds when the plan is paid and the subscription is active.
func (s Subscription) IsPremium() bool {
	return s.Plan != PlanFree && s.Status == SubscriptionActive
}

// FreeSubscription is the fallback used when the lookup fails for a signed-in user.
func FreeSubscription(userID string) Subscription {
	return Subscription{UserID: userID, Plan: PlanFree, Status: SubscriptionActive}
}

type AuthSession struct {
	User         User         `json:"user"`
	AccessToken  string       `json:"-"`
	RefreshToken string       `json:"-"`
	Subscription Subscription `json:"subscription"`
}

type AuthStatus struct {
	Enabled      bool          `json:"enabled"`
	SignedIn     bool          `json:"signed_in"`
	User         *User         `json:"user,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	IsPremium    bool          `json:"is_premium"`
	ShowAds      bool          `json:"show_ads"`
	// Unlocked is true when gated features may be used: premium users, or
	// any user when identity is not configured.
	Unlocked bool `json:"unlocked"`
}
