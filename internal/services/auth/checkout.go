package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/pkg/utils"
	"go.uber.org/zap"
)

const checkoutFailed = "Could not start checkout. Please try again later"

// CheckoutClient asks the hosted checkout function for a payment page URL.
type CheckoutClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

func NewCheckoutClient(projectURL, apiKey string, logger *zap.Logger) *CheckoutClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CheckoutClient{apiKey: apiKey, http: &http.Client{Timeout: 20 * time.Second}, logger: logger}
	if projectURL != "" && apiKey != "" {
		c.endpoint = projectURL + "/functions/v1/create-checkout"
	}
	return c
}

type checkoutRequest struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Plan   models.Plan `json:"plan"`
}

type checkoutResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Create returns the redirect URL for the payment page.
func (c *CheckoutClient) Create(ctx context.Context, session *models.AuthSession, plan models.Plan) (string, error) {
	if c.endpoint == "" {
		return "", ErrAuthDisabled
	}
	if session == nil || session.User.ID == "" {
		return "", apperrors.New(apperrors.KindValidation, "SIGNIN_REQUIRED", "Sign in to subscribe", nil)
	}
	if plan != models.PlanPremiumMonthly && plan != models.PlanPremiumYearly {
		return "", apperrors.Validation("plan must be premium_monthly or premium_yearly")
	}

	var out checkoutResponse
	status, err := utils.PostJSON(ctx, c.http, c.endpoint,
		utils.FunctionHeaders(c.apiKey, session.AccessToken),
		checkoutRequest{UserID: session.User.ID, Email: session.User.Email, Plan: plan},
		&out,
	)
	if err == nil && (status >= 300 || out.URL == "") {
		err = errors.New(out.Error)
	}
	if err != nil {
		c.logger.Warn("Checkout failed",
			zap.String("user_id", session.User.ID),
			zap.String("plan", string(plan)),
			zap.Int("status", status),
			zap.Error(err),
		)
		return "", apperrors.Network(checkoutFailed, err)
	}
	return out.URL, nil
}
