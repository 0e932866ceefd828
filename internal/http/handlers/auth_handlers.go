package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/http/middleware"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/auth"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Create(ctx context.Context, session *models.AuthSession, plan models.Plan) (string, error)
}

// AuthHandler exposes identity, subscription status and checkout. The access
// token lives in the session cookie; a bearer header takes precedence.
type AuthHandler struct {
	state    *auth.AppState
	checkout CheckoutService
	logger   *zap.Logger
}

func NewAuthHandler(state *auth.AppState, checkout CheckoutService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{state: state, checkout: checkout, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Status(c *gin.Context) {
	respondOK(c, h.state.Status(c.Request.Context(), middleware.AuthToken(c)))
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	session, err := h.state.Identity().SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if session.AccessToken == "" {
		respondCreated(c, gin.H{
			"confirmation_required": true,
			"user":                  session.User,
		})
		return
	}
	h.signedIn(c, session, true)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	session, err := h.state.Identity().SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.signedIn(c, session, false)
}

// SignOut clears the local session even when the identity service cannot be
// reached, so the user always ends up signed out.
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := middleware.AuthToken(c)
	if err := h.state.Identity().SignOut(c.Request.Context(), token); err != nil {
		h.logger.Warn("Remote sign-out failed", zap.Error(err))
	}
	h.state.Forget(token)
	if err := middleware.ClearAuthToken(c); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, h.state.Status(c.Request.Context(), ""))
}

type checkoutRequest struct {
	Plan models.Plan `json:"plan" binding:"required"`
}

func (h *AuthHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if !h.state.Identity().Enabled() {
		respondError(c, auth.ErrAuthDisabled)
		return
	}
	session, err := h.state.Identity().Session(ctx, middleware.AuthToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		respondError(c, apperrors.New(apperrors.KindValidation, "SIGNIN_REQUIRED", "Sign in to subscribe", nil))
		return
	}

	url, err := h.checkout.Create(ctx, session, req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"url": url})
}

func (h *AuthHandler) signedIn(c *gin.Context, session *models.AuthSession, created bool) {
	if err := middleware.SetAuthToken(c, session.AccessToken); err != nil {
		respondError(c, err)
		return
	}
	status := auth.Derive(true, session)
	if created {
		respondCreated(c, status)
		return
	}
	respondOK(c, status)
}
