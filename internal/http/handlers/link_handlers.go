package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/links"
	"go.uber.org/zap"
)

// ShortLinkStore persists short codes locally.
type ShortLinkStore interface {
	Create(ctx context.Context, url string) (*models.ShortLink, error)
	Resolve(ctx context.Context, code string) (*models.ShortLink, error)
}

// LinkHandler serves the link tools. Short links go to the hosted shortener
// when it is configured and to the local store otherwise.
type LinkHandler struct {
	remote  *links.ShortenerClient
	store   ShortLinkStore
	baseURL string
	logger  *zap.Logger
}

func NewLinkHandler(remote *links.ShortenerClient, store ShortLinkStore, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{remote: remote, store: store, baseURL: baseURL, logger: logger}
}

type whatsAppRequest struct {
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
}

func (h *LinkHandler) WhatsApp(c *gin.Context) {
	var req whatsAppRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	link, err := links.WhatsAppLink(req.CountryCode, req.Phone, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"url": link})
}

type shortenRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *LinkHandler) Shorten(c *gin.Context) {
	var req shortenRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	link, err := h.create(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	link.ShortURL = links.BuildShortURL(h.baseURL, link.Code)
	respondCreated(c, link)
}

func (h *LinkHandler) Resolve(c *gin.Context) {
	link, err := h.resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	link.ShortURL = links.BuildShortURL(h.baseURL, link.Code)
	respondOK(c, link)
}

// Redirect sends the visitor to the stored URL.
func (h *LinkHandler) Redirect(c *gin.Context) {
	link, err := h.resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			c.String(http.StatusNotFound, "Link not found")
			return
		}
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, link.URL)
}

type shortLinkFunctionRequest struct {
	Action string `json:"action"`
	URL    string `json:"url"`
	Code   string `json:"code"`
}

// Function implements the short-link function contract on top of the local
// store: create answers {code}, resolve answers {url} or 404 {error}.
func (h *LinkHandler) Function(c *gin.Context) {
	var req shortLinkFunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "short link store is not configured"})
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case "create":
		target, err := links.NormalizeURL(req.URL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.Message(err)})
			return
		}
		link, err := h.store.Create(ctx, target)
		if err != nil {
			h.logger.Error("Failed to create short link", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create short link"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": link.Code})
	case "resolve":
		link, err := h.store.Resolve(ctx, req.Code)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			h.logger.Error("Failed to resolve short link", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve short link"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": link.URL})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
	}
}

func (h *LinkHandler) create(ctx context.Context, rawURL string) (*models.ShortLink, error) {
	target, err := links.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if h.remote != nil && h.remote.Enabled() {
		code, err := h.remote.Create(ctx, target)
		if err != nil {
			return nil, err
		}
		return &models.ShortLink{Code: code, URL: target}, nil
	}
	if h.store == nil {
		return nil, links.ErrShortenerDisabled
	}
	return h.store.Create(ctx, target)
}

func (h *LinkHandler) resolve(ctx context.Context, code string) (*models.ShortLink, error) {
	if h.remote != nil && h.remote.Enabled() {
		target, err := h.remote.Resolve(ctx, code)
		if err != nil {
			return nil, err
		}
		return &models.ShortLink{Code: code, URL: target}, nil
	}
	if h.store == nil {
		return nil, links.ErrShortenerDisabled
	}
	return h.store.Resolve(ctx, code)
}
