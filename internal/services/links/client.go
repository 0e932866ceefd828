package links

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/pkg/utils"
	"go.uber.org/zap"
)

var ErrShortenerDisabled = apperrors.New(apperrors.KindValidation, "SHORTENER_DISABLED",
	"Link shortener is not configured", nil)

// ShortenerClient talks to the short-links function of the identity
// provider's project.
type ShortenerClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

func NewShortenerClient(projectURL, apiKey string, logger *zap.Logger) *ShortenerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ShortenerClient{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
	if projectURL != "" && apiKey != "" {
		c.endpoint = projectURL + "/functions/v1/short-links"
	}
	return c
}

func (c *ShortenerClient) Enabled() bool {
	return c.endpoint != ""
}

type shortLinkRequest struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
	Code   string `json:"code,omitempty"`
}

type shortLinkResponse struct {
	Code  string `json:"code"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Create normalizes target and returns the code assigned to it.
func (c *ShortenerClient) Create(ctx context.Context, target string) (string, error) {
	normalized, err := NormalizeURL(target)
	if err != nil {
		return "", err
	}
	resp, err := c.call(ctx, shortLinkRequest{Action: "create", URL: normalized})
	if err != nil {
		return "", err
	}
	if resp.Code == "" {
		return "", apperrors.Network("Invalid response from link shortener", errors.New("missing code"))
	}
	return resp.Code, nil
}

// Resolve returns the URL stored for code.
func (c *ShortenerClient) Resolve(ctx context.Context, code string) (string, error) {
	resp, err := c.call(ctx, shortLinkRequest{Action: "resolve", Code: code})
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", apperrors.NotFound("Short link not found")
	}
	return resp.URL, nil
}

func (c *ShortenerClient) call(ctx context.Context, payload shortLinkRequest) (*shortLinkResponse, error) {
	if !c.Enabled() {
		return nil, ErrShortenerDisabled
	}

	var out shortLinkResponse
	status, err := utils.PostJSON(ctx, c.http, c.endpoint, utils.FunctionHeaders(c.apiKey, ""), payload, &out)
	if status == 0 && err != nil {
		c.logger.Warn("Short link request failed", zap.String("action", payload.Action), zap.Error(err))
		return nil, apperrors.Network("Could not reach the link shortener", err)
	}
	if status == http.StatusNotFound {
		return nil, apperrors.NotFound("Short link not found")
	}
	if status >= 300 || err != nil {
		c.logger.Warn("Short link function returned an error",
			zap.String("action", payload.Action),
			zap.Int("status", status),
			zap.String("error", out.Error),
			zap.Error(err),
		)
		return nil, apperrors.Network("Link shortener failed", fmt.Errorf("status %d: %s", status, out.Error))
	}
	return &out, nil
}
