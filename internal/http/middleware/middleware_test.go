package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", apperrors.Validation("bad input"), http.StatusBadRequest, "VALIDATION_ERROR", "bad input"},
		{"decode", apperrors.Decode("cannot decode", errors.New("eof")), http.StatusBadRequest, "DECODE_ERROR", "cannot decode"},
		{"unsupported", apperrors.UnsupportedFormat("HEIC is not supported"), http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", "HEIC is not supported"},
		{"not found", apperrors.NotFound("missing"), http.StatusNotFound, "NOT_FOUND", "missing"},
		{"conflict", apperrors.Conflict("busy"), http.StatusConflict, "CONFLICT", "busy"},
		{"network", apperrors.Network("offline", errors.New("dial")), http.StatusBadGateway, "NETWORK_ERROR", "offline"},
		{"engine", apperrors.ExternalEngine("ffmpeg", errors.New("exit 1")), http.StatusServiceUnavailable, "EXTERNAL_ENGINE_ERROR", "ffmpeg failed"},
		{"wrapped", fmt.Errorf("failed to run: %w", apperrors.NotFound("gone")), http.StatusNotFound, "NOT_FOUND", "gone"},
		{"canceled", fmt.Errorf("failed: %w", context.Canceled), http.StatusRequestTimeout, "REQUEST_CANCELED", "The request was cancelled"},
		{"internal", errors.New("disk exploded"), http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { RespondWithError(c, tt.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := decodeResponse(t, w)
			if resp.Success || resp.Code != tt.code || resp.Error != tt.message {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zaptest.NewLogger(t)))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if resp := decodeResponse(t, w); resp.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestValidateContentType(t *testing.T) {
	r := gin.New()
	r.POST("/upload", ValidateContentType("multipart/form-data"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"multipart", "multipart/form-data; boundary=xyz", "--xyz--", http.StatusNoContent},
		{"json", "application/json", "{}", http.StatusUnsupportedMediaType},
		{"malformed", "multipart/", "x", http.StatusUnsupportedMediaType},
		{"no body", "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestLimitBody(t *testing.T) {
	r := gin.New()
	r.POST("/", LimitBody(8), func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"far too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected oversized body to be cut off, got %d", w.Code)
	}
}

func TestSessionsAssignStableClientID(t *testing.T) {
	r := gin.New()
	r.Use(Sessions("test-secret", false)...)
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, ClientID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	first := w.Body.String()
	cookies := w.Result().Cookies()
	if first == "" || len(cookies) == 0 {
		t.Fatalf("expected client id and session cookie, got %q", first)
	}
	if cookies[0].Name != SessionCookieName || !cookies[0].HttpOnly {
		t.Errorf("unexpected cookie %+v", cookies[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.AddCookie(cookies[len(cookies)-1])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != first {
		t.Errorf("expected client id %q to persist, got %q", first, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	if w.Body.String() == first {
		t.Error("expected a new client to get a new id")
	}
}

func TestAuthToken(t *testing.T) {
	r := gin.New()
	r.Use(Sessions("test-secret", false)...)
	r.POST("/login", func(c *gin.Context) {
		if err := SetAuthToken(c, "cookie-token"); err != nil {
			t.Error(err)
		}
	})
	r.POST("/logout", func(c *gin.Context) {
		if err := ClearAuthToken(c); err != nil {
			t.Error(err)
		}
	})
	r.GET("/token", func(c *gin.Context) { c.String(http.StatusOK, AuthToken(c)) })

	serve := func(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	lastCookie := func(w *httptest.ResponseRecorder) *http.Cookie {
		cookies := w.Result().Cookies()
		if len(cookies) == 0 {
			t.Fatal("expected a session cookie")
		}
		return cookies[len(cookies)-1]
	}

	session := lastCookie(serve(httptest.NewRequest(http.MethodPost, "/login", nil), nil))

	if got := serve(httptest.NewRequest(http.MethodGet, "/token", nil), session).Body.String(); got != "cookie-token" {
		t.Errorf("expected cookie token, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	if got := serve(req, session).Body.String(); got != "header-token" {
		t.Errorf("expected bearer token to win, got %q", got)
	}

	session = lastCookie(serve(httptest.NewRequest(http.MethodPost, "/logout", nil), session))
	if got := serve(httptest.NewRequest(http.MethodGet, "/token", nil), session).Body.String(); got != "" {
		t.Errorf("expected token to be cleared, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing security headers: %v", w.Header())
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("expected origin to be allowed, got %v", w.Header())
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials to be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected foreign origin to be rejected, got %d", w.Code)
	}
}
