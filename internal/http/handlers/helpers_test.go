package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/http/middleware"
	"github.com/phambaophuc/convert-toolkit/internal/services/preferences"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type upload struct {
	field, name string
	data        []byte
}

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			SessionSecret: "test-secret",
			PublicBaseURL: "http://toolkit.test",
		},
		Storage: config.StorageConfig{
			MaxFileSize:  10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp", "image/gif", "application/pdf"},
			DownloadPath: t.TempDir(),
		},
	}
}

func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Sessions("test-secret", false)...)
	return r
}

func testPreferences(t *testing.T) *preferences.Service {
	t.Helper()
	db, err := preferences.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return preferences.NewService(db, nil)
}

// client replays cookies between requests like a browser would.
type client struct {
	t       *testing.T
	router  http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, router http.Handler) *client {
	return &client{t: t, router: router}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	// A handler may save the session more than once; the last cookie wins.
	for _, ck := range w.Result().Cookies() {
		c.setCookie(ck)
	}
	return w
}

func (c *client) setCookie(ck *http.Cookie) {
	for i, existing := range c.cookies {
		if existing.Name == ck.Name {
			c.cookies[i] = ck
			return
		}
	}
	c.cookies = append(c.cookies, ck)
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodPost, path, nil))
}

func (c *client) delete(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodDelete, path, nil))
}

func (c *client) json(method, path string, body interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	if err != nil {
		c.t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) multipart(path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			c.t.Fatal(err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			c.t.Fatal(err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(f.data)); err != nil {
			c.t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		c.t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("invalid data %s: %v", env.Data, err)
		}
	}
	return env
}

func readJSON(w *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
