package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func setupLinkRouter(t *testing.T, withStore bool) *client {
	t.Helper()
	var store ShortLinkStore
	if withStore {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		store = storage.NewShortLinkStore(rdb)
	}
	h := NewLinkHandler(nil, store, "http://toolkit.test/", zaptest.NewLogger(t))
	text := NewTextHandler()

	r := newTestEngine()
	r.GET("/s/:code", h.Redirect)
	r.POST("/functions/short-links", h.Function)
	r.POST("/links/whatsapp", h.WhatsApp)
	r.POST("/links/shorten", h.Shorten)
	r.GET("/links/:code", h.Resolve)
	r.POST("/text/case", text.ConvertCase)
	r.POST("/text/stats", text.Stats)
	return newClient(t, r)
}

func TestShortenAndRedirect(t *testing.T) {
	c := setupLinkRouter(t, true)

	var link models.ShortLink
	w := c.json(http.MethodPost, "/links/shorten", gin.H{"url": "  example.com/docs?page=2 "})
	expectStatus(t, w, http.StatusCreated)
	decode(t, w, &link)

	if len(link.Code) != 6 {
		t.Errorf("expected a 6 character code, got %q", link.Code)
	}
	if link.URL != "https://example.com/docs?page=2" {
		t.Errorf("expected normalized URL, got %q", link.URL)
	}
	if link.ShortURL != "http://toolkit.test/s/"+link.Code {
		t.Errorf("unexpected short URL %q", link.ShortURL)
	}

	var resolved models.ShortLink
	decode(t, c.get("/links/"+link.Code), &resolved)
	if resolved.URL != link.URL {
		t.Errorf("expected %q, got %q", link.URL, resolved.URL)
	}

	w = c.get("/s/" + link.Code)
	expectStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != link.URL {
		t.Errorf("expected redirect to %q, got %q", link.URL, loc)
	}

	w = c.get("/s/zzzzzz")
	expectStatus(t, w, http.StatusNotFound)
	if w.Body.String() != "Link not found" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	expectStatus(t, c.get("/links/zzzzzz"), http.StatusNotFound)
}

func TestShortenRejectsInvalidURLs(t *testing.T) {
	c := setupLinkRouter(t, true)

	for _, raw := range []string{"   ", "ftp://example.com/file", "https://"} {
		w := c.json(http.MethodPost, "/links/shorten", gin.H{"url": raw})
		expectStatus(t, w, http.StatusBadRequest)
	}
}

func TestShortenWithoutStore(t *testing.T) {
	c := setupLinkRouter(t, false)

	w := c.json(http.MethodPost, "/links/shorten", gin.H{"url": "example.com"})
	env := decode(t, w, nil)
	if env.Success || w.Code < 400 {
		t.Fatalf("expected failure without a shortener, got %d %s", w.Code, w.Body.String())
	}
	expectStatus(t, c.json(http.MethodPost, "/functions/short-links", gin.H{"action": "create", "url": "example.com"}),
		http.StatusServiceUnavailable)
}

func TestShortLinkFunction(t *testing.T) {
	c := setupLinkRouter(t, true)

	var created struct {
		Code string `json:"code"`
	}
	w := c.json(http.MethodPost, "/functions/short-links", gin.H{"action": "create", "url": "example.org"})
	expectStatus(t, w, http.StatusOK)
	if err := readJSON(w, &created); err != nil || created.Code == "" {
		t.Fatalf("expected code in %s", w.Body.String())
	}

	var resolved struct {
		URL string `json:"url"`
	}
	w = c.json(http.MethodPost, "/functions/short-links", gin.H{"action": "resolve", "code": created.Code})
	expectStatus(t, w, http.StatusOK)
	if err := readJSON(w, &resolved); err != nil || resolved.URL != "https://example.org" {
		t.Errorf("unexpected resolve response %s", w.Body.String())
	}

	var failed struct {
		Error string `json:"error"`
	}
	w = c.json(http.MethodPost, "/functions/short-links", gin.H{"action": "resolve", "code": "000000"})
	expectStatus(t, w, http.StatusNotFound)
	if err := readJSON(w, &failed); err != nil || failed.Error == "" {
		t.Errorf("expected error body, got %s", w.Body.String())
	}

	expectStatus(t, c.json(http.MethodPost, "/functions/short-links", gin.H{"action": "delete"}), http.StatusBadRequest)
}

func TestWhatsAppLink(t *testing.T) {
	c := setupLinkRouter(t, false)

	var out struct {
		URL string `json:"url"`
	}
	w := c.json(http.MethodPost, "/links/whatsapp", gin.H{
		"country_code": "+84",
		"phone":        "(090) 123-4567",
		"message":      "Hi there & welcome",
	})
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &out)
	if out.URL != "https://wa.me/840901234567?text=Hi%20there%20%26%20welcome" {
		t.Errorf("unexpected link %q", out.URL)
	}

	expectStatus(t, c.json(http.MethodPost, "/links/whatsapp", gin.H{"phone": "---"}), http.StatusBadRequest)
}

func TestTextCaseHandlers(t *testing.T) {
	c := setupLinkRouter(t, false)

	var out struct {
		Text  string           `json:"text"`
		Stats models.TextStats `json:"stats"`
	}
	w := c.json(http.MethodPost, "/text/case", gin.H{"text": "hello world. bye", "case": "sentence"})
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &out)
	if out.Text != "Hello world. Bye" {
		t.Errorf("unexpected text %q", out.Text)
	}
	if out.Stats.Words != 3 {
		t.Errorf("expected 3 words, got %d", out.Stats.Words)
	}

	w = c.json(http.MethodPost, "/text/case", gin.H{"text": "x", "case": "shouting"})
	expectStatus(t, w, http.StatusBadRequest)

	var stats models.TextStats
	w = c.json(http.MethodPost, "/text/stats", gin.H{"text": "one two\nthree"})
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &stats)
	if stats.Words != 3 || stats.Lines != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if !strings.Contains(w.Body.String(), `"characters_no_spaces":11`) {
		t.Errorf("unexpected stats body %s", w.Body.String())
	}
}
