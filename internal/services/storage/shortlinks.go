package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	shortLinkPrefix   = "short_link:"
	shortCodeLength   = 6
	shortCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxCodeAttempts   = 5
)

type shortLinkRecord struct {
	URL       string `redis:"url"`
	CreatedAt string `redis:"created_at"`
}

// ShortLinkStore persists short codes in Redis.
type ShortLinkStore struct {
	client  *redis.Client
	newCode func() (string, error)
	now     func() time.Time
}

func NewShortLinkStore(client *redis.Client) *ShortLinkStore {
	return &ShortLinkStore{
		client:  client,
		newCode: randomCode,
		now:     time.Now,
	}
}

// Create stores url under a fresh 6-character base36 code, retrying on
// collision.
func (s *ShortLinkStore) Create(ctx context.Context, url string) (*models.ShortLink, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		key := shortLinkPrefix + code
		created := s.now().UTC().Format(time.RFC3339)

		ok, err := s.client.HSetNX(ctx, key, "url", url).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to store short link: %w", err)
		}
		if !ok {
			continue
		}
		if err := s.client.HSet(ctx, key, "created_at", created).Err(); err != nil {
			return nil, fmt.Errorf("failed to store short link: %w", err)
		}
		return &models.ShortLink{Code: code, URL: url, CreatedAt: created}, nil
	}
	return nil, apperrors.Conflict("could not allocate a unique short code")
}

func (s *ShortLinkStore) Resolve(ctx context.Context, code string) (*models.ShortLink, error) {
	if !validCode(code) {
		return nil, apperrors.NotFound("short link not found")
	}

	var rec shortLinkRecord
	res := s.client.HGetAll(ctx, shortLinkPrefix+code)
	if err := res.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load short link: %w", err)
	}
	if len(res.Val()) == 0 {
		return nil, apperrors.NotFound("short link not found")
	}
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode short link: %w", err)
	}
	return &models.ShortLink{Code: code, URL: rec.URL, CreatedAt: rec.CreatedAt}, nil
}

func randomCode() (string, error) {
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	buf := make([]byte, shortCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func validCode(code string) bool {
	if len(code) != shortCodeLength {
		return false
	}
	for _, c := range code {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
