package processor

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ResultCache stores encoded outputs keyed by input content and parameters.
type ResultCache interface {
	GetFromCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, data []byte) error
}

type ImageProcessor struct {
	logger *zap.Logger
	cache  ResultCache
}

// NewImageProcessor builds a processor. cache may be nil.
func NewImageProcessor(logger *zap.Logger, cache ResultCache) *ImageProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProcessor{
		logger: logger,
		cache:  cache,
	}
}

func GenerateCacheKey(operation string, data []byte, params ...interface{}) string {
	hash := md5.New()
	hash.Write([]byte(operation))
	hash.Write(data)
	for _, p := range params {
		hash.Write([]byte(fmt.Sprintf("_%v", p)))
	}
	return fmt.Sprintf("img_cache:%s:%x", operation, hash.Sum(nil))
}

func (p *ImageProcessor) loadCached(ctx context.Context, key string, dst interface{}) bool {
	if p.cache == nil {
		return false
	}
	data, err := p.cache.GetFromCache(ctx, key)
	if err != nil {
		p.logger.Warn("Cache lookup failed", zap.String("cache_key", key), zap.Error(err))
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		p.logger.Warn("Failed to unmarshal cached data", zap.Error(err))
		return false
	}
	p.logger.Debug("Cache hit", zap.String("cache_key", key))
	return true
}

func (p *ImageProcessor) storeCached(ctx context.Context, key string, v interface{}) {
	if p.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("Failed to marshal cache entry", zap.Error(err))
		return
	}
	if err := p.cache.SetCache(ctx, key, payload); err != nil {
		p.logger.Warn("Failed to cache result", zap.String("cache_key", key), zap.Error(err))
	}
}
