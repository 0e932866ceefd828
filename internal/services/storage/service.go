package storage

import (
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/redis/go-redis/v9"
)

type StorageService struct {
	redisClient   *redis.Client
	cacheDuration time.Duration
}

func NewStorageService(cfg *config.Config) *StorageService {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return NewStorageServiceWithClient(redisClient, cfg.Storage.CacheDuration)
}

func NewStorageServiceWithClient(client *redis.Client, cacheDuration time.Duration) *StorageService {
	if cacheDuration <= 0 {
		cacheDuration = 24 * time.Hour
	}
	return &StorageService{
		redisClient:   client,
		cacheDuration: cacheDuration,
	}
}

func (s *StorageService) Client() *redis.Client {
	return s.redisClient
}

func (s *StorageService) Close() error {
	return s.redisClient.Close()
}
