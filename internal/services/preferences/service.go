package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const preferencesID = 1

// Open opens the SQLite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&models.Preferences{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Service stores the toolkit's defaults in a single row.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

func Defaults() models.Preferences {
	return models.Preferences{
		ID:                      preferencesID,
		DefaultTargetKB:         int(models.Target500KB),
		DefaultPreset:           "instagram_feed",
		DefaultImageFormat:      models.FormatJPEG,
		DefaultImageQuality:     0.85,
		DefaultCompressionLevel: models.CompressionGoodEnough,
		DefaultDocumentFormat:   models.DocumentDocx,
	}
}

func (s *Service) Get(ctx context.Context) (*models.Preferences, error) {
	return s.getOrCreate(ctx)
}

// Update applies the recognized keys of data. Unknown keys are ignored;
// recognized keys with invalid values fail the whole update.
func (s *Service) Update(ctx context.Context, data map[string]interface{}) (*models.Preferences, error) {
	prefs, err := s.getOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	next := *prefs

	if val, ok := data["default_target_kb"]; ok {
		kb, ok := val.(float64)
		if !ok || !models.CompressionTarget(int(kb)).Valid() {
			return nil, apperrors.Validation("default_target_kb must be one of 250, 350, 500, 1024")
		}
		next.DefaultTargetKB = int(kb)
	}
	if val, ok := data["default_preset"]; ok {
		key, _ := val.(string)
		if _, found := models.FindPreset(key); !found {
			return nil, apperrors.Validation(fmt.Sprintf("unknown preset: %v", val))
		}
		next.DefaultPreset = key
	}
	if val, ok := data["default_image_format"]; ok {
		format, _ := val.(string)
		switch format {
		case models.FormatJPEG, models.FormatPNG, models.FormatWebP:
			next.DefaultImageFormat = format
		default:
			return nil, apperrors.Validation("default_image_format must be jpeg, png or webp")
		}
	}
	if val, ok := data["default_image_quality"]; ok {
		q, ok := val.(float64)
		if !ok || q < 0.1 || q > 1 {
			return nil, apperrors.Validation("default_image_quality must be between 0.1 and 1")
		}
		next.DefaultImageQuality = q
	}
	if val, ok := data["default_compression_level"]; ok {
		level, _ := val.(string)
		if !models.CompressionLevel(level).Valid() {
			return nil, apperrors.Validation("default_compression_level must be good_enough, aggressive or ultra")
		}
		next.DefaultCompressionLevel = models.CompressionLevel(level)
	}
	if val, ok := data["remove_metadata"]; ok {
		remove, ok := val.(bool)
		if !ok {
			return nil, apperrors.Validation("remove_metadata must be a boolean")
		}
		next.RemoveMetadata = remove
	}
	if val, ok := data["default_document_format"]; ok {
		format, _ := val.(string)
		switch format {
		case models.DocumentDocx, models.DocumentXlsx, models.DocumentPptx:
			next.DefaultDocumentFormat = format
		default:
			return nil, apperrors.Validation("default_document_format must be docx, xlsx or pptx")
		}
	}

	if err := s.db.WithContext(ctx).Save(&next).Error; err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	s.logger.Info("Preferences updated", zap.Int("fields", len(data)))
	return &next, nil
}

// Reset restores the defaults.
func (s *Service) Reset(ctx context.Context) (*models.Preferences, error) {
	prefs := Defaults()
	if err := s.db.WithContext(ctx).Save(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to reset preferences: %w", err)
	}
	return &prefs, nil
}

func (s *Service) getOrCreate(ctx context.Context) (*models.Preferences, error) {
	var prefs models.Preferences
	err := s.db.WithContext(ctx).First(&prefs, preferencesID).Error
	if err == nil {
		return &prefs, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	prefs = Defaults()
	if err := s.db.WithContext(ctx).Create(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to create preferences: %w", err)
	}
	return &prefs, nil
}
