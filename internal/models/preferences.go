package models

import "time"

// Preferences is the single persisted settings row of the local toolkit.
type Preferences struct {
	ID                      uint             `gorm:"primaryKey" json:"-"`
	DefaultTargetKB         int              `gorm:"default:500" json:"default_target_kb"`
	DefaultPreset           string           `gorm:"default:instagram_feed" json:"default_preset"`
	DefaultImageFormat      string           `gorm:"default:jpeg" json:"default_image_format"`
	DefaultImageQuality     float64          `gorm:"default:0.85" json:"default_image_quality"`
	DefaultCompressionLevel CompressionLevel `gorm:"default:good_enough" json:"default_compression_level"`
	RemoveMetadata          bool             `gorm:"default:false" json:"remove_metadata"`
	DefaultDocumentFormat   string           `gorm:"default:docx" json:"default_document_format"`
	CreatedAt               time.Time        `json:"-"`
	UpdatedAt               time.Time        `json:"updated_at"`
}
