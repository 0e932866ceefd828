package processor

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

const (
	initialQuality = 0.9
	qualityFloor   = 0.1
	minQualityStep = 0.05
	dampingFactor  = 0.9
	maxDimension   = 2000
	// Hard cap on encode attempts. The minimum step already ends the search
	// after at most 18 attempts.
	maxIterations = 32
)

type compressionEntry struct {
	Data []byte `json:"data"`
	models.CompressionResult
}

// Compress re-encodes data as JPEG trying to fit within targetKB kilobytes.
// When even the quality floor overshoots, the floor encoding is returned.
func (p *ImageProcessor) Compress(ctx context.Context, data []byte, targetKB int) (*models.CompressionResult, error) {
	if targetKB <= 0 {
		return nil, apperrors.Validation("target size must be positive")
	}

	cacheKey := GenerateCacheKey("compress", data, targetKB)
	var cached compressionEntry
	if p.loadCached(ctx, cacheKey, &cached) && len(cached.Data) > 0 {
		result := cached.CompressionResult
		result.Data = cached.Data
		return &result, nil
	}

	img, _, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	canvas := flatten(downscale(img, maxDimension))
	bounds := canvas.Bounds()

	result, err := searchQuality(ctx, canvas, targetKB*1024)
	if err != nil {
		return nil, err
	}
	result.OriginalSize = len(data)
	result.Width = bounds.Dx()
	result.Height = bounds.Dy()
	result.TargetKB = targetKB

	p.logger.Info("Image compressed",
		zap.Int("original_size", result.OriginalSize),
		zap.Int("output_size", result.Size),
		zap.Int("target_kb", targetKB),
		zap.Float64("quality", result.Quality),
		zap.Int("iterations", result.Iterations),
	)

	p.storeCached(ctx, cacheKey, compressionEntry{Data: result.Data, CompressionResult: *result})
	return result, nil
}

// searchQuality runs the damped multiplicative quality search.
func searchQuality(ctx context.Context, img image.Image, targetBytes int) (*models.CompressionResult, error) {
	q := initialQuality
	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := encodeJPEG(img, q)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, apperrors.Encode("Encoder produced no output", nil)
		}

		if len(out) <= targetBytes || q <= qualityFloor || iteration >= maxIterations {
			return &models.CompressionResult{
				Data:       out,
				Size:       len(out),
				Quality:    q,
				Iterations: iteration,
				MetTarget:  len(out) <= targetBytes,
			}, nil
		}

		q = nextQuality(q, float64(targetBytes)/float64(len(out)))
	}
}

func nextQuality(q, ratio float64) float64 {
	next := q * ratio * dampingFactor
	next = math.Min(next, q-minQualityStep)
	return math.Max(next, qualityFloor)
}

// downscale shrinks img so its larger side equals limit. Smaller images are
// returned unchanged.
func downscale(img image.Image, limit int) image.Image {
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return img
	}
	return imaging.Fit(img, limit, limit, imaging.Lanczos)
}

func compressedName(name string) string {
	return fmt.Sprintf("compressed_%s", BuildOutputName(name, models.FormatJPEG))
}
