package processor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

const presetQuality = 0.92

// FitContain scales (imgW, imgH) uniformly to fit inside (boxW, boxH) and
// centers it. Small images are scaled up.
func FitContain(imgW, imgH, boxW, boxH int) models.Rect {
	if imgW <= 0 || imgH <= 0 || boxW <= 0 || boxH <= 0 {
		return models.Rect{}
	}

	scale := math.Min(float64(boxW)/float64(imgW), float64(boxH)/float64(imgH))
	w := clampInt(int(math.Round(float64(imgW)*scale)), 1, boxW)
	h := clampInt(int(math.Round(float64(imgH)*scale)), 1, boxH)

	return models.Rect{
		X:      int(math.Round(float64(boxW-w) / 2)),
		Y:      int(math.Round(float64(boxH-h) / 2)),
		Width:  w,
		Height: h,
	}
}

// FitContainF is the unrounded variant, used for slide placement.
func FitContainF(imgW, imgH, boxW, boxH float64) models.RectF {
	if imgW <= 0 || imgH <= 0 || boxW <= 0 || boxH <= 0 {
		return models.RectF{}
	}
	scale := math.Min(boxW/imgW, boxH/imgH)
	w := imgW * scale
	h := imgH * scale
	return models.RectF{X: (boxW - w) / 2, Y: (boxH - h) / 2, Width: w, Height: h}
}

type presetEntry struct {
	Data []byte `json:"data"`
	models.ProcessedImage
}

// ResizeToPreset places the image on a white canvas of exactly the preset's
// dimensions without cropping.
func (p *ImageProcessor) ResizeToPreset(ctx context.Context, data []byte, name string, preset models.PlatformPreset) (*models.ProcessedImage, error) {
	if preset.Width <= 0 || preset.Height <= 0 {
		return nil, fmt.Errorf("invalid preset %q: %dx%d", preset.Key, preset.Width, preset.Height)
	}

	cacheKey := GenerateCacheKey("preset", data, preset.Key, preset.Width, preset.Height)
	var cached presetEntry
	if p.loadCached(ctx, cacheKey, &cached) && len(cached.Data) > 0 {
		out := cached.ProcessedImage
		out.Data = cached.Data
		out.Filename = presetFilename(name, preset)
		return &out, nil
	}

	img, _, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas := renderContain(img, preset.Width, preset.Height)
	out, err := encodeJPEG(canvas, presetQuality)
	if err != nil {
		return nil, err
	}

	result := &models.ProcessedImage{
		Data:        out,
		Filename:    presetFilename(name, preset),
		ContentType: "image/jpeg",
		Format:      models.FormatJPEG,
		Width:       preset.Width,
		Height:      preset.Height,
		FileSize:    int64(len(out)),
	}

	p.logger.Info("Image resized to preset",
		zap.String("preset", preset.Key),
		zap.Int("width", preset.Width),
		zap.Int("height", preset.Height),
		zap.Int64("file_size", result.FileSize),
	)

	p.storeCached(ctx, cacheKey, presetEntry{Data: out, ProcessedImage: *result})
	return result, nil
}

func renderContain(img image.Image, boxW, boxH int) *image.NRGBA {
	b := img.Bounds()
	rect := FitContain(b.Dx(), b.Dy(), boxW, boxH)
	resized := imaging.Resize(img, rect.Width, rect.Height, imaging.Lanczos)
	canvas := imaging.New(boxW, boxH, color.White)
	return imaging.Overlay(canvas, resized, image.Pt(rect.X, rect.Y), 1.0)
}

func presetFilename(name string, preset models.PlatformPreset) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "image"
	}
	label := strings.Join(strings.Fields(preset.Label), "_")
	return fmt.Sprintf("%s_%s_%dx%d.jpg", base, label, preset.Width, preset.Height)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
