package processor

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

const defaultConvertQuality = 0.85

type ConvertOptions struct {
	Quality   float64
	MaxWidth  int
	MaxHeight int
}

// normalize clamps quality into [0.1, 1]; zero or NaN selects the default.
func (o ConvertOptions) normalize() ConvertOptions {
	q := o.Quality
	if q == 0 || math.IsNaN(q) {
		q = defaultConvertQuality
	}
	o.Quality = math.Min(1, math.Max(qualityFloor, q))
	if o.MaxWidth < 0 {
		o.MaxWidth = 0
	}
	if o.MaxHeight < 0 {
		o.MaxHeight = 0
	}
	return o
}

// Convert re-encodes an image into format, optionally shrinking it into
// the MaxWidth x MaxHeight box.
func (p *ImageProcessor) Convert(ctx context.Context, data []byte, name, format string, opts ConvertOptions, progress models.ProgressFunc) (*models.ProcessedImage, error) {
	target := NormalizeFormat(format)
	if target == "" {
		return nil, apperrors.Validation("output format must be one of png, jpeg, webp")
	}
	opts = opts.normalize()

	models.Report(progress, 5, "Reading file")
	img, _, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	models.Report(progress, 35, "Decoded")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := boxedSize(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
	if w != b.Dx() || h != b.Dy() {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	models.Report(progress, 70, "Rendering")

	out, err := encodeImage(img, target, opts.Quality)
	if err != nil {
		return nil, err
	}
	models.Report(progress, 85, "Exporting")

	result := &models.ProcessedImage{
		Data:        out,
		Filename:    BuildOutputName(name, target),
		ContentType: contentTypeFor(target),
		Format:      target,
		Width:       w,
		Height:      h,
		FileSize:    int64(len(out)),
	}

	p.logger.Info("Image converted",
		zap.String("filename", result.Filename),
		zap.String("format", target),
		zap.Int("width", w),
		zap.Int("height", h),
	)

	models.Report(progress, 100, "Done")
	return result, nil
}

// boxedSize shrinks (w, h) to fit the max box. A zero bound is unlimited and
// images are never enlarged.
func boxedSize(w, h, maxW, maxH int) (int, int) {
	ratio := 1.0
	if maxW > 0 {
		ratio = math.Min(ratio, float64(maxW)/float64(w))
	}
	if maxH > 0 {
		ratio = math.Min(ratio, float64(maxH)/float64(h))
	}
	if ratio >= 1 {
		return w, h
	}
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// BuildOutputName swaps the extension of name for the one matching format.
func BuildOutputName(name, format string) string {
	ext := NormalizeFormat(format)
	if ext == models.FormatJPEG {
		ext = "jpg"
	}
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(format, "."))
	}
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + "." + ext
}
