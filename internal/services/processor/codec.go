package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const heicHint = "HEIC/HEIF images are not supported. Convert the photo to JPEG or PNG on your device and try again"

var unsupportedMIMEs = []string{"image/heic", "image/heic-sequence", "image/heif", "image/heif-sequence", "image/avif"}

// decodeImage decodes any registered raster format plus WebP.
func decodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.Decode("The file is empty", nil)
	}

	mtype := mimetype.Detect(data)
	for _, m := range unsupportedMIMEs {
		if mtype.Is(m) {
			return nil, "", apperrors.UnsupportedFormat(heicHint)
		}
	}

	if mtype.Is("image/webp") {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return nil, "", apperrors.Decode("Could not read the image", err)
		}
		return img, models.FormatWebP, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.Decode("Could not read the image", err)
	}
	return img, format, nil
}

// jpegQuality maps a 0-1 quality onto the encoder's 1-100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func encodeJPEG(img image.Image, q float64) ([]byte, error) {
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality(q)}); err != nil {
		return nil, apperrors.Encode("Could not export the image", err)
	}
	return out.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, apperrors.Encode("Could not export the image", err)
	}
	return out.Bytes(), nil
}

func encodeWebP(img image.Image, q float64) ([]byte, error) {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(jpegQuality(q)))
	if err != nil {
		return nil, apperrors.Encode("Could not configure the WebP encoder", err)
	}
	var out bytes.Buffer
	if err := webp.Encode(&out, img, opts); err != nil {
		return nil, apperrors.Encode("Could not export the image", err)
	}
	return out.Bytes(), nil
}

func encodeImage(img image.Image, format string, q float64) ([]byte, error) {
	switch NormalizeFormat(format) {
	case models.FormatJPEG:
		return encodeJPEG(flatten(img), q)
	case models.FormatPNG:
		return encodePNG(img)
	case models.FormatWebP:
		return encodeWebP(img, q)
	default:
		return nil, apperrors.Validation(fmt.Sprintf("unsupported output format %q", format))
	}
}

// NormalizeFormat maps an output format name to its canonical form, or ""
// when the format is not supported.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return models.FormatJPEG
	case "png":
		return models.FormatPNG
	case "webp":
		return models.FormatWebP
	default:
		return ""
	}
}

func contentTypeFor(format string) string {
	switch NormalizeFormat(format) {
	case models.FormatPNG:
		return "image/png"
	case models.FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// flatten composites img onto an opaque white canvas.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
