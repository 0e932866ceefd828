package processor

import (
	"context"
	"math"
	"testing"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

func TestConvertFormats(t *testing.T) {
	p := newTestProcessor(t)
	src := encodePNGBytes(t, gradientImage(320, 240, 10))

	tests := []struct {
		format   string
		mime     string
		filename string
	}{
		{format: "jpeg", mime: "image/jpeg", filename: "holiday.jpg"},
		{format: "jpg", mime: "image/jpeg", filename: "holiday.jpg"},
		{format: "png", mime: "image/png", filename: "holiday.png"},
		{format: "webp", mime: "image/webp", filename: "holiday.webp"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := p.Convert(context.Background(), src, "holiday.png", tt.format, ConvertOptions{}, nil)
			if err != nil {
				t.Fatalf("Convert returned error: %v", err)
			}
			if got := mimetype.Detect(out.Data); !got.Is(tt.mime) {
				t.Fatalf("expected %s output, got %s", tt.mime, got)
			}
			if out.Filename != tt.filename {
				t.Fatalf("filename = %q, want %q", out.Filename, tt.filename)
			}
			if out.ContentType != tt.mime {
				t.Fatalf("content type = %q, want %q", out.ContentType, tt.mime)
			}
		})
	}
}

func TestConvertMaxBoxOnlyShrinks(t *testing.T) {
	p := newTestProcessor(t)
	src := encodePNGBytes(t, gradientImage(400, 300, 11))

	out, err := p.Convert(context.Background(), src, "a.png", "png", ConvertOptions{MaxWidth: 200}, nil)
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if out.Width != 200 || out.Height != 150 {
		t.Fatalf("expected 200x150, got %dx%d", out.Width, out.Height)
	}

	out, err = p.Convert(context.Background(), src, "a.png", "png", ConvertOptions{MaxWidth: 1000, MaxHeight: 1000}, nil)
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if out.Width != 400 || out.Height != 300 {
		t.Fatalf("expected unchanged 400x300, got %dx%d", out.Width, out.Height)
	}
}

func TestConvertProgressMilestones(t *testing.T) {
	p := newTestProcessor(t)
	src := encodePNGBytes(t, gradientImage(64, 64, 12))

	var got []int
	_, err := p.Convert(context.Background(), src, "a.png", "jpeg", ConvertOptions{Quality: 0.7}, func(percent int, _ string) {
		got = append(got, percent)
	})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	want := []int{5, 35, 70, 85, 100}
	if len(got) != len(want) {
		t.Fatalf("progress = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress = %v, want %v", got, want)
		}
	}
}

func TestConvertOptionsNormalize(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, defaultConvertQuality},
		{math.NaN(), defaultConvertQuality},
		{0.01, qualityFloor},
		{5, 1},
		{0.6, 0.6},
	}
	for _, tt := range tests {
		if got := (ConvertOptions{Quality: tt.in}).normalize().Quality; got != tt.want {
			t.Errorf("normalize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConvertRejectsUnknownFormat(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Convert(context.Background(), []byte("x"), "a.png", "gif", ConvertOptions{}, nil)
	if !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildOutputName(t *testing.T) {
	tests := []struct{ name, format, want string }{
		{"photo.HEIC", models.FormatJPEG, "photo.jpg"},
		{"scan.final.png", models.FormatWebP, "scan.final.webp"},
		{"noext", models.FormatPNG, "noext.png"},
		{"", models.FormatPNG, "image.png"},
		{"dir/pic.jpeg", "jpg", "pic.jpg"},
	}
	for _, tt := range tests {
		if got := BuildOutputName(tt.name, tt.format); got != tt.want {
			t.Errorf("BuildOutputName(%q, %q) = %q, want %q", tt.name, tt.format, got, tt.want)
		}
	}
}

func TestValidateUpload(t *testing.T) {
	png := encodePNGBytes(t, gradientImage(8, 8, 13))

	mime, err := ValidateUpload(png, 1<<20, []string{"image/png", "image/jpeg"})
	if err != nil || mime != "image/png" {
		t.Fatalf("ValidateUpload = %q, %v", mime, err)
	}
	if _, err := ValidateUpload(png, 10, nil); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected size validation error, got %v", err)
	}
	if _, err := ValidateUpload([]byte("%PDF-1.7\n"), 1<<20, []string{"image/png"}); !apperrors.Is(err, apperrors.KindUnsupportedFormat) {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
	if _, err := ValidateUpload(nil, 1<<20, nil); err == nil {
		t.Fatal("expected error for empty upload")
	}
}
