package pdf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/engine"
	"go.uber.org/zap"
)

const (
	noPasswordNote = "No password was given, so the file was re-saved without protection."
	lockedNote     = "The PDF is encrypted with AES-256. Keep the password safe; it cannot be recovered."
	unlockedNote   = "Password protection was removed."
)

// Service converts, compresses and protects PDF files.
type Service struct {
	gs     *engine.Runner
	scale  float64
	logger *zap.Logger
	open   func(data []byte) (PageSource, error)
}

func NewService(gs *engine.Runner, scale float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scale <= 0 {
		scale = 2
	}
	s := &Service{gs: gs, scale: scale, logger: logger}
	s.open = func(data []byte) (PageSource, error) {
		return OpenGhostscript(gs, data)
	}
	return s
}

// Available reports whether Ghostscript can be run.
func (s *Service) Available() bool {
	return s.gs != nil && s.gs.Available()
}

// Convert turns a PDF into a docx, xlsx or pptx document.
func (s *Service) Convert(ctx context.Context, data []byte, name, format string, progress models.ProgressFunc) (*models.DocumentResult, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	var (
		ceiling     int
		build       func(*Content, models.ProgressFunc) ([]byte, error)
		contentType string
	)
	switch format {
	case models.DocumentDocx:
		ceiling, build, contentType = 95, BuildDocx, contentTypeDocx
	case models.DocumentXlsx:
		ceiling, build, contentType = 90, BuildXlsx, contentTypeXlsx
	case models.DocumentPptx:
		ceiling, build, contentType = 85, BuildPptx, contentTypePptx
	default:
		return nil, apperrors.UnsupportedFormat(fmt.Sprintf("unsupported document format: %s", format))
	}

	start := time.Now()
	src, err := s.open(data)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	content, err := Extract(ctx, src, s.scale, capped(progress, ceiling))
	if err != nil {
		return nil, err
	}

	models.Report(progress, ceiling+1, "Generating document")
	out, err := build(content, progress)
	if err != nil {
		return nil, apperrors.Encode("Could not generate the document", err)
	}
	models.Report(progress, 100, "Done")

	s.logger.Info("PDF converted",
		zap.String("filename", name),
		zap.String("format", format),
		zap.Int("pages", len(content.Pages)),
		zap.Int("output_size", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &models.DocumentResult{
		Data:        out,
		Filename:    OutputName(name, "", format),
		ContentType: contentType,
		Pages:       len(content.Pages),
		Size:        int64(len(out)),
	}, nil
}

// Compress rewrites the PDF through Ghostscript with the level's preset.
func (s *Service) Compress(ctx context.Context, data []byte, name string, level models.CompressionLevel, removeMetadata bool) (*models.PDFCompressionResult, error) {
	if _, err := CountPages(data); err != nil {
		return nil, err
	}
	settings, dpi, ok := compressionPreset(level)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown compression level: %s", level))
	}

	dir, cleanup, err := engine.Workspace("pdf-compress-")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	input := filepath.Join(dir, "input.pdf")
	output := filepath.Join(dir, "output.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	args := []string{
		"-sDEVICE=pdfwrite",
		"-dPDFSETTINGS=" + settings,
		"-dCompatibilityLevel=1.5",
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-dSAFER",
		"-dAutoRotatePages=/None",
		"-dColorImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dColorImageResolution=%d", dpi),
		"-dGrayImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dGrayImageResolution=%d", dpi),
		"-dMonoImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dMonoImageResolution=%d", dpi),
		"-dDownsampleColorImages=true",
		"-dDownsampleGrayImages=true",
		"-dDownsampleMonoImages=true",
		"-dSubsetFonts=true",
	}
	if level == models.CompressionUltra {
		args = append(args, "-dCompressFonts=true", "-dCompressStreams=true")
	}
	args = append(args, "-sOutputFile="+output, input)
	if removeMetadata {
		marks := filepath.Join(dir, "metadata.ps")
		if err := os.WriteFile(marks, []byte(blankDocInfo), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write pdfmark: %w", err)
		}
		args = append(args, marks)
	}

	if _, err := s.gs.Run(ctx, args...); err != nil {
		return nil, err
	}
	out, err := os.ReadFile(output)
	if err != nil {
		return nil, apperrors.ExternalEngine(s.gs.Name(), fmt.Errorf("no output produced: %w", err))
	}

	saved := SavedPercent(int64(len(data)), int64(len(out)))
	s.logger.Info("PDF compressed",
		zap.String("filename", name),
		zap.String("level", string(level)),
		zap.Int("original_size", len(data)),
		zap.Int("output_size", len(out)),
		zap.Float64("saved_percent", saved),
	)

	return &models.PDFCompressionResult{
		Data:         out,
		Filename:     OutputName(name, "_compressed", "pdf"),
		Level:        level,
		OriginalSize: int64(len(data)),
		OutputSize:   int64(len(out)),
		SavedPercent: saved,
	}, nil
}

// Secure locks or unlocks a PDF. Without a password the file is only
// re-serialized and the result says so.
func (s *Service) Secure(ctx context.Context, data []byte, name string, opts models.SecurityOptions) (*models.SecurityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("PDF file is empty")
	}

	var (
		out       bytes.Buffer
		err       error
		protected bool
		note      string
		suffix    string
	)
	switch {
	case opts.Mode != models.SecurityLock && opts.Mode != models.SecurityUnlock:
		return nil, apperrors.Validation(fmt.Sprintf("unknown security mode: %s", opts.Mode))
	case opts.Password == "":
		if _, cerr := CountPages(data); cerr != nil {
			return nil, cerr
		}
		err = api.Optimize(bytes.NewReader(data), &out, model.NewDefaultConfiguration())
		note = noPasswordNote
		suffix = "_" + string(opts.Mode) + "ed"
	case opts.Mode == models.SecurityLock:
		conf := model.NewAESConfiguration(opts.Password, opts.Password, 256)
		err = api.Encrypt(bytes.NewReader(data), &out, conf)
		protected, note, suffix = true, lockedNote, "_locked"
	default:
		conf := model.NewDefaultConfiguration()
		conf.UserPW = opts.Password
		conf.OwnerPW = opts.Password
		err = api.Decrypt(bytes.NewReader(data), &out, conf)
		note, suffix = unlockedNote, "_unlocked"
	}
	if err != nil {
		if opts.Mode == models.SecurityUnlock && opts.Password != "" {
			return nil, apperrors.Validation("Could not unlock the PDF. Check the password")
		}
		return nil, apperrors.Decode("Could not process the PDF", err)
	}

	s.logger.Info("PDF security applied",
		zap.String("filename", name),
		zap.String("mode", string(opts.Mode)),
		zap.Bool("protected", protected),
	)

	return &models.SecurityResult{
		Data:      out.Bytes(),
		Filename:  OutputName(name, suffix, "pdf"),
		Protected: protected,
		Note:      note,
	}, nil
}

// compressionPreset maps a level to Ghostscript's PDFSETTINGS and image DPI.
func compressionPreset(level models.CompressionLevel) (string, int, bool) {
	switch level {
	case models.CompressionGoodEnough, "":
		return "/printer", 150, true
	case models.CompressionAggressive:
		return "/ebook", 110, true
	case models.CompressionUltra:
		return "/screen", 72, true
	default:
		return "", 0, false
	}
}

// SavedPercent is the size reduction rounded to one decimal, never negative.
func SavedPercent(original, output int64) float64 {
	if original <= 0 || output >= original {
		return 0
	}
	saved := float64(original-output) / float64(original) * 100
	return math.Round(saved*10) / 10
}

// OutputName builds "<base><suffix>.<ext>" from an uploaded filename.
func OutputName(name, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + suffix + "." + ext
}

const blankDocInfo = "[ /Title () /Author () /Subject () /Keywords () /Creator () /DOCINFO pdfmark\n"
