package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/engine"
	"go.uber.org/zap"
)

// Service runs the video, background-removal and transcription engines.
type Service struct {
	ffmpeg  *engine.Runner
	rembg   *engine.Runner
	whisper *engine.Runner
	logger  *zap.Logger
}

func NewService(ffmpeg, rembg, whisper *engine.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ffmpeg: ffmpeg, rembg: rembg, whisper: whisper, logger: logger}
}

// Engines reports which engines are installed, keyed by engine name.
func (s *Service) Engines() map[string]bool {
	out := make(map[string]bool, 3)
	for _, r := range []*engine.Runner{s.ffmpeg, s.rembg, s.whisper} {
		if r != nil {
			out[r.Name()] = r.Available()
		}
	}
	return out
}

// CompressVideo re-encodes a video to 720p, 30fps MP4 at 800kbps.
func (s *Service) CompressVideo(ctx context.Context, data []byte, name string) (*models.MediaResult, error) {
	mtype, err := detect(data)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mtype.String(), "video/") && !mtype.Is("application/octet-stream") {
		return nil, apperrors.UnsupportedFormat(fmt.Sprintf("expected a video file, got %s", mtype.String()))
	}

	dir, cleanup, input, err := stage("video-", data, name, mtype.Extension())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	output := filepath.Join(dir, "output.mp4")
	start := time.Now()
	if _, err := s.ffmpeg.Run(ctx,
		"-y",
		"-i", input,
		"-vf", "scale=1280:-2",
		"-r", "30",
		"-b:v", "800k",
		"-preset", "veryfast",
		"-movflags", "+faststart",
		output,
	); err != nil {
		return nil, err
	}

	res, err := readResult(output, baseName(name, "video")+"_compressed.mp4", "video/mp4", s.ffmpeg.Name())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Video compressed",
		zap.String("filename", name),
		zap.Int("original_size", len(data)),
		zap.Int64("output_size", res.Size),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// RemoveBackground returns a PNG with the background made transparent.
func (s *Service) RemoveBackground(ctx context.Context, data []byte, name string) (*models.MediaResult, error) {
	mtype, err := detect(data)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, apperrors.UnsupportedFormat(fmt.Sprintf("expected an image file, got %s", mtype.String()))
	}

	dir, cleanup, input, err := stage("rembg-", data, name, mtype.Extension())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	output := filepath.Join(dir, "output.png")
	if _, err := s.rembg.Run(ctx, "i", input, output); err != nil {
		return nil, err
	}

	res, err := readResult(output, baseName(name, "image")+"_no_background.png", "image/png", s.rembg.Name())
	if err != nil {
		return nil, err
	}
	if !mimetype.Detect(res.Data).Is("image/png") {
		return nil, apperrors.ExternalEngine(s.rembg.Name(), fmt.Errorf("output is not a PNG"))
	}
	s.logger.Info("Background removed", zap.String("filename", name), zap.Int64("output_size", res.Size))
	return res, nil
}

// Transcribe converts speech in an audio or video file to plain text.
// An empty language or "auto" lets the engine detect it.
func (s *Service) Transcribe(ctx context.Context, data []byte, name, language string) (*models.Transcript, error) {
	mtype, err := detect(data)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mtype.String(), "audio/") && !strings.HasPrefix(mtype.String(), "video/") {
		return nil, apperrors.UnsupportedFormat(fmt.Sprintf("expected an audio file, got %s", mtype.String()))
	}

	dir, cleanup, input, err := stage("whisper-", data, name, mtype.Extension())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	args := []string{input, "--output_format", "txt", "--output_dir", outDir}
	language = strings.ToLower(strings.TrimSpace(language))
	if language != "" && language != "auto" {
		args = append(args, "--language", language)
	}
	if _, err := s.whisper.Run(ctx, args...); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	text, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		return nil, apperrors.ExternalEngine(s.whisper.Name(), fmt.Errorf("no transcript produced: %w", err))
	}
	if language == "" {
		language = "auto"
	}
	s.logger.Info("Audio transcribed", zap.String("filename", name), zap.String("language", language))
	return &models.Transcript{Language: language, Text: strings.TrimSpace(string(text))}, nil
}

func detect(data []byte) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, apperrors.Validation("file is empty")
	}
	return mimetype.Detect(data), nil
}

// stage writes data into a fresh workspace as input<ext>.
func stage(prefix string, data []byte, name, detectedExt string) (string, func(), string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = detectedExt
	}
	dir, cleanup, err := engine.Workspace(prefix)
	if err != nil {
		return "", nil, "", err
	}
	input := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(input, data, 0o600); err != nil {
		cleanup()
		return "", nil, "", fmt.Errorf("failed to write input: %w", err)
	}
	return dir, cleanup, input, nil
}

func readResult(path, filename, contentType, engineName string) (*models.MediaResult, error) {
	out, err := os.ReadFile(path)
	if err != nil || len(out) == 0 {
		if err == nil {
			err = fmt.Errorf("empty output")
		}
		return nil, apperrors.ExternalEngine(engineName, fmt.Errorf("no output produced: %w", err))
	}
	return &models.MediaResult{Data: out, Filename: filename, ContentType: contentType, Size: int64(len(out))}, nil
}

func baseName(name, fallback string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		return fallback
	}
	return base
}
