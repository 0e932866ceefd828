package media

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/services/engine"
	"go.uber.org/zap/zaptest"
)

var (
	mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")
	mp3Header = []byte("ID3\x03\x00\x00\x00\x00\x00\x00")
)

// fakeEngine writes an executable shell script standing in for a real engine.
func fakeEngine(t *testing.T, name, script string) *engine.Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engines require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake engine: %v", err)
	}
	return engine.NewRunner(name, path, 10*time.Second, zaptest.NewLogger(t))
}

func missingEngine(t *testing.T, name string) *engine.Runner {
	return engine.NewRunner(name, "missing-"+name+"-binary-xyz", time.Second, zaptest.NewLogger(t))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCompressVideo(t *testing.T) {
	ffmpeg := fakeEngine(t, "ffmpeg", `for a; do last="$a"; done; printf 'encoded' > "$last"`)
	svc := NewService(ffmpeg, missingEngine(t, "rembg"), missingEngine(t, "whisper"), zaptest.NewLogger(t))

	res, err := svc.CompressVideo(context.Background(), mp4Header, "holiday.mov")
	if err != nil {
		t.Fatalf("CompressVideo returned error: %v", err)
	}
	if res.Filename != "holiday_compressed.mp4" || res.ContentType != "video/mp4" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if string(res.Data) != "encoded" {
		t.Fatalf("unexpected output %q", res.Data)
	}
}

func TestCompressVideoRejectsImages(t *testing.T) {
	svc := NewService(missingEngine(t, "ffmpeg"), nil, nil, zaptest.NewLogger(t))
	_, err := svc.CompressVideo(context.Background(), pngBytes(t), "a.png")
	if !apperrors.Is(err, apperrors.KindUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestCompressVideoMissingEngine(t *testing.T) {
	svc := NewService(missingEngine(t, "ffmpeg"), nil, nil, zaptest.NewLogger(t))
	_, err := svc.CompressVideo(context.Background(), mp4Header, "a.mp4")
	if !apperrors.Is(err, apperrors.KindExternalEngine) {
		t.Fatalf("expected external engine error, got %v", err)
	}
}

func TestRemoveBackground(t *testing.T) {
	rembg := fakeEngine(t, "rembg", `cp "$2" "$3"`)
	svc := NewService(nil, rembg, nil, zaptest.NewLogger(t))

	res, err := svc.RemoveBackground(context.Background(), pngBytes(t), "portrait.png")
	if err != nil {
		t.Fatalf("RemoveBackground returned error: %v", err)
	}
	if res.Filename != "portrait_no_background.png" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
}

func TestRemoveBackgroundRejectsNonPNGOutput(t *testing.T) {
	rembg := fakeEngine(t, "rembg", `printf 'not an image' > "$3"`)
	svc := NewService(nil, rembg, nil, zaptest.NewLogger(t))

	_, err := svc.RemoveBackground(context.Background(), pngBytes(t), "portrait.png")
	if !apperrors.Is(err, apperrors.KindExternalEngine) {
		t.Fatalf("expected external engine error, got %v", err)
	}
}

func TestTranscribe(t *testing.T) {
	whisper := fakeEngine(t, "whisper", `in="$1"; shift
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) dir="$2"; shift ;;
    --language) lang="$2"; shift ;;
  esac
  shift
done
stem=$(basename "$in"); stem="${stem%.*}"
printf '  hello %s  \n' "${lang:-none}" > "$dir/$stem.txt"`)
	svc := NewService(nil, nil, whisper, zaptest.NewLogger(t))

	got, err := svc.Transcribe(context.Background(), mp3Header, "talk.mp3", "PT")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if got.Text != "hello pt" || got.Language != "pt" {
		t.Fatalf("unexpected transcript %+v", got)
	}

	got, err = svc.Transcribe(context.Background(), mp3Header, "talk.mp3", "auto")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if got.Text != "hello none" || got.Language != "auto" {
		t.Fatalf("auto language should not be passed to the engine: %+v", got)
	}
}

func TestEmptyInput(t *testing.T) {
	svc := NewService(nil, nil, nil, zaptest.NewLogger(t))
	if _, err := svc.Transcribe(context.Background(), nil, "a.mp3", ""); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEngines(t *testing.T) {
	svc := NewService(missingEngine(t, "ffmpeg"), missingEngine(t, "rembg"), missingEngine(t, "whisper"), zaptest.NewLogger(t))
	engines := svc.Engines()
	if len(engines) != 3 {
		t.Fatalf("expected three engines, got %v", engines)
	}
	for name, ok := range engines {
		if ok || !strings.Contains("ffmpeg rembg whisper", name) {
			t.Errorf("unexpected engine state %s=%v", name, ok)
		}
	}
}
