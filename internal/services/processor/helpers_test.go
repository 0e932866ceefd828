package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"sync"
	"testing"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap/zaptest"
)

func newTestProcessor(t *testing.T) *ImageProcessor {
	t.Helper()
	return NewImageProcessor(zaptest.NewLogger(t), nil)
}

// gradientImage draws a smooth gradient with a little deterministic noise.
func gradientImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := rng.Intn(17) - 8
			img.Set(x, y, color.NRGBA{
				R: clampByte(x*255/w + n),
				G: clampByte(y*255/h + n),
				B: clampByte(128 + n),
				A: 255,
			})
		}
	}
	return img
}

// photoImage is a gradient with strong per-channel grain. At JPEG quality
// 100 a 3000x2000 frame encodes to several megabytes.
func photoImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: clampByte(x*255/w + rng.Intn(49) - 24),
				G: clampByte(y*255/h + rng.Intn(49) - 24),
				B: clampByte(128 + rng.Intn(49) - 24),
				A: 255,
			})
		}
	}
	return img
}

func noiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func encodePNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEGBytes(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) image.Config {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	return cfg
}

type fakeHandles struct {
	mu       sync.Mutex
	next     int
	live     map[string]models.Handle
	released []string
}

func newFakeHandles() *fakeHandles {
	return &fakeHandles{live: make(map[string]models.Handle)}
}

func (f *fakeHandles) Put(owner string, data []byte, contentType, filename string) models.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.live[owner]; ok {
		f.released = append(f.released, prev.ID)
	}
	f.next++
	h := models.Handle{
		ID:          fmt.Sprintf("h%d", f.next),
		Owner:       owner,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	f.live[owner] = h
	return h
}

func (f *fakeHandles) ReleaseOwner(owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.live[owner]; ok {
		f.released = append(f.released, prev.ID)
		delete(f.live, owner)
		return 1
	}
	return 0
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func (m *memoryCache) GetFromCache(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if ok {
		m.hits++
	}
	return v, nil
}

func (m *memoryCache) SetCache(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = data
	return nil
}
