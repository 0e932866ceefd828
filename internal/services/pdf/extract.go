package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"strings"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

// Page is the extracted content of a single PDF page.
type Page struct {
	Number int
	Text   string
	Image  []byte
	Width  int
	Height int
}

type Content struct {
	Pages []Page
}

// TextByPage returns the normalized text of every page in order.
func (c *Content) TextByPage() []string {
	out := make([]string, len(c.Pages))
	for i, p := range c.Pages {
		out[i] = p.Text
	}
	return out
}

// Extract reads the text and a PNG rendering of every page. Progress moves
// from 0 to 100 across the pages.
func Extract(ctx context.Context, src PageSource, scale float64, progress models.ProgressFunc) (*Content, error) {
	total, err := src.PageCount(ctx)
	if err != nil {
		return nil, err
	}

	content := &Content{Pages: make([]Page, 0, total)}
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		models.Report(progress, min(99, percentOf(page-1, total)), fmt.Sprintf("Reading page %d of %d", page, total))

		text, err := src.PageText(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", page, err)
		}
		png, err := src.RenderPage(ctx, page, scale)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", page, err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
		if err != nil {
			return nil, apperrors.Decode(fmt.Sprintf("Could not read rendered page %d", page), err)
		}

		content.Pages = append(content.Pages, Page{
			Number: page,
			Text:   normalizeText(text),
			Image:  png,
			Width:  cfg.Width,
			Height: cfg.Height,
		})
		models.Report(progress, percentOf(page, total), fmt.Sprintf("Read page %d of %d", page, total))
	}
	return content, nil
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func percentOf(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

// capped forwards progress with the percentage limited to ceiling.
func capped(progress models.ProgressFunc, ceiling int) models.ProgressFunc {
	return func(percent int, message string) {
		models.Report(progress, min(ceiling, percent), message)
	}
}
