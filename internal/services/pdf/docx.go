package pdf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/units"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/engine"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
)

const (
	contentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	docxImageW  = 6.5
	docxImageH  = 8.0
	emptyDocMsg = "The PDF has no pages to convert."
)

// BuildDocx writes one section per page: a "Page N" heading, the page
// rendering, the page text when there is any, and a page break between
// pages. Progress runs from 96 to 99.
func BuildDocx(content *Content, progress models.ProgressFunc) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	// godocx embeds pictures from files.
	dir, cleanup, err := engine.Workspace("pdf-docx-")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	n := len(content.Pages)
	for i, page := range content.Pages {
		if _, err := doc.AddHeading(fmt.Sprintf("Page %d", page.Number), 1); err != nil {
			return nil, fmt.Errorf("failed to add heading for page %d: %w", page.Number, err)
		}

		imgPath := filepath.Join(dir, fmt.Sprintf("page%d.png", page.Number))
		if err := os.WriteFile(imgPath, page.Image, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write page %d image: %w", page.Number, err)
		}
		box := processor.FitContainF(float64(page.Width), float64(page.Height), docxImageW, docxImageH)
		if _, err := doc.AddPicture(imgPath, units.Inch(box.Width), units.Inch(box.Height)); err != nil {
			return nil, fmt.Errorf("failed to add page %d image: %w", page.Number, err)
		}

		if page.Text != "" {
			doc.AddParagraph(page.Text)
		}
		if i < n-1 {
			doc.AddPageBreak()
		}

		models.Report(progress, min(99, 96+int(math.Round(float64(i+1)/float64(n)*3))), fmt.Sprintf("Building page %d of %d", i+1, n))
	}
	if n == 0 {
		doc.AddParagraph(emptyDocMsg)
	}

	out := filepath.Join(dir, "document.docx")
	if err := doc.SaveTo(out); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}
