package pdf

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	contentTypeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	xlsxSheet       = "Content"
	xlsxHeader      = "PDF content (text)"
	xlsxEmptyPage   = "(No text extracted on this page)"
	xlsxColumnWidth = 80
)

var sentenceBreak = regexp.MustCompile(`[.!?]+`)

// BuildXlsx writes the page text into a single column, one sentence per row.
// Progress runs from 92 to 99.
func BuildXlsx(content *Content, progress models.ProgressFunc) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetColWidth(xlsxSheet, "A", "A", xlsxColumnWidth); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	put := func(value string, style int) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		if value == "" {
			return nil
		}
		if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
			return err
		}
		if style != 0 {
			return f.SetCellStyle(xlsxSheet, cell, cell, style)
		}
		return nil
	}

	if err := put(xlsxHeader, bold); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := put("", 0); err != nil {
		return nil, err
	}

	n := len(content.Pages)
	for i, page := range content.Pages {
		if err := put(fmt.Sprintf("--- Page %d ---", page.Number), bold); err != nil {
			return nil, fmt.Errorf("failed to write page %d: %w", page.Number, err)
		}
		lines := Sentences(page.Text)
		if len(lines) == 0 {
			lines = []string{xlsxEmptyPage}
		}
		for _, line := range lines {
			if err := put(line, 0); err != nil {
				return nil, fmt.Errorf("failed to write page %d: %w", page.Number, err)
			}
		}
		if err := put("", 0); err != nil {
			return nil, err
		}

		models.Report(progress, min(99, 92+int(math.Round(float64(i+1)/float64(n)*7))), fmt.Sprintf("Writing page %d of %d", i+1, n))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Sentences splits text on runs of '.', '!' and '?' and drops empty parts.
func Sentences(text string) []string {
	var out []string
	for _, part := range sentenceBreak.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
