package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/services/engine"
)

// PageSource exposes the pages of one opened PDF. Pages are 1-based.
type PageSource interface {
	PageCount(ctx context.Context) (int, error)
	PageText(ctx context.Context, page int) (string, error)
	RenderPage(ctx context.Context, page int, scale float64) ([]byte, error)
	Close() error
}

// GhostscriptSource reads text and renders pages with Ghostscript. The page
// count comes from pdfcpu so unreadable files fail before any engine runs.
type GhostscriptSource struct {
	gs      *engine.Runner
	dir     string
	path    string
	pages   int
	cleanup func()
}

// OpenGhostscript stores data in a scratch directory and validates it.
func OpenGhostscript(gs *engine.Runner, data []byte) (*GhostscriptSource, error) {
	pages, err := CountPages(data)
	if err != nil {
		return nil, err
	}

	dir, cleanup, err := engine.Workspace("pdf-source-")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	return &GhostscriptSource{gs: gs, dir: dir, path: path, pages: pages, cleanup: cleanup}, nil
}

// CountPages validates data as a PDF and returns its page count.
func CountPages(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, apperrors.Validation("PDF file is empty")
	}
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, apperrors.Decode("Could not read the PDF. It may be damaged or password protected", err)
	}
	return n, nil
}

func (s *GhostscriptSource) PageCount(context.Context) (int, error) {
	return s.pages, nil
}

func (s *GhostscriptSource) PageText(ctx context.Context, page int) (string, error) {
	if err := s.checkPage(page); err != nil {
		return "", err
	}
	out, err := s.gs.Run(ctx,
		"-sDEVICE=txtwrite",
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-dSAFER",
		"-dFirstPage="+strconv.Itoa(page),
		"-dLastPage="+strconv.Itoa(page),
		"-sOutputFile=-",
		s.path,
	)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *GhostscriptSource) RenderPage(ctx context.Context, page int, scale float64) ([]byte, error) {
	if err := s.checkPage(page); err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = 1
	}
	out := filepath.Join(s.dir, fmt.Sprintf("page-%d.png", page))
	_, err := s.gs.Run(ctx,
		"-sDEVICE=png16m",
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-dSAFER",
		"-dTextAlphaBits=4",
		"-dGraphicsAlphaBits=4",
		fmt.Sprintf("-r%d", int(72*scale+0.5)),
		"-dFirstPage="+strconv.Itoa(page),
		"-dLastPage="+strconv.Itoa(page),
		"-sOutputFile="+out,
		s.path,
	)
	if err != nil {
		return nil, err
	}
	defer os.Remove(out)

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page %d: %w", page, err)
	}
	return data, nil
}

func (s *GhostscriptSource) Close() error {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	return nil
}

func (s *GhostscriptSource) checkPage(page int) error {
	if page < 1 || page > s.pages {
		return apperrors.Validation(fmt.Sprintf("page %d is out of range (1-%d)", page, s.pages))
	}
	return nil
}
