package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

// FolderSink saves finished jobs into a local folder.
type FolderSink struct {
	dir    string
	logger *zap.Logger
	saved  []string
}

func NewFolderSink(dir string, logger *zap.Logger) (*FolderSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download folder: %w", err)
	}
	return &FolderSink{dir: dir, logger: logger}, nil
}

// Deliver writes the job result, never overwriting an existing file.
func (f *FolderSink) Deliver(ctx context.Context, job models.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.Result == nil {
		return fmt.Errorf("job %s has no result", job.ID)
	}

	path, err := f.freePath(job.Result.Filename)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, job.Result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", job.Result.Filename, err)
	}

	f.saved = append(f.saved, path)
	f.logger.Info("File saved", zap.String("job_id", job.ID), zap.String("path", path))
	return nil
}

// Saved lists the paths written so far.
func (f *FolderSink) Saved() []string {
	return append([]string(nil), f.saved...)
}

func (f *FolderSink) freePath(filename string) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(f.dir, name)
	for i := 2; i < 1000; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
		candidate = filepath.Join(f.dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
	}
	return "", fmt.Errorf("no free filename for %s", filename)
}
