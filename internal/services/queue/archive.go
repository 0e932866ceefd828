package queue

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// WriteArchive zips every finished result of the batch into w. Repeated
// filenames get a numeric suffix. It returns the number of files written.
func (b *Batch) WriteArchive(w io.Writer) (int, error) {
	if b.Processing() {
		return 0, ErrBatchBusy
	}
	done := b.DoneJobs()
	if len(done) == 0 {
		return 0, ErrEmptyBatch
	}

	zw := zip.NewWriter(w)
	used := make(map[string]int, len(done))
	for _, job := range done {
		name := uniqueName(job.Result.Filename, used)
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: job.UpdatedAt,
		}
		if header.Modified.IsZero() {
			header.Modified = time.Now()
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := fw.Write(job.Result.Data); err != nil {
			zw.Close()
			return 0, fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return len(done), nil
}

func uniqueName(name string, used map[string]int) string {
	if name == "" {
		name = "file"
	}
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := fmt.Sprintf("%s (%d)%s", base, n+1, ext)
	for used[candidate] > 0 {
		n++
		candidate = fmt.Sprintf("%s (%d)%s", base, n+1, ext)
	}
	used[candidate] = 1
	return candidate
}
