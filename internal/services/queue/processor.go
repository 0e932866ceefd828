package queue

import (
	"context"
	"fmt"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
)

type ImageTransformer interface {
	Compress(ctx context.Context, data []byte, targetKB int) (*models.CompressionResult, error)
	Convert(ctx context.Context, data []byte, name, format string, opts processor.ConvertOptions, progress models.ProgressFunc) (*models.ProcessedImage, error)
	ResizeToPreset(ctx context.Context, data []byte, name string, preset models.PlatformPreset) (*models.ProcessedImage, error)
}

type DocumentConverter interface {
	Convert(ctx context.Context, data []byte, name, format string, progress models.ProgressFunc) (*models.DocumentResult, error)
	Compress(ctx context.Context, data []byte, name string, level models.CompressionLevel, removeMetadata bool) (*models.PDFCompressionResult, error)
}

func CompressTransform(p ImageTransformer, targetKB int) Transform {
	return func(ctx context.Context, file models.InputFile, progress models.ProgressFunc) (*models.JobResult, error) {
		models.Report(progress, 10, "Compressing")
		res, err := p.Compress(ctx, file.Data, targetKB)
		if err != nil {
			return nil, err
		}
		return &models.JobResult{
			Data:        res.Data,
			Filename:    fmt.Sprintf("compressed_%s", processor.BuildOutputName(file.Name, models.FormatJPEG)),
			ContentType: "image/jpeg",
			Size:        int64(res.Size),
		}, nil
	}
}

func ConvertTransform(p ImageTransformer, format string, opts processor.ConvertOptions) Transform {
	return func(ctx context.Context, file models.InputFile, progress models.ProgressFunc) (*models.JobResult, error) {
		res, err := p.Convert(ctx, file.Data, file.Name, format, opts, progress)
		if err != nil {
			return nil, err
		}
		return &models.JobResult{Data: res.Data, Filename: res.Filename, ContentType: res.ContentType, Size: res.FileSize}, nil
	}
}

func PresetTransform(p ImageTransformer, preset models.PlatformPreset) Transform {
	return func(ctx context.Context, file models.InputFile, progress models.ProgressFunc) (*models.JobResult, error) {
		models.Report(progress, 10, "Resizing")
		res, err := p.ResizeToPreset(ctx, file.Data, file.Name, preset)
		if err != nil {
			return nil, err
		}
		return &models.JobResult{Data: res.Data, Filename: res.Filename, ContentType: res.ContentType, Size: res.FileSize}, nil
	}
}

func DocumentTransform(c DocumentConverter, format string) Transform {
	return func(ctx context.Context, file models.InputFile, progress models.ProgressFunc) (*models.JobResult, error) {
		res, err := c.Convert(ctx, file.Data, file.Name, format, progress)
		if err != nil {
			return nil, err
		}
		return &models.JobResult{Data: res.Data, Filename: res.Filename, ContentType: res.ContentType, Size: res.Size}, nil
	}
}

func PDFCompressTransform(c DocumentConverter, level models.CompressionLevel, removeMetadata bool) Transform {
	return func(ctx context.Context, file models.InputFile, progress models.ProgressFunc) (*models.JobResult, error) {
		models.Report(progress, 10, "Compressing")
		res, err := c.Compress(ctx, file.Data, file.Name, level, removeMetadata)
		if err != nil {
			return nil, err
		}
		return &models.JobResult{Data: res.Data, Filename: res.Filename, ContentType: "application/pdf", Size: res.OutputSize}, nil
	}
}
