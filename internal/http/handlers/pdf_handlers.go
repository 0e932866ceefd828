package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/pdf"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
	"go.uber.org/zap"
)

type PDFService interface {
	Convert(ctx context.Context, data []byte, name, format string, progress models.ProgressFunc) (*models.DocumentResult, error)
	Compress(ctx context.Context, data []byte, name string, level models.CompressionLevel, removeMetadata bool) (*models.PDFCompressionResult, error)
	Secure(ctx context.Context, data []byte, name string, opts models.SecurityOptions) (*models.SecurityResult, error)
}

type PDFHandler struct {
	service PDFService
	handles HandleStore
	prefs   PreferenceSource
	logger  *zap.Logger
	config  *config.Config
}

func NewPDFHandler(service PDFService, handles HandleStore, prefs PreferenceSource, logger *zap.Logger, config *config.Config) *PDFHandler {
	return &PDFHandler{service: service, handles: handles, prefs: prefs, logger: logger, config: config}
}

// Info reports the page count of an uploaded PDF.
func (h *PDFHandler) Info(c *gin.Context) {
	file, err := h.pdfInput(c)
	if err != nil {
		respondError(c, err)
		return
	}
	pages, err := pdf.CountPages(file.Data)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"filename": file.Name, "pages": pages, "size": file.Size})
}

func (h *PDFHandler) Convert(c *gin.Context) {
	file, err := h.pdfInput(c)
	if err != nil {
		respondError(c, err)
		return
	}
	format := c.DefaultPostForm("format", loadDefaults(c.Request.Context(), h.prefs, h.logger).DefaultDocumentFormat)

	res, err := h.service.Convert(c.Request.Context(), file.Data, file.Name, format, func(percent int, message string) {
		h.logger.Debug("PDF conversion progress",
			zap.String("filename", file.Name),
			zap.Int("progress", percent),
			zap.String("message", message),
		)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	handle := h.handles.Put(outputOwner(c, "pdf-convert"), res.Data, res.ContentType, res.Filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}

func (h *PDFHandler) Compress(c *gin.Context) {
	file, err := h.pdfInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	defaults := loadDefaults(c.Request.Context(), h.prefs, h.logger)
	level := models.CompressionLevel(c.DefaultPostForm("level", string(defaults.DefaultCompressionLevel)))
	removeMetadata := parseBool(c.PostForm("remove_metadata"), defaults.RemoveMetadata)

	res, err := h.service.Compress(c.Request.Context(), file.Data, file.Name, level, removeMetadata)
	if err != nil {
		respondError(c, err)
		return
	}

	handle := h.handles.Put(outputOwner(c, "pdf-compress"), res.Data, "application/pdf", res.Filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}

// Secure locks or unlocks a PDF. Without a password the file is only
// re-serialized and the result says so.
func (h *PDFHandler) Secure(c *gin.Context) {
	file, err := h.pdfInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	opts := models.SecurityOptions{
		Mode:     models.SecurityMode(c.PostForm("mode")),
		Password: c.PostForm("password"),
	}
	res, err := h.service.Secure(c.Request.Context(), file.Data, file.Name, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	handle := h.handles.Put(outputOwner(c, "pdf-secure"), res.Data, "application/pdf", res.Filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}

func (h *PDFHandler) pdfInput(c *gin.Context) (models.InputFile, error) {
	file, err := readUpload(c, fileParamKey, h.config.Storage.MaxFileSize)
	if err != nil {
		return file, err
	}
	if _, err := processor.ValidateUpload(file.Data, h.config.Storage.MaxFileSize, []string{"application/pdf"}); err != nil {
		return file, err
	}
	return file, nil
}
