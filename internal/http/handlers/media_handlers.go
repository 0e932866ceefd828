package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

type MediaService interface {
	CompressVideo(ctx context.Context, data []byte, name string) (*models.MediaResult, error)
	RemoveBackground(ctx context.Context, data []byte, name string) (*models.MediaResult, error)
	Transcribe(ctx context.Context, data []byte, name, language string) (*models.Transcript, error)
}

type MediaHandler struct {
	service MediaService
	handles HandleStore
	logger  *zap.Logger
	config  *config.Config
}

func NewMediaHandler(service MediaService, handles HandleStore, logger *zap.Logger, config *config.Config) *MediaHandler {
	return &MediaHandler{service: service, handles: handles, logger: logger, config: config}
}

func (h *MediaHandler) CompressVideo(c *gin.Context) {
	h.runFileTool(c, "video-compress", h.service.CompressVideo)
}

func (h *MediaHandler) RemoveBackground(c *gin.Context) {
	h.runFileTool(c, "background-remove", h.service.RemoveBackground)
}

func (h *MediaHandler) Transcribe(c *gin.Context) {
	file, err := readUpload(c, fileParamKey, h.config.Storage.MaxFileSize)
	if err != nil {
		respondError(c, err)
		return
	}

	transcript, err := h.service.Transcribe(c.Request.Context(), file.Data, file.Name, c.PostForm("language"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, transcript)
}

func (h *MediaHandler) runFileTool(
	c *gin.Context,
	tool string,
	run func(ctx context.Context, data []byte, name string) (*models.MediaResult, error),
) {
	file, err := readUpload(c, fileParamKey, h.config.Storage.MaxFileSize)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := run(c.Request.Context(), file.Data, file.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	handle := h.handles.Put(outputOwner(c, tool), res.Data, res.ContentType, res.Filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}
