package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
	"github.com/phambaophuc/convert-toolkit/pkg/utils"
	"go.uber.org/zap"
)

// HandleStore keeps tool outputs as transient download handles.
type HandleStore interface {
	Put(owner string, data []byte, contentType, filename string) models.Handle
	Get(id string) (models.Handle, []byte, bool)
	Release(id string) bool
}

type ImageHandler struct {
	processor *processor.ImageProcessor
	handles   HandleStore
	prefs     PreferenceSource
	logger    *zap.Logger
	config    *config.Config
}

func NewImageHandler(
	processor *processor.ImageProcessor,
	handles HandleStore,
	prefs PreferenceSource,
	logger *zap.Logger,
	config *config.Config,
) *ImageHandler {
	return &ImageHandler{
		processor: processor,
		handles:   handles,
		prefs:     prefs,
		logger:    logger,
		config:    config,
	}
}

// === MAIN API ENDPOINTS ===

func (h *ImageHandler) ListPresets(c *gin.Context) {
	respondOK(c, gin.H{
		"presets": models.PlatformPresets,
		"targets": models.CompressionTargets,
	})
}

func (h *ImageHandler) Compress(c *gin.Context) {
	file, err := h.imageInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	defaults := loadDefaults(c.Request.Context(), h.prefs, h.logger)
	targetKB, err := parsePositiveInt(c.PostForm("target_kb"), "target_kb", defaults.DefaultTargetKB)
	if err != nil {
		respondError(c, err)
		return
	}
	if !models.CompressionTarget(targetKB).Valid() {
		respondError(c, apperrors.Validation("target_kb must be one of 250, 350, 500, 1024"))
		return
	}

	res, err := h.processor.Compress(c.Request.Context(), file.Data, targetKB)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "compressed_" + processor.BuildOutputName(file.Name, models.FormatJPEG)
	handle := h.handles.Put(outputOwner(c, "image-compress"), res.Data, "image/jpeg", filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}

func (h *ImageHandler) Resize(c *gin.Context) {
	file, err := h.imageInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	key := c.PostForm("preset")
	if key == "" {
		key = loadDefaults(c.Request.Context(), h.prefs, h.logger).DefaultPreset
	}
	preset, ok := models.FindPreset(key)
	if !ok {
		respondError(c, apperrors.Validation("unknown preset: "+key))
		return
	}

	res, err := h.processor.ResizeToPreset(c.Request.Context(), file.Data, file.Name, preset)
	if err != nil {
		respondError(c, err)
		return
	}

	handle := h.handles.Put(outputOwner(c, "image-resize"), res.Data, res.ContentType, res.Filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}

func (h *ImageHandler) Convert(c *gin.Context) {
	file, err := h.imageInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	defaults := loadDefaults(c.Request.Context(), h.prefs, h.logger)
	opts, err := parseConvertOptions(c, defaults.DefaultImageQuality)
	if err != nil {
		respondError(c, err)
		return
	}
	format := c.DefaultPostForm("format", defaults.DefaultImageFormat)

	res, err := h.processor.Convert(c.Request.Context(), file.Data, file.Name, format, opts, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	handle := h.handles.Put(outputOwner(c, "image-convert"), res.Data, res.ContentType, res.Filename)
	respondOK(c, models.Output{Handle: handle, Result: res})
}

// === HELPERS ===

// imageInput reads the uploaded image, or downloads it when only a url field
// is given, and validates its type.
func (h *ImageHandler) imageInput(c *gin.Context) (models.InputFile, error) {
	maxSize := h.config.Storage.MaxFileSize

	var file models.InputFile
	if rawURL := strings.TrimSpace(c.PostForm(urlParamKey)); rawURL != "" {
		data, mime, err := utils.DownloadFile(c.Request.Context(), rawURL, maxSize)
		if err != nil {
			h.logger.Warn("Failed to download image", zap.String("url", rawURL), zap.Error(err))
			return file, apperrors.Network("Could not download the image", err)
		}
		file = models.InputFile{Name: nameFromURL(rawURL), Size: int64(len(data)), ContentType: mime, Data: data}
	} else {
		var err error
		if file, err = readUpload(c, fileParamKey, maxSize); err != nil {
			return file, err
		}
	}

	if _, err := processor.ValidateUpload(file.Data, maxSize, imageTypes(h.config)); err != nil {
		return file, err
	}
	return file, nil
}

func parseConvertOptions(c *gin.Context, defaultQuality float64) (processor.ConvertOptions, error) {
	quality, err := parseFloat(c.PostForm("quality"), "quality", defaultQuality)
	if err != nil {
		return processor.ConvertOptions{}, err
	}
	maxWidth, err := parsePositiveInt(c.PostForm("max_width"), "max_width", 0)
	if err != nil {
		return processor.ConvertOptions{}, err
	}
	maxHeight, err := parsePositiveInt(c.PostForm("max_height"), "max_height", 0)
	if err != nil {
		return processor.ConvertOptions{}, err
	}
	return processor.ConvertOptions{Quality: quality, MaxWidth: maxWidth, MaxHeight: maxHeight}, nil
}

func imageTypes(cfg *config.Config) []string {
	var out []string
	for _, t := range cfg.Storage.AllowedTypes {
		if strings.HasPrefix(t, "image/") {
			out = append(out, t)
		}
	}
	return out
}
