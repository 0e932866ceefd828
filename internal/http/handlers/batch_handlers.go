package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
	"github.com/phambaophuc/convert-toolkit/internal/services/queue"
	"github.com/phambaophuc/convert-toolkit/internal/services/storage"
	"go.uber.org/zap"
)

// Batch tools.
const (
	ToolImageCompress = "image_compress"
	ToolImageConvert  = "image_convert"
	ToolImageResize   = "image_resize"
	ToolPDFConvert    = "pdf_convert"
	ToolPDFCompress   = "pdf_compress"
)

const sseKeepAlive = 15 * time.Second

// EventSource delivers the job events of one batch.
type EventSource interface {
	Subscribe(batchID string) (<-chan models.JobEvent, func())
}

type BatchHandler struct {
	queue     *queue.QueueService
	events    EventSource
	images    queue.ImageTransformer
	documents queue.DocumentConverter
	prefs     PreferenceSource
	logger    *zap.Logger
	config    *config.Config
	// runCtx bounds background runs; it is cancelled on shutdown.
	runCtx context.Context
}

func NewBatchHandler(
	runCtx context.Context,
	queue *queue.QueueService,
	events EventSource,
	images queue.ImageTransformer,
	documents queue.DocumentConverter,
	prefs PreferenceSource,
	logger *zap.Logger,
	config *config.Config,
) *BatchHandler {
	return &BatchHandler{
		queue:     queue,
		events:    events,
		images:    images,
		documents: documents,
		prefs:     prefs,
		logger:    logger,
		config:    config,
		runCtx:    runCtx,
	}
}

type createBatchRequest struct {
	Tool string `json:"tool" binding:"required"`
}

func (h *BatchHandler) Create(c *gin.Context) {
	var req createBatchRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if _, ok := h.acceptedTypes(req.Tool); !ok {
		respondError(c, apperrors.Validation("unknown tool: "+req.Tool))
		return
	}

	b := h.queue.CreateBatch(req.Tool)
	respondCreated(c, b.Snapshot())
}

func (h *BatchHandler) List(c *gin.Context) {
	batches := h.queue.Batches()
	out := make([]models.BatchSnapshot, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Snapshot())
	}
	respondOK(c, out)
}

func (h *BatchHandler) Get(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}
	respondOK(c, b.Snapshot())
}

func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.queue.DeleteBatch(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// AddFiles appends uploaded files as idle jobs. Files already in the batch
// (same name and size) are dropped and reported as skipped.
func (h *BatchHandler) AddFiles(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}

	files, err := readUploads(c, filesParamKey, h.config.Storage.MaxFileSize)
	if err != nil {
		respondError(c, err)
		return
	}

	allowed, _ := h.acceptedTypes(b.Tool())
	for _, f := range files {
		if _, err := processor.ValidateUpload(f.Data, h.config.Storage.MaxFileSize, allowed); err != nil {
			respondError(c, err)
			return
		}
	}

	added := b.Add(files...)
	respondOK(c, gin.H{
		"added":    added,
		"skipped":  len(files) - len(added),
		"snapshot": b.Snapshot(),
	})
}

func (h *BatchHandler) RemoveJob(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}
	if err := b.Remove(c.Param("jobId")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, b.Snapshot())
}

func (h *BatchHandler) Clear(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}
	if err := b.Clear(); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, b.Snapshot())
}

type runBatchRequest struct {
	TargetKB       int                     `json:"target_kb"`
	Format         string                  `json:"format"`
	Quality        float64                 `json:"quality"`
	MaxWidth       int                     `json:"max_width"`
	MaxHeight      int                     `json:"max_height"`
	Preset         string                  `json:"preset"`
	Level          models.CompressionLevel `json:"level"`
	RemoveMetadata *bool                   `json:"remove_metadata"`
}

// Run starts processing in the background. Progress is available from the
// snapshot and the event stream.
func (h *BatchHandler) Run(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}

	var req runBatchRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
	}

	transform, err := h.transformFor(c.Request.Context(), b.Tool(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.queue.StartBatch(h.runCtx, b.ID(), transform); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.APIResponse{Success: true, Data: b.Snapshot()})
}

// Events streams job events as server-sent events until the client goes
// away.
func (h *BatchHandler) Events(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}

	events, cancel := h.events.Subscribe(b.ID())
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", b.Snapshot())
	c.Writer.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("job", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

func (h *BatchHandler) DownloadJob(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}
	job, found := b.Job(c.Param("jobId"))
	if !found {
		respondError(c, apperrors.NotFound("job not found"))
		return
	}
	if job.Status != models.StatusDone || job.Result == nil {
		respondError(c, apperrors.Conflict("job has no result yet"))
		return
	}
	sendAttachment(c, job.Result.Data, job.Result.ContentType, job.Result.Filename)
}

// Archive sends every finished result as one zip file.
func (h *BatchHandler) Archive(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := b.WriteArchive(&buf); err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, buf.Bytes(), "application/zip", b.Tool()+"_"+b.ID()[:8]+".zip")
}

// DownloadAll saves the finished results one by one into the download
// folder, pausing between files.
func (h *BatchHandler) DownloadAll(c *gin.Context) {
	b, ok := h.batch(c)
	if !ok {
		return
	}

	sink, err := storage.NewFolderSink(filepath.Join(h.config.Storage.DownloadPath, b.ID()), h.logger)
	if err != nil {
		respondError(c, err)
		return
	}

	failures, err := b.DownloadAll(c.Request.Context(), sink, h.config.Batch.DownloadInterval)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"saved":    sink.Saved(),
		"failures": failures,
	})
}

// === HELPERS ===

func (h *BatchHandler) batch(c *gin.Context) (*queue.Batch, bool) {
	b, ok := h.queue.GetBatch(c.Param("id"))
	if !ok {
		respondError(c, apperrors.NotFound("batch not found"))
		return nil, false
	}
	return b, true
}

func (h *BatchHandler) acceptedTypes(tool string) ([]string, bool) {
	switch tool {
	case ToolImageCompress, ToolImageConvert, ToolImageResize:
		return imageTypes(h.config), true
	case ToolPDFConvert, ToolPDFCompress:
		return []string{"application/pdf"}, true
	default:
		return nil, false
	}
}

// transformFor builds the per-job transform of tool. Settings missing from
// req come from the stored preferences.
func (h *BatchHandler) transformFor(ctx context.Context, tool string, req runBatchRequest) (queue.Transform, error) {
	defaults := loadDefaults(ctx, h.prefs, h.logger)

	switch tool {
	case ToolImageCompress:
		if req.TargetKB == 0 {
			req.TargetKB = defaults.DefaultTargetKB
		}
		if !models.CompressionTarget(req.TargetKB).Valid() {
			return nil, apperrors.Validation("target_kb must be one of 250, 350, 500, 1024")
		}
		return queue.CompressTransform(h.images, req.TargetKB), nil

	case ToolImageConvert:
		if req.Format == "" {
			req.Format = defaults.DefaultImageFormat
		}
		if req.Quality == 0 {
			req.Quality = defaults.DefaultImageQuality
		}
		format := processor.NormalizeFormat(req.Format)
		if format == "" {
			return nil, apperrors.Validation("format must be png, jpeg or webp")
		}
		opts := processor.ConvertOptions{Quality: req.Quality, MaxWidth: req.MaxWidth, MaxHeight: req.MaxHeight}
		return queue.ConvertTransform(h.images, format, opts), nil

	case ToolImageResize:
		if req.Preset == "" {
			req.Preset = defaults.DefaultPreset
		}
		preset, ok := models.FindPreset(req.Preset)
		if !ok {
			return nil, apperrors.Validation("unknown preset: " + req.Preset)
		}
		return queue.PresetTransform(h.images, preset), nil

	case ToolPDFConvert:
		if req.Format == "" {
			req.Format = defaults.DefaultDocumentFormat
		}
		switch req.Format {
		case models.DocumentDocx, models.DocumentXlsx, models.DocumentPptx:
		default:
			return nil, apperrors.Validation("format must be docx, xlsx or pptx")
		}
		return queue.DocumentTransform(h.documents, req.Format), nil

	case ToolPDFCompress:
		if req.Level == "" {
			req.Level = defaults.DefaultCompressionLevel
		}
		if !req.Level.Valid() {
			return nil, apperrors.Validation("level must be good_enough, aggressive or ultra")
		}
		removeMetadata := defaults.RemoveMetadata
		if req.RemoveMetadata != nil {
			removeMetadata = *req.RemoveMetadata
		}
		return queue.PDFCompressTransform(h.documents, req.Level, removeMetadata), nil
	}
	return nil, apperrors.Validation("unknown tool: " + tool)
}
