package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/config"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
	"go.uber.org/zap"
)

// SessionHandler exposes the single-file compress and resize tools. A
// failed reprocess answers with the error and leaves the previous output
// downloadable.
type SessionHandler struct {
	sessions *processor.SessionManager
	prefs    PreferenceSource
	logger   *zap.Logger
	config   *config.Config
}

func NewSessionHandler(sessions *processor.SessionManager, prefs PreferenceSource, logger *zap.Logger, config *config.Config) *SessionHandler {
	return &SessionHandler{sessions: sessions, prefs: prefs, logger: logger, config: config}
}

type createSessionRequest struct {
	Kind     processor.SessionKind `json:"kind" binding:"required"`
	TargetKB int                   `json:"target_kb"`
	Preset   string                `json:"preset"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	defaults := loadDefaults(c.Request.Context(), h.prefs, h.logger)
	if req.TargetKB == 0 {
		req.TargetKB = defaults.DefaultTargetKB
	}
	if req.Preset == "" {
		req.Preset = defaults.DefaultPreset
	}

	session, err := h.sessions.Create(req.Kind, req.TargetKB, req.Preset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, session.State())
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	respondOK(c, session.State())
}

func (h *SessionHandler) Load(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	file, err := readUpload(c, fileParamKey, h.config.Storage.MaxFileSize)
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := processor.ValidateUpload(file.Data, h.config.Storage.MaxFileSize, imageTypes(h.config)); err != nil {
		respondError(c, err)
		return
	}

	state, err := session.Load(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, state)
}

type sessionTargetRequest struct {
	TargetKB int `json:"target_kb" binding:"required"`
}

func (h *SessionHandler) SetTarget(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req sessionTargetRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	state, err := session.SetTarget(c.Request.Context(), req.TargetKB)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, state)
}

type sessionPresetRequest struct {
	Preset string `json:"preset" binding:"required"`
}

func (h *SessionHandler) SetPreset(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req sessionPresetRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	state, err := session.SetPreset(c.Request.Context(), req.Preset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, state)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		respondError(c, apperrors.NotFound("session not found"))
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

func (h *SessionHandler) session(c *gin.Context) (*processor.Session, bool) {
	session, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		respondError(c, apperrors.NotFound("session not found"))
		return nil, false
	}
	return session, true
}
