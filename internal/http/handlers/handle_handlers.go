package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
)

type HandleHandler struct {
	handles HandleStore
}

func NewHandleHandler(handles HandleStore) *HandleHandler {
	return &HandleHandler{handles: handles}
}

// Download serves the bytes behind a handle. Handles stay valid until they
// are replaced or released.
func (h *HandleHandler) Download(c *gin.Context) {
	handle, data, ok := h.handles.Get(c.Param("id"))
	if !ok {
		respondError(c, apperrors.NotFound("download not found or already released"))
		return
	}
	sendAttachment(c, data, handle.ContentType, handle.Filename)
}

// Release frees a one-shot output. Session outputs are released by closing
// the session.
func (h *HandleHandler) Release(c *gin.Context) {
	handle, _, ok := h.handles.Get(c.Param("id"))
	if ok && processor.IsSessionOwner(handle.Owner) {
		respondError(c, apperrors.Conflict("this download belongs to a session; close the session to release it"))
		return
	}
	if !h.handles.Release(c.Param("id")) {
		respondError(c, apperrors.NotFound("download not found or already released"))
		return
	}
	respondOK(c, gin.H{"released": true})
}
