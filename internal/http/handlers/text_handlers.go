package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/textcase"
)

type TextHandler struct{}

func NewTextHandler() *TextHandler {
	return &TextHandler{}
}

type caseRequest struct {
	Text string          `json:"text"`
	Case models.TextCase `json:"case" binding:"required"`
}

func (h *TextHandler) ConvertCase(c *gin.Context) {
	var req caseRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	out, err := textcase.Convert(req.Text, req.Case)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"text":  out,
		"stats": textcase.Stats(out),
	})
}

type statsRequest struct {
	Text string `json:"text"`
}

func (h *TextHandler) Stats(c *gin.Context) {
	var req statsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, textcase.Stats(req.Text))
}
