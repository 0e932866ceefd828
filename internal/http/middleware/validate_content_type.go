package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

// ValidateContentType rejects request bodies whose media type is not one of
// allowed. Requests without a body pass through.
func ValidateContentType(allowed ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength == 0 && ctx.GetHeader("Content-Type") == "" {
			ctx.Next()
			return
		}

		mediaType, _, err := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
		if err == nil {
			for _, a := range allowed {
				if mediaType == a {
					ctx.Next()
					return
				}
			}
		}

		ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.APIResponse{
			Success: false,
			Error:   "Unsupported content type",
			Code:    "UNSUPPORTED_CONTENT_TYPE",
		})
	}
}

// LimitBody caps the request body at limit bytes.
func LimitBody(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limit > 0 && ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}
