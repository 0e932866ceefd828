package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

// ErrorHandler handles panics
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("method", ctx.Request.Method),
		)

		ctx.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   "Internal server error",
			Code:    string(apperrors.KindInternal),
		})
	})
}

// RespondWithError renders err as an APIResponse with the status of its kind.
// Errors outside the taxonomy are attached to the context for the request
// log and reported with a generic message.
func RespondWithError(ctx *gin.Context, err error) {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		ctx.AbortWithStatusJSON(apperrors.HTTPStatus(appErr.Kind), models.APIResponse{
			Success: false,
			Error:   appErr.Message,
			Code:    appErr.Code,
		})
		if appErr.Err != nil {
			_ = ctx.Error(appErr.Err)
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ctx.AbortWithStatusJSON(http.StatusRequestTimeout, models.APIResponse{
			Success: false,
			Error:   "The request was cancelled",
			Code:    "REQUEST_CANCELED",
		})
	default:
		_ = ctx.Error(err)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   apperrors.Message(err),
			Code:    string(apperrors.KindInternal),
		})
	}
}
