// Package response writes JSON error bodies for gin handlers.
package response

import (
	"errors"
	"net/http"

	"github.com/fekuna/cafe-stock-service/pkg/apperror"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders err as {"error", "details"} with the status its kind maps to.
func Error(c *gin.Context, log logger.ZapLogger, redact bool, err error) {
	status := apperror.HTTPStatus(err)
	body := gin.H{}

	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr) && appErr.Kind != apperror.KindDatabase:
		body["error"] = appErr.Message
		if appErr.Details != nil {
			body["details"] = appErr.Details
		}
	case redact:
		body["error"] = "internal server error"
	default:
		body["error"] = err.Error()
	}

	// The access log already records the status; only store failures carry a cause worth keeping.
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, body)
}
