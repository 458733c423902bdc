package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/pkg/errcode"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
	"github.com/doclibre/ragline/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case appErr.IsUnsupportedFormat(err):
		response.Error(c, errcode.ErrUnsupportedFormat, "unsupported format")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
