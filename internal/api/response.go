package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumekit/internal/pipeline"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// Fault 返回可重试的故障信息，字段与 WebSocket 推送保持一致。
func Fault(c *gin.Context, status int, f *pipeline.Fault) {
	c.JSON(status, gin.H{
		"error":         f.Message,
		"error_code":    f.Code(),
		"error_message": f.Message,
		"retryable":     f.Retryable(),
	})
}
