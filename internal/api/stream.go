package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IM594/vivi-server-merge-tool/internal/exporter"
	"github.com/IM594/vivi-server-merge-tool/internal/runner"
)

// CreateRunStream 上传文件并执行检测 (SSE 流式响应)
// POST /api/runs/stream
func (h *Handler) CreateRunStream(c *gin.Context) {
	opts, cleanup, err := h.saveUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer cleanup()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	lastPercent := -1
	for event := range h.runner.Run(c.Request.Context(), opts) {
		switch data := event.Data.(type) {
		case *runner.RunReport:
			event.Data = h.runResponse(data)
		case *runner.RunError:
			event.Data = h.errorResponse(data)
		case exporter.ProgressEvent:
			if data.Percent == lastPercent {
				continue
			}
			lastPercent = data.Percent
		}

		// SSE 格式: data: {json}\n\n
		eventData, err := json.Marshal(event)
		if err != nil {
			h.logger.Warn("encode progress event failed", "type", event.Type, "error", err)
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
