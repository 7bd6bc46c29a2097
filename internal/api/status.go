package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Status      string `json:"status"`      // ok / degraded
	Database    bool   `json:"database"`    // 数据库可用
	LastRunID   string `json:"lastRunId"`   // 最近一次运行
	LastRunAt   string `json:"lastRunAt"`   // 最近一次运行时间
	RulesSource string `json:"rulesSource"` // config / saved
	Uptime      string `json:"uptime"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Status:   "ok",
		Database: true,
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
	}

	if err := h.store.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Database = false
		c.JSON(http.StatusOK, resp)
		return
	}

	if runs, err := h.store.ListRuns(1); err == nil && len(runs) > 0 {
		resp.LastRunID = runs[0].ID
		resp.LastRunAt = runs[0].CreatedAt.Format(time.RFC3339)
	}
	_, resp.RulesSource = h.currentRules()

	c.JSON(http.StatusOK, resp)
}
