package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

// 阈值来源
const (
	rulesFromConfig = "config"
	rulesFromSaved  = "saved"
)

// RulesResponse 阈值响应
type RulesResponse struct {
	Rules  merge.Rules `json:"rules"`
	Source string      `json:"source"`
}

func (h *Handler) currentRules() (merge.Rules, string) {
	rules := h.runner.Rules()
	saved, found, err := h.store.LoadRules()
	if err == nil && found && saved == rules {
		return rules, rulesFromSaved
	}
	return rules, rulesFromConfig
}

// GetRules 获取当前生效的阈值
// GET /api/rules
func (h *Handler) GetRules(c *gin.Context) {
	rules, source := h.currentRules()
	c.JSON(http.StatusOK, RulesResponse{Rules: rules, Source: source})
}

// UpdateRules 保存阈值覆盖
// PUT /api/rules
func (h *Handler) UpdateRules(c *gin.Context) {
	rules, _ := h.currentRules()
	if err := c.ShouldBindJSON(&rules); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据"})
		return
	}
	if err := rules.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SaveRules(rules); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存阈值失败"})
		return
	}
	h.logger.Info("rules updated", "rules", rules)
	c.JSON(http.StatusOK, RulesResponse{Rules: rules, Source: rulesFromSaved})
}

// ResetRules 恢复配置文件中的阈值
// DELETE /api/rules
func (h *Handler) ResetRules(c *gin.Context) {
	if err := h.store.ResetRules(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重置阈值失败"})
		return
	}
	rules, source := h.currentRules()
	c.JSON(http.StatusOK, RulesResponse{Rules: rules, Source: source})
}
