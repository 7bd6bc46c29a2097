package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IM594/vivi-server-merge-tool/internal/runner"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
)

// Handler HTTP API 处理器
type Handler struct {
	store     *store.Store
	runner    *runner.Coordinator
	uploadDir string
	downloads *downloadStore
	ttl       time.Duration
	logger    *slog.Logger
	startedAt time.Time
}

// Options 处理器依赖
type Options struct {
	Store       *store.Store
	Runner      *runner.Coordinator
	UploadDir   string        // 上传文件暂存目录
	DownloadTTL time.Duration // 下载链接有效期
	Logger      *slog.Logger
}

// NewHandler 创建 API 处理器
func NewHandler(opts Options) *Handler {
	if opts.DownloadTTL <= 0 {
		opts.DownloadTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		store:     opts.Store,
		runner:    opts.Runner,
		uploadDir: opts.UploadDir,
		downloads: newDownloadStore(),
		ttl:       opts.DownloadTTL,
		logger:    opts.Logger,
		startedAt: time.Now(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 检测运行
	router.POST("/runs", h.CreateRun)
	router.POST("/runs/stream", h.CreateRunStream)
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)
	router.GET("/runs/:id/downloads", h.GetRunDownloads)

	// 阈值
	router.GET("/rules", h.GetRules)
	router.PUT("/rules", h.UpdateRules)
	router.DELETE("/rules", h.ResetRules)

	// 结果下载
	router.GET("/download/:token/:file", h.Download)
}
