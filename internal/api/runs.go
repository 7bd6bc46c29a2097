package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/IM594/vivi-server-merge-tool/internal/execlog"
	"github.com/IM594/vivi-server-merge-tool/internal/exporter"
	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/parser"
	"github.com/IM594/vivi-server-merge-tool/internal/runner"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
)

// 表单字段
const (
	formStatsFiles = "csv_files"
	formPlanFile   = "xlsx_file"
	formPairsText  = "pairs_text"
)

// errMissingFiles 缺少统计表或合服计划表
var errMissingFiles = errors.New("missing files")

// RunResponse 检测结果
type RunResponse struct {
	RunID               string               `json:"runId"`
	TotalServers        int                  `json:"totalServers"`
	PairCount           int                  `json:"pairCount"`
	AlertCount          int                  `json:"alertCount"`
	SecondaryAlertCount int                  `json:"secondaryAlertCount"`
	MergeCount          int                  `json:"mergeCount"`
	Duplicates          []string             `json:"duplicates"`
	Report              []model.ReportRow    `json:"report"`
	SecondaryGroups     []model.AlertGroup   `json:"secondaryGroups"`
	SwapLog             []model.SwapLogEntry `json:"swapLog"`
	Notices             []model.Notice       `json:"notices"`
	Logs                []execlog.Entry      `json:"logs"`
	Stats               []parser.StatsFile   `json:"stats"`
	PlanHeaderMatched   bool                 `json:"planHeaderMatched"`
	Rules               merge.Rules          `json:"rules"`
	Downloads           map[string]string    `json:"downloads"`
	DurationMs          int64                `json:"durationMs"`
}

// RunErrorResponse 失败运行
type RunErrorResponse struct {
	Error string          `json:"error"`
	RunID string          `json:"runId,omitempty"`
	Logs  []execlog.Entry `json:"logs,omitempty"`
}

// CreateRun 上传文件并同步执行检测
// POST /api/runs
func (h *Handler) CreateRun(c *gin.Context) {
	opts, cleanup, err := h.saveUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer cleanup()

	report, err := h.runner.RunSync(c.Request.Context(), opts)
	if err != nil {
		c.JSON(runErrorStatus(err), h.errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, h.runResponse(report))
}

// ListRuns 最近的运行历史
// GET /api/runs?limit=50
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取运行历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

// GetRun 运行详情（合并日志与提示）
// GET /api/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	detail, err := h.store.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "运行记录不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取运行记录失败"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetRunDownloads 为历史运行重新生成下载地址
// GET /api/runs/:id/downloads
func (h *Handler) GetRunDownloads(c *gin.Context) {
	detail, err := h.store.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "运行记录不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取运行记录失败"})
		return
	}
	if detail.Status != model.RunDone {
		c.JSON(http.StatusConflict, gin.H{"error": "运行未成功完成"})
		return
	}
	if _, err := os.Stat(detail.OutputDir); err != nil {
		c.JSON(http.StatusGone, gin.H{"error": "输出文件已清理"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloads": h.downloadLinks(detail.ID, detail.OutputDir, outputFiles())})
}

// saveUploads 把上传文件存入独立目录；cleanup 删除该目录
func (h *Handler) saveUploads(c *gin.Context) (runner.RunOptions, func(), error) {
	noop := func() {}

	form, err := c.MultipartForm()
	if err != nil {
		return runner.RunOptions{}, noop, fmt.Errorf("无效的表单数据: %w", err)
	}
	csvFiles := nonEmpty(form.File[formStatsFiles])
	planFiles := nonEmpty(form.File[formPlanFile])
	if len(csvFiles) == 0 || len(planFiles) == 0 {
		return runner.RunOptions{}, noop, errMissingFiles
	}

	runID := uuid.NewString()
	dir := filepath.Join(h.uploadDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return runner.RunOptions{}, noop, fmt.Errorf("create upload dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.Warn("remove upload dir failed", "dir", dir, "error", err)
		}
	}

	opts := runner.RunOptions{RunID: runID}
	if len(form.Value[formPairsText]) > 0 {
		opts.PairsText = form.Value[formPairsText][0]
	}
	for i, fh := range csvFiles {
		path := filepath.Join(dir, fmt.Sprintf("input_%d%s", i, filepath.Ext(fh.Filename)))
		if err := c.SaveUploadedFile(fh, path); err != nil {
			cleanup()
			return runner.RunOptions{}, noop, fmt.Errorf("保存文件失败: %w", err)
		}
		opts.StatsFiles = append(opts.StatsFiles, parser.InputFile{Name: filepath.Base(fh.Filename), Path: path})
	}
	planPath := filepath.Join(dir, "input.xlsx")
	if err := c.SaveUploadedFile(planFiles[0], planPath); err != nil {
		cleanup()
		return runner.RunOptions{}, noop, fmt.Errorf("保存文件失败: %w", err)
	}
	opts.PlanFile = parser.InputFile{Name: filepath.Base(planFiles[0].Filename), Path: planPath}
	return opts, cleanup, nil
}

func nonEmpty(files []*multipart.FileHeader) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, 0, len(files))
	for _, f := range files {
		if f != nil && f.Filename != "" {
			out = append(out, f)
		}
	}
	return out
}

func (h *Handler) runResponse(report *runner.RunReport) RunResponse {
	res := report.Result
	return RunResponse{
		RunID:               report.RunID,
		TotalServers:        res.TotalServers,
		PairCount:           len(res.Pairs),
		AlertCount:          report.AlertCount,
		SecondaryAlertCount: report.SecondaryAlertCount,
		MergeCount:          report.MergeCount,
		Duplicates:          res.Duplicates,
		Report:              res.Report,
		SecondaryGroups:     res.SecondaryGroups,
		SwapLog:             res.SwapLog,
		Notices:             res.Notices,
		Logs:                report.Logs,
		Stats:               report.Stats,
		PlanHeaderMatched:   report.PlanHeaderMatched,
		Rules:               report.Rules,
		Downloads:           h.downloadLinks(report.RunID, report.OutDir, report.Files),
		DurationMs:          report.Duration.Milliseconds(),
	}
}

func (h *Handler) errorResponse(err error) RunErrorResponse {
	resp := RunErrorResponse{Error: err.Error()}
	var runErr *runner.RunError
	if errors.As(err, &runErr) {
		resp.RunID = runErr.RunID
		resp.Logs = runErr.Logs
	}
	return resp
}

// runErrorStatus 输入问题返回 400，其余 500
func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, merge.ErrNoInputTable),
		errors.Is(err, merge.ErrEmptyDataset),
		errors.Is(err, parser.ErrPlanSheetEmpty),
		errors.Is(err, errMissingFiles):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outputFiles() exporter.Files {
	return exporter.Files{
		AlertCSV:  exporter.FileAlertCSV,
		AlertXLSX: exporter.FileAlertXLSX,
		SwapLog:   exporter.FileSwapLog,
		Plan:      exporter.FilePlan,
	}
}
