package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

// 输出文件名
const (
	FileAlertCSV  = "alert_result.csv"
	FileAlertXLSX = "alert_result.xlsx"
	FileSwapLog   = "swapped_log.csv"
	FilePlan      = "result_plan.xlsx"
)

// Exporter 检测结果导出器
type Exporter struct {
	outDir    string
	highlight string
}

// NewExporter 创建导出器；highlight 为改写行的填充色（如 FFFF00）
func NewExporter(outDir, highlight string) *Exporter {
	if highlight == "" {
		highlight = "FFFF00"
	}
	return &Exporter{outDir: outDir, highlight: highlight}
}

// PlanLayout 原计划表中的工作表与列位置
type PlanLayout struct {
	SourcePath     string
	Sheet          string
	TargetCol      int // 从 0 开始
	ParticipantCol int
}

// Files 导出的文件名（相对输出目录）
type Files struct {
	AlertCSV  string `json:"alertCsv"`
	AlertXLSX string `json:"alertXlsx"`
	SwapLog   string `json:"swapLog"`
	Plan      string `json:"plan"`
}

// List 按固定顺序列出全部文件
func (f Files) List() []string {
	return []string{f.AlertCSV, f.AlertXLSX, f.SwapLog, f.Plan}
}

// ExportAll 写出全部结果文件
func (e *Exporter) ExportAll(res *merge.Result, layout PlanLayout, progress func(ProgressEvent)) (Files, error) {
	if err := os.MkdirAll(e.outDir, 0755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}

	files := Files{
		AlertCSV:  FileAlertCSV,
		AlertXLSX: FileAlertXLSX,
		SwapLog:   FileSwapLog,
		Plan:      FilePlan,
	}

	reportProgress(progress, 10, "写入警报报表")
	if err := WriteReportCSV(e.path(files.AlertCSV), res.Report); err != nil {
		return Files{}, err
	}
	reportProgress(progress, 35, "写入警报工作簿")
	if err := WriteReportXLSX(e.path(files.AlertXLSX), res.Report); err != nil {
		return Files{}, err
	}
	reportProgress(progress, 60, "写入合并日志")
	if err := WriteSwapLog(e.path(files.SwapLog), res.SwapLog); err != nil {
		return Files{}, err
	}
	reportProgress(progress, 80, "写入合服计划")
	if err := e.WritePlan(e.path(files.Plan), layout, res.Plan, res.ChangedRows); err != nil {
		return Files{}, err
	}
	reportProgress(progress, 100, "导出完成")
	return files, nil
}

func (e *Exporter) path(name string) string {
	return filepath.Join(e.outDir, name)
}
