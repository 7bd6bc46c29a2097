package model

import "time"

// RunStatus 运行状态
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunFailed  RunStatus = "failed"
)

// Run 一次检测运行的历史记录
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	PairsText string    `json:"pairsText"`
	Sources   []string  `json:"sources"` // 统计文件名
	PlanFile  string    `json:"planFile"`

	TotalServers        int `json:"totalServers"`
	PairCount           int `json:"pairCount"`
	AlertCount          int `json:"alertCount"`
	SecondaryAlertCount int `json:"secondaryAlertCount"`
	MergeCount          int `json:"mergeCount"`

	OutputDir    string     `json:"-"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// RunSummary 运行结束时写回的统计
type RunSummary struct {
	TotalServers        int `json:"totalServers"`
	PairCount           int `json:"pairCount"`
	AlertCount          int `json:"alertCount"`
	SecondaryAlertCount int `json:"secondaryAlertCount"`
	MergeCount          int `json:"mergeCount"`
}

// RunDetail 运行记录及其合并日志、提示
type RunDetail struct {
	Run
	Merges  []SwapLogEntry `json:"merges"`
	Notices []Notice       `json:"notices"`
}
