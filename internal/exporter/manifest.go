package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/IM594/vivi-server-merge-tool/internal/execlog"
	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

// FileManifest 运行清单文件名
const FileManifest = "run.json"

// Manifest 随输出文件一起保存的运行清单，离线运行时替代历史记录
type Manifest struct {
	RunID     string           `json:"runId"`
	CreatedAt time.Time        `json:"createdAt"`
	Sources   []string         `json:"sources"`
	PlanFile  string           `json:"planFile"`
	PairsText string           `json:"pairsText"`
	Rules     merge.Rules      `json:"rules"`
	Summary   model.RunSummary `json:"summary"`
	Files     Files            `json:"files"`
	Notices   []model.Notice   `json:"notices"`
	Logs      []execlog.Entry  `json:"logs"`
}

// WriteManifest 先写临时文件再改名
func (e *Exporter) WriteManifest(m Manifest) (string, error) {
	path := e.path(FileManifest)
	if err := writeJSONAtomic(path, m); err != nil {
		return "", err
	}
	return path, nil
}

// ReadManifest 读取输出目录中的运行清单
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, FileManifest))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
