package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
	"github.com/IM594/vivi-server-merge-tool/internal/service/merge"
)

// AppConfig 应用配置
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Rules   RulesConfig   `toml:"rules"`
	Columns ColumnsConfig `toml:"columns"`
	Plan    PlanConfig    `toml:"plan"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir     string `toml:"data_dir"`
	DBFile      string `toml:"db_file"`
	DownloadTTL int    `toml:"download_ttl_minutes"`
}

// RulesConfig 警报阈值
type RulesConfig struct {
	RankGap           int     `toml:"rank_gap"`
	TopRatio          float64 `toml:"top_ratio"`
	RechargeThreshold float64 `toml:"recharge_threshold"`
	PowerGap          float64 `toml:"power_gap"`
	DAUThreshold      float64 `toml:"dau_threshold"`
}

// ColumnsConfig 统计表列映射
type ColumnsConfig struct {
	// HeaderRow 表头所在行（从 1 开始）；第一行通常是标题
	HeaderRow int `toml:"header_row"`
	// Aliases 规范字段名 → 可接受的表头名
	Aliases map[string][]string `toml:"aliases"`
}

// PlanConfig 合服计划表配置
type PlanConfig struct {
	TargetHeader      string `toml:"target_header"`
	ParticipantHeader string `toml:"participant_header"`
	HighlightColor    string `toml:"highlight_color"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // 相对数据目录；为空时只输出到 stderr
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	rules := merge.DefaultRules()
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:     "data",
			DBFile:      "mergeplan.db",
			DownloadTTL: 30,
		},
		Rules: RulesConfig{
			RankGap:           rules.RankGap,
			TopRatio:          rules.TopRatio,
			RechargeThreshold: rules.RechargeThreshold,
			PowerGap:          rules.PowerGap,
			DAUThreshold:      rules.DAUThreshold,
		},
		Columns: ColumnsConfig{
			HeaderRow: 2,
			Aliases:   DefaultAliases(),
		},
		Plan: PlanConfig{
			TargetHeader:      "目标服",
			ParticipantHeader: "参与服",
			HighlightColor:    "FFFF00",
		},
		Log: LogConfig{
			Level: "info",
			File:  "mergeplan.log",
		},
	}
}

// DefaultAliases 统计表默认表头
func DefaultAliases() map[string][]string {
	return map[string][]string{
		model.FieldID:            {"区服ID", "区服", "server_id"},
		model.FieldPowerScore:    {"前2名战力之和"},
		model.FieldMaxRecharge:   {"最高玩家累充金额"},
		model.FieldDAU:           {"DAU", "日活"},
		model.FieldIncome3d:      {"近3日收入"},
		model.FieldIncome7d:      {"近7日收入"},
		model.FieldPower1:        {"第一名战力"},
		model.FieldPower2:        {"第二名战力"},
		model.FieldPower3:        {"第三名战力"},
		model.FieldTop3Power:     {"前3名战力之和"},
		model.FieldTop10AvgPower: {"前十平均战力"},
		model.FieldTop10AvgLevel: {"前十平均等级"},
	}
}

// MergeRules 转换为检测引擎使用的规则
func (r RulesConfig) MergeRules() merge.Rules {
	return merge.Rules{
		RankGap:           r.RankGap,
		TopRatio:          r.TopRatio,
		RechargeThreshold: r.RechargeThreshold,
		PowerGap:          r.PowerGap,
		DAUThreshold:      r.DAUThreshold,
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return LoadFile(filepath.Join(exeDir, "config.toml"))
}

// LoadFile 从指定路径加载配置；文件不存在时使用默认配置，随后应用环境变量覆盖
func LoadFile(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, err
		}
	case os.IsNotExist(err):
	default:
		return nil, info, err
	}

	if applyEnv(config) {
		info.PortSpecified = true
	}
	if len(config.Columns.Aliases) == 0 {
		config.Columns.Aliases = DefaultAliases()
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖；返回端口是否被覆盖
func applyEnv(config *AppConfig) bool {
	portSet := false
	if v := os.Getenv("MERGEPLAN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			config.Server.Port = p
			portSet = true
		}
	}
	if v := os.Getenv("MERGEPLAN_DEV_MODE"); v != "" {
		config.Server.DevMode = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("MERGEPLAN_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("MERGEPLAN_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	return portSet
}

// SaveConfig 保存配置
func SaveConfig(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveDataDir 数据目录绝对路径；相对路径以可执行文件目录为基准
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	for _, subdir := range []string{"uploads", "outputs"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(ResolveDataDir(config), subdir, filename)
}
