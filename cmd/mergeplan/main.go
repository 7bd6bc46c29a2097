package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/IM594/vivi-server-merge-tool/internal/config"
)

// Version 构建时注入
var Version = "dev"

var (
	configPath string
	dataDir    string
	logLevel   string

	cfg     *config.AppConfig
	cfgInfo config.LoadConfigInfo
)

var rootCmd = &cobra.Command{
	Use:   "mergeplan",
	Short: "合服计划检测工具",
	Long: `mergeplan 读取区服统计表与合服计划表，对请求合并的区服对执行警报检测，
未触发警报的区服对会被改写进合服计划，并输出警报报表、合并日志和高亮后的计划表。`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 可选
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		var err error
		if configPath != "" {
			cfg, cfgInfo, err = config.LoadFile(configPath)
		} else {
			cfg, cfgInfo, err = config.LoadConfigWithInfo()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if dataDir != "" {
			cfg.Data.DataDir = dataDir
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径 (默认: 可执行文件同目录的 config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 debug/info/warn/error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
