package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IM594/vivi-server-merge-tool/internal/config"
	"github.com/IM594/vivi-server-merge-tool/internal/execlog"
	"github.com/IM594/vivi-server-merge-tool/internal/exporter"
	"github.com/IM594/vivi-server-merge-tool/internal/parser"
	"github.com/IM594/vivi-server-merge-tool/internal/runner"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
)

var (
	checkStats     []string
	checkPlan      string
	checkPairsFile string
	checkPairs     string
	checkOut       string
	checkHistory   bool
	checkVerbose   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "离线检测：读取本地文件，结果写入输出目录",
	Example: `  mergeplan check --stats s1.csv --stats s2.csv --plan plan.xlsx --pairs-file pairs.txt --out ./result
  mergeplan check --stats s.csv --plan plan.xlsx --pairs "10,11" --out ./result`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(checkStats) == 0 || checkPlan == "" {
			return errors.New("--stats and --plan are required")
		}

		pairsText := checkPairs
		if checkPairsFile != "" {
			data, err := os.ReadFile(checkPairsFile)
			if err != nil {
				return fmt.Errorf("read pairs file: %w", err)
			}
			pairsText = string(data)
		}

		outDir, err := filepath.Abs(checkOut)
		if err != nil {
			return err
		}

		logger, closeLog := config.SetupLogger(config.LogConfig{Level: cfg.Log.Level}, "")
		defer func() { _ = closeLog() }()

		// 默认不写历史；--history 时写入数据目录下的数据库
		var st *store.Store
		if checkHistory {
			if _, err := config.EnsureDataDir(cfg); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			st, err = store.New(config.GetDataPath(cfg, "", cfg.Data.DBFile))
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer st.Close()
		}

		opts := runner.RunOptions{
			PlanFile:  parser.InputFile{Name: filepath.Base(checkPlan), Path: checkPlan},
			PairsText: pairsText,
			OutDir:    outDir,
		}
		for _, p := range checkStats {
			opts.StatsFiles = append(opts.StatsFiles, parser.InputFile{Name: filepath.Base(p), Path: p})
		}

		coordinator := runner.NewCoordinator(st, cfg, config.GetDataPath(cfg, "outputs", ""), logger)
		report, err := coordinator.RunSync(cmd.Context(), opts)
		if err != nil {
			var runErr *runner.RunError
			if errors.As(err, &runErr) {
				printLogs(cmd.OutOrStdout(), runErr.Logs, checkVerbose)
			}
			return err
		}

		out := cmd.OutOrStdout()
		printLogs(out, report.Logs, checkVerbose)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "服务器总数: %d\n", report.Result.TotalServers)
		fmt.Fprintf(out, "检测对: %d\n", len(report.Result.Pairs))
		fmt.Fprintf(out, "警报组: %d\n", report.AlertCount)
		fmt.Fprintf(out, "二次警报组: %d\n", report.SecondaryAlertCount)
		fmt.Fprintf(out, "成功合并: %d\n", report.MergeCount)
		fmt.Fprintf(out, "输出目录: %s\n", report.OutDir)
		for _, name := range append(report.Files.List(), exporter.FileManifest) {
			fmt.Fprintf(out, "  - %s\n", name)
		}
		return nil
	},
}

// printLogs 输出执行日志；verbose 时包含诊断日志
func printLogs(w io.Writer, entries []execlog.Entry, verbose bool) {
	for _, e := range entries {
		if e.Category != execlog.CategoryUser && !verbose {
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n", e.Level, e.Msg)
	}
}

func init() {
	checkCmd.Flags().StringArrayVar(&checkStats, "stats", nil, "区服统计表 (CSV/XLSX，可重复)")
	checkCmd.Flags().StringVar(&checkPlan, "plan", "", "合服计划表 (XLSX)")
	checkCmd.Flags().StringVar(&checkPairsFile, "pairs-file", "", "检测对文件，每行两个区服 ID")
	checkCmd.Flags().StringVar(&checkPairs, "pairs", "", "检测对文本 (与 --pairs-file 二选一)")
	checkCmd.Flags().StringVarP(&checkOut, "out", "o", "result", "输出目录")
	checkCmd.Flags().BoolVar(&checkHistory, "history", false, "写入运行历史数据库")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "输出诊断日志")
}
