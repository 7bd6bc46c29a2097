package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IM594/vivi-server-merge-tool/internal/config"
	"github.com/IM594/vivi-server-merge-tool/internal/server"
	"github.com/IM594/vivi-server-merge-tool/internal/store"
	"github.com/IM594/vivi-server-merge-tool/internal/util"
)

var (
	servePort int
	serveDev  bool
	noBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 Web 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 命令行参数覆盖配置
		if servePort > 0 && !cfgInfo.PortSpecified {
			cfg.Server.Port = servePort
		}
		if serveDev {
			cfg.Server.DevMode = true
		}

		fmt.Println("==========================================")
		fmt.Println("  mergeplan - 合服计划检测工具")
		fmt.Println("==========================================")

		dir, err := config.EnsureDataDir(cfg)
		if err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		fmt.Printf("数据目录: %s\n", dir)

		logger, closeLog := config.SetupLogger(cfg.Log, dir)
		defer func() { _ = closeLog() }()
		if cfgInfo.FileFound {
			logger.Info("config loaded", "path", cfgInfo.Path)
		}

		st, err := store.New(config.GetDataPath(cfg, "", cfg.Data.DBFile))
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer st.Close()

		srv, err := server.NewServer(cfg, st, logger)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
			errCh <- srv.Run(addr)
		}()

		// 打开浏览器
		if !cfg.Server.DevMode && !noBrowser {
			fmt.Printf("正在打开浏览器: %s\n", url)
			if err := util.OpenBrowserWithFallback(url); err != nil {
				fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
			}
		} else {
			fmt.Printf("请访问 %s\n", url)
		}

		fmt.Println("\n按 Ctrl+C 停止服务...")

		// 等待信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		fmt.Println("\n正在关闭服务...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "开发模式")
	serveCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "不自动打开浏览器")
}
