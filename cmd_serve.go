package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/config"
	"github.com/packhub/packhub/internal/logging"
	"github.com/packhub/packhub/internal/server"
	"github.com/packhub/packhub/internal/server/routes"
	"github.com/packhub/packhub/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local cache to other packhub installs",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, configPath, err := loadRuntime(root)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Global.ListenPort = port
			}

			// 启动顺序：配置 → 磁盘缓存 → Fiber server，所有请求共享同一缓存实例。
			store, err := cache.NewStore(cfg.Global.CachePath)
			if err != nil {
				return fmt.Errorf("初始化缓存目录失败: %w", err)
			}

			fields := logging.BaseFields("startup", configPath)
			fields["listen_port"] = cfg.Global.ListenPort
			fields["cache_path"] = store.Root()
			fields["version"] = version.Full()
			logger.WithFields(fields).Info("配置加载完成")

			return startHTTPServer(cmd.Context(), cfg, store, logger)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "监听端口（覆盖配置 ListenPort）")
	return cmd
}

func startHTTPServer(ctx context.Context, cfg *config.Config, store cache.Store, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Store:      store,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, store, time.Now())

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.WithField("action", "shutdown").Info("Fiber 服务关闭")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}
