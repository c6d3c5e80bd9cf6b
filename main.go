package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/packhub/packhub/internal/config"
	"github.com/packhub/packhub/internal/logging"
)

// 退出码约定。
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitSecurity  = 3
	exitCancelled = 130
)

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run 执行命令行并返回退出码，方便测试。
func run(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var coded *codedError
	if errors.As(err, &coded) {
		if coded.err != nil {
			fmt.Fprintln(stdErr, coded.err.Error())
		}
		return coded.code
	}
	fmt.Fprintln(stdErr, err.Error())
	if strings.HasPrefix(err.Error(), "unknown command") {
		return exitUsage
	}
	return exitError
}

// codedError 携带期望的进程退出码。
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &codedError{code: code, err: err}
}

func usageErrorf(format string, args ...any) error {
	return withCode(exitUsage, fmt.Errorf(format, args...))
}

// rootOptions 汇总全局标志，便于在测试中注入。
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "packhub",
		Short:         "Install modpacks through a shared content-addressed cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径（默认 ./packhub.toml，可被 PACKHUB_CONFIG 覆盖）")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	root.AddCommand(
		newInstallCmd(opts),
		newServeCmd(opts),
		newCheckConfigCmd(opts),
		newVersionCmd(),
		newCacheCmd(opts),
	)
	return root
}

// exactArgs 与 cobra.ExactArgs 相同，但参数错误按用法错误退出。
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return withCode(exitUsage, err)
		}
		return nil
	}
}

// resolveConfigPath 按 --config > PACKHUB_CONFIG > 默认路径 的优先级决定配置文件。
// 返回空串表示使用默认路径，此时文件缺失不视为错误。
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("PACKHUB_CONFIG")
}

// loadRuntime 加载配置并初始化日志，各子命令共享。
func loadRuntime(opts *rootOptions) (*config.Config, *logrus.Logger, string, error) {
	path := resolveConfigPath(opts.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, path, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		return nil, nil, path, fmt.Errorf("初始化日志失败: %w", err)
	}
	if cfg.Global.LogFilePath == "" {
		logger.SetOutput(stdErr)
	}
	if path == "" {
		path = config.DefaultPath
	}
	return cfg, logger, path, nil
}
