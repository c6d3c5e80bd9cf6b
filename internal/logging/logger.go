package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packhub/packhub/internal/config"
)

// InitLogger 根据全局配置初始化 JSON 结构化日志。
// 未指定文件时写入 stderr，stdout 留给安装进度叙述。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	levelName := cfg.LogLevel
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	output, outErr := buildOutput(cfg)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(outErr.Error())
	}

	return logger, nil
}

// NewDiscardLogger 返回丢弃所有输出的 logger，供测试与嵌入方使用。
func NewDiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// buildOutput 根据配置创建日志输出 Writer；失败时降级到 stderr 并返回错误。
func buildOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stderr, nil
	}

	dir := filepath.Dir(cfg.LogFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stderr, fmt.Errorf("创建日志目录失败: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}
	return rotator, nil
}
