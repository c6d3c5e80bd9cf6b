package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultPath 是未显式指定配置文件时查找的位置。
const DefaultPath = "packhub.toml"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// 默认路径下的文件缺失时直接使用默认值；显式指定的文件必须存在。
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PACKHUB")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if explicit || !isMissingFile(path) {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absCache, err := filepath.Abs(cfg.Global.CachePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.CachePath = absCache

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CachePath", defaultCachePath())
	v.SetDefault("DownloadTimeout", "5m")
	v.SetDefault("UserAgent", "")
	v.SetDefault("DefaultSide", "client")
	v.SetDefault("PeerMirrors", []string{})
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5080
	}
	if g.DownloadTimeout.DurationValue() == 0 {
		g.DownloadTimeout = Duration(5 * time.Minute)
	}
	if strings.TrimSpace(g.DefaultSide) == "" {
		g.DefaultSide = "client"
	}
	g.DefaultSide = strings.ToLower(strings.TrimSpace(g.DefaultSide))
	peers := g.PeerMirrors[:0]
	for _, peer := range g.PeerMirrors {
		if trimmed := strings.TrimRight(strings.TrimSpace(peer), "/"); trimmed != "" {
			peers = append(peers, trimmed)
		}
	}
	g.PeerMirrors = peers
}

// defaultCachePath 优先使用用户缓存目录，无法获取时退回工作目录下的 ./cache。
func defaultCachePath() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "packhub", "blobs")
	}
	return "./cache"
}

func isMissingFile(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, os.ErrNotExist)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
