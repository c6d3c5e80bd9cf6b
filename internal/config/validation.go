package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
)

var supportedSides = map[string]struct{}{
	"client": {},
	"server": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动安装或镜像服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.CachePath == "" {
		return newFieldError("Global.CachePath", "不能为空")
	}
	if g.DownloadTimeout.DurationValue() <= 0 {
		return newFieldError("Global.DownloadTimeout", "必须大于 0")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("Global.LogLevel", fmt.Sprintf("无法识别: %s", g.LogLevel))
		}
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	if _, ok := supportedSides[g.DefaultSide]; !ok {
		return newFieldError("Global.DefaultSide", "仅支持 client|server")
	}
	for i, peer := range g.PeerMirrors {
		if err := validateMirror(peer); err != nil {
			return fmt.Errorf("%s: %w", indexedField("Global.PeerMirrors", i), err)
		}
	}

	return nil
}

func validateMirror(raw string) error {
	if raw == "" {
		return errors.New("缺少镜像地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，镜像: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("镜像缺少 Host: %s", raw)
	}
	return nil
}
