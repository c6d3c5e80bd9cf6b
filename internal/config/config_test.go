package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.DownloadTimeout.DurationValue() != 2*time.Minute {
		t.Fatalf("DownloadTimeout 应解析为 2m，得到 %s", cfg.Global.DownloadTimeout.DurationValue())
	}
	if cfg.Global.CachePath == "" {
		t.Fatalf("CachePath 应该被保留")
	}
	if cfg.Global.LogMaxBackups != 10 {
		t.Fatalf("LogMaxBackups 应该自动填充默认值")
	}
	if len(cfg.Global.PeerMirrors) != 1 || cfg.Global.PeerMirrors[0] != "http://cache.lan:5080" {
		t.Fatalf("PeerMirrors 应去除尾部斜杠: %v", cfg.Global.PeerMirrors)
	}
	if !cfg.HasPeers() {
		t.Fatalf("HasPeers 应返回 true")
	}
}

func TestValidateRejectsBadSide(t *testing.T) {
	cfgPath := testConfigPath(t, "invalid.toml")

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "Global.DefaultSide" {
		t.Fatalf("应返回 DefaultSide 字段错误，得到 %v", err)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidatePeerMirrors(t *testing.T) {
	testCases := []struct {
		name      string
		peer      string
		shouldErr bool
	}{
		{"http ok", "http://10.0.0.2:5080", false},
		{"https ok", "https://cache.example.com", false},
		{"ftp rejected", "ftp://cache.example.com", true},
		{"missing host", "http://", true},
		{"empty", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Global.PeerMirrors = []string{tc.peer}
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for peer %q", tc.peer)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for peer %q: %v", tc.peer, err)
			}
		})
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Global.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("未知日志级别应报错")
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:      5080,
			LogLevel:        "info",
			CachePath:       "./cache",
			DownloadTimeout: Duration(time.Minute),
			DefaultSide:     "client",
		},
	}
}
