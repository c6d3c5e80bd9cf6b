// Package transport 提供安装引擎使用的镜像下载实现。
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/packhub/packhub/internal/config"
	"github.com/packhub/packhub/internal/version"
)

// Fetcher 打开一个镜像 URL 的响应体。调用方负责关闭返回的 ReadCloser。
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// ErrUnexpectedStatus 表示镜像返回了非 2xx 状态码。
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError 记录失败请求的状态码，Unwrap 返回 ErrUnexpectedStatus。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap 返回 ErrUnexpectedStatus。
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

const defaultTimeout = 5 * time.Minute

// HTTPFetcher 基于 net/http 的 Fetcher 实现。
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher 按配置构造 HTTPFetcher；cfg 为 nil 时使用默认超时与 UA。
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	timeout := defaultTimeout
	userAgent := version.UserAgent()
	if cfg != nil {
		if d := cfg.Global.DownloadTimeout.DurationValue(); d > 0 {
			timeout = d
		}
		if cfg.Global.UserAgent != "" {
			userAgent = cfg.Global.UserAgent
		}
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: defaultTransport.Clone(),
		},
		userAgent: userAgent,
	}
}

// NewHTTPFetcherWithClient 使用给定 client，主要用于测试。
func NewHTTPFetcherWithClient(client *http.Client, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch 发起 GET 请求，非 2xx 响应返回 *StatusError。
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}
