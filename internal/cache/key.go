package cache

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// minKeyHexLen 保证分片后最后一段非空：2 + 2 + 至少 1 个字符。
const minKeyHexLen = 5

// Key 是文件内容的主摘要字节，与安装路径无关。
type Key []byte

// ParseKey 从十六进制字符串解析 Key。
func ParseKey(s string) (Key, error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key := Key(decoded)
	if err := key.validate(); err != nil {
		return nil, err
	}
	return key, nil
}

// String 返回 Key 的小写十六进制编码。
func (k Key) String() string {
	return hex.EncodeToString(k)
}

func (k Key) validate() error {
	if len(k)*2 < minKeyHexLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(k))
	}
	return nil
}

// shardPath 按 <hex[0:2]>/<hex[2:4]>/<hex[4:]> 生成相对路径。
func (k Key) shardPath() (string, error) {
	if err := k.validate(); err != nil {
		return "", err
	}
	h := k.String()
	return filepath.Join(h[0:2], h[2:4], h[4:]), nil
}
