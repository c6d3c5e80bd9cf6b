package digest

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHex 将十六进制摘要字符串解码为字节，大小写不敏感。
func ParseHex(s string) ([]byte, error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parsing hex digest: %w", err)
	}
	return decoded, nil
}

// FormatHex 返回摘要的小写十六进制表示。
func FormatHex(sum []byte) string {
	return hex.EncodeToString(sum)
}
