package installer

import (
	"path/filepath"
	"strings"
)

// SafeJoin 将包内相对路径 rel 解析到 root 之下。
// 绝对路径、盘符路径、以及 Clean 后位于 root 之外或等于 root 的路径均被拒绝。
// 反斜杠按分隔符处理，防止 Windows 风格的 ..\ 绕过检查。
func SafeJoin(root, rel string) (string, error) {
	normalized := strings.ReplaceAll(rel, "\\", "/")
	if normalized == "" || strings.HasPrefix(normalized, "/") || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" || hasDriveLetter(normalized) {
		return "", &SecurityError{Path: rel, Root: root}
	}

	cleanRoot := filepath.Clean(root)
	target := filepath.Join(cleanRoot, filepath.FromSlash(normalized))
	relToRoot, err := filepath.Rel(cleanRoot, target)
	if err != nil || relToRoot == "." || relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", &SecurityError{Path: rel, Root: root}
	}
	return target, nil
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
