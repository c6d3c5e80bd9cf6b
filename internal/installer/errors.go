package installer

import (
	"errors"
	"fmt"
)

// ErrUnsafePath 表示包内路径解析后逃逸出目标目录。
var ErrUnsafePath = errors.New("unsafe path")

// SecurityError 记录触发越界检查的路径，Unwrap 返回 ErrUnsafePath。
// 出现该错误时整个安装任务中止。
type SecurityError struct {
	Path string
	Root string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("path %q escapes %s", e.Path, e.Root)
}

// Unwrap 返回 ErrUnsafePath。
func (e *SecurityError) Unwrap() error { return ErrUnsafePath }

// errCancelled 在任务内部传递取消信号，不会返回给调用方。
var errCancelled = errors.New("install cancelled")
