package digest

import (
	"errors"
	"io"
)

// ErrCancelled 表示进度回调请求中止读取，区别于普通 I/O 错误。
var ErrCancelled = errors.New("transfer cancelled")

// ProgressFunc 在每次读取到数据后被调用，参数为累计字节数。
// 返回 false 表示请求取消。
type ProgressFunc func(total int64) bool

// Reader 包装任意 io.Reader：一次线性读取同时驱动哈希、字节计数与进度回调。
type Reader struct {
	src      io.Reader
	digest   *MultiDigest
	progress ProgressFunc
	count    int64
	stopped  bool
}

// NewReader 返回包装 src 的 Reader；digest 与 progress 均可为 nil。
func NewReader(src io.Reader, digest *MultiDigest, progress ProgressFunc) *Reader {
	return &Reader{src: src, digest: digest, progress: progress}
}

// Read 实现 io.Reader。回调请求取消时返回已读字节与 ErrCancelled，之后的调用直接返回 ErrCancelled。
func (r *Reader) Read(p []byte) (int, error) {
	if r.stopped {
		return 0, ErrCancelled
	}
	n, err := r.src.Read(p)
	if n > 0 {
		if r.digest != nil {
			r.digest.Write(p[:n])
		}
		r.count += int64(n)
		if r.progress != nil && !r.progress(r.count) {
			r.stopped = true
			return n, ErrCancelled
		}
	}
	return n, err
}

// Count 返回已读取的累计字节数。
func (r *Reader) Count() int64 {
	return r.count
}

// Digest 返回绑定的 MultiDigest，可能为 nil。
func (r *Reader) Digest() *MultiDigest {
	return r.digest
}

// Reset 将 Reader 重新绑定到新的数据源，并重置计数与摘要状态。
func (r *Reader) Reset(src io.Reader, progress ProgressFunc) {
	r.src = src
	r.progress = progress
	r.count = 0
	r.stopped = false
	if r.digest != nil {
		r.digest.Reset()
	}
}

// IsCancelled 报告 err 是否由取消导致。
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
