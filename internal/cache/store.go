package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理内容寻址缓存的读写。磁盘布局遵循：
//
//	<CachePath>/<hex[0:2]>/<hex[2:4]>/<hex[4:]>
//
// hex 为主摘要的小写十六进制编码。缓存条目只增不删，淘汰由外部负责。
type Store interface {
	// Locate 返回已校验条目的路径；条目不存在或大小与 size 不符时返回 "", false。
	Locate(key Key, size int64) (string, bool)

	// Put 将 srcPath 指向的已校验文件复制进缓存。实现需通过临时文件 + rename
	// 保证原子替换，并在失败时清理临时文件。重复写入同一 key 会覆盖。
	Put(ctx context.Context, key Key, srcPath string) (*Entry, error)

	// Open 返回一个可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Open(ctx context.Context, key Key) (*ReadResult, error)

	// CopyTo 将 size 匹配的缓存条目复制到 dst（临时文件 + rename）。
	// 条目缺失或大小不符时返回 ErrNotFound。
	CopyTo(ctx context.Context, key Key, size int64, dst string) (int64, error)

	// Path 返回 key 对应的物理路径，不检查文件是否存在。
	Path(key Key) (string, error)

	// Root 返回缓存根目录的绝对路径。
	Root() string
}

// Entry 描述一个缓存条目的物理位置及文件信息。
type Entry struct {
	Key       Key       `json:"key"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader，便于镜像服务直接将 Body 流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")

	// ErrInvalidKey 表示 key 过短，无法生成分片路径。
	ErrInvalidKey = errors.New("invalid cache key")
)
