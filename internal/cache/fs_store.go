package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// NewStore 以 basePath 为根目录构建内容寻址缓存，整个进程复用一份实例。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("cache path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache path: %w", err)
	}

	return &fileStore{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 串行化同一 key 的进程内写入；跨进程依赖 rename 的原子性。
type fileStore struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) Path(key Key) (string, error) {
	return s.entryPath(key)
}

func (s *fileStore) Locate(key Key, size int64) (string, bool) {
	filePath, err := s.entryPath(key)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	if info.Size() != size {
		return "", false
	}
	return filePath, true
}

func (s *fileStore) Open(ctx context.Context, key Key) (*ReadResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}

	return &ReadResult{
		Entry: Entry{
			Key:       key,
			FilePath:  filePath,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		},
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, key Key, srcPath string) (*Entry, error) {
	filePath, err := s.entryPath(key)
	if err != nil {
		return nil, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open cache source: %w", err)
	}
	defer src.Close()

	unlock := s.lockEntry(key)
	defer unlock()

	written, err := writeAtomic(ctx, filePath, src)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Key:       key,
		FilePath:  filePath,
		SizeBytes: written,
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) CopyTo(ctx context.Context, key Key, size int64, dst string) (int64, error) {
	filePath, ok := s.Locate(key, size)
	if !ok {
		return 0, ErrNotFound
	}
	src, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	defer src.Close()

	written, err := writeAtomic(ctx, dst, io.LimitReader(src, size))
	if err != nil {
		return written, err
	}
	if written != size {
		// 条目在 Locate 之后被并发替换或截断
		_ = os.Remove(dst)
		return written, ErrNotFound
	}
	return written, nil
}

func (s *fileStore) lockEntry(key Key) func() {
	name := key.String()
	s.mu.Lock()
	lock := s.locks[name]
	if lock == nil {
		lock = &entryLock{}
		s.locks[name] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, name)
		}
		s.mu.Unlock()
	}
}

func (s *fileStore) entryPath(key Key) (string, error) {
	rel, err := key.shardPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, rel), nil
}

// writeAtomic 将 body 写入 target 同目录下的临时文件，成功后 rename 覆盖 target。
func writeAtomic(ctx context.Context, target string, body io.Reader) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tempFile, err := os.CreateTemp(dir, ".packhub-*")
	if err != nil {
		return 0, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return written, err
	}

	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return written, err
	}
	return written, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
