package installer

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/digest"
	"github.com/packhub/packhub/internal/modpack"
	"github.com/packhub/packhub/internal/progress"
	"github.com/packhub/packhub/internal/transport"
)

// stubFetcher 按 URL 返回预置内容，并记录调用次数。
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]func() io.Reader
	calls  map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{bodies: map[string]func() io.Reader{}, calls: map[string]int{}}
}

func (f *stubFetcher) serve(url string, payload []byte) {
	f.bodies[url] = func() io.Reader { return bytes.NewReader(payload) }
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls[url]++
	body, ok := f.bodies[url]
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &transport.StatusError{URL: url, StatusCode: 404}
	}
	return io.NopCloser(body()), nil
}

func (f *stubFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type memEntry struct {
	name string
	dir  bool
	body string
}

func (e memEntry) Name() string { return e.name }
func (e memEntry) IsDir() bool  { return e.dir }
func (e memEntry) Size() int64  { return int64(len(e.body)) }
func (e memEntry) Open() (io.ReadCloser, error) {
	if e.dir {
		return nil, errors.New("directory")
	}
	return io.NopCloser(strings.NewReader(e.body)), nil
}

type memArchive []modpack.Entry

func (a memArchive) Entries() []modpack.Entry { return a }

// recordingSink 记录日志行，并可在 Item 回调中触发取消。
type recordingSink struct {
	mu       sync.Mutex
	lines    []string
	overall  [][2]int
	token    progress.Token
	cancelAt int64
}

func (s *recordingSink) Log(line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

func (s *recordingSink) Overall(current, total int) {
	s.mu.Lock()
	s.overall = append(s.overall, [2]int{current, total})
	s.mu.Unlock()
}

// hasLine 报告是否有日志行同时包含所有片段。
func (s *recordingSink) hasLine(parts ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.lines {
		matched := true
		for _, p := range parts {
			if !strings.Contains(line, p) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func (s *recordingSink) Item(done, _ int64) {
	if s.cancelAt > 0 && done >= s.cancelAt {
		s.token.Cancel()
	}
}

func (s *recordingSink) Cancelled() bool { return s.token.Cancelled() }

func sha1Of(payload []byte) []byte {
	sum := sha1.Sum(payload)
	return sum[:]
}

func sha512Of(payload []byte) []byte {
	sum := sha512.Sum512(payload)
	return sum[:]
}

func packFile(path string, payload []byte, urls ...string) modpack.PackFile {
	return modpack.PackFile{
		Path: path,
		Size: int64(len(payload)),
		Hashes: []digest.Expected{
			{Algorithm: "sha1", Digest: sha1Of(payload)},
			{Algorithm: "sha512", Digest: sha512Of(payload)},
		},
		Downloads: urls,
	}
}

func newTestInstaller(t *testing.T, fetcher transport.Fetcher, opts ...Option) (*Installer, cache.Store) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return New(store, fetcher, nil, opts...), store
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertNoPartFiles(t *testing.T, root string) {
	t.Helper()
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && strings.HasPrefix(d.Name(), ".packhub-") {
			t.Fatalf("leftover temp file %s", path)
		}
		return nil
	})
}
