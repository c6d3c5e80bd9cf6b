package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/packhub/packhub/internal/digest"
	"github.com/packhub/packhub/internal/logging"
	"github.com/packhub/packhub/internal/modpack"
	"github.com/packhub/packhub/internal/progress"
)

// Extractor 将 override 归档中属于某个作用域的条目写入目标目录。
type Extractor struct {
	logger *logrus.Logger
}

// NewExtractor 创建 Extractor；logger 为 nil 时丢弃日志。
func NewExtractor(logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Extractor{logger: logger}
}

type extractItem struct {
	entry  modpack.Entry
	target string
}

// Extract 解压名称以 "<scope>/" 开头的条目，去掉首段后写入 dest。
// 任一条目越界时在写入任何文件之前返回 *SecurityError。
// sink 请求取消或 ctx 结束时返回 digest.ErrCancelled。
func (e *Extractor) Extract(ctx context.Context, archive modpack.Archive, dest, scope string, sink progress.Sink) error {
	if archive == nil {
		return nil
	}
	if sink == nil {
		sink = progress.Discard
	}
	prefix := strings.TrimSuffix(scope, "/") + "/"

	var items []extractItem
	for _, entry := range archive.Entries() {
		rel, ok := scopedRel(entry, prefix)
		if !ok {
			continue
		}
		target, err := SafeJoin(dest, rel)
		if err != nil {
			e.logger.WithFields(logrus.Fields{"scope": scope, "entry": entry.Name()}).Warn("override_entry_rejected")
			return err
		}
		items = append(items, extractItem{entry: entry, target: target})
	}
	if len(items) == 0 {
		return nil
	}

	sink.Log(fmt.Sprintf("Extracting %d %s override entries", len(items), scope))
	cancelled := func() bool { return ctx.Err() != nil || sink.Cancelled() }
	reader := digest.NewReader(nil, nil, nil)

	for i, item := range items {
		if cancelled() {
			return digest.ErrCancelled
		}
		if item.entry.IsDir() {
			if err := os.MkdirAll(item.target, 0o755); err != nil {
				return fmt.Errorf("create override dir %s: %w", item.target, err)
			}
		} else {
			n, err := e.writeEntry(item, reader, sink, cancelled)
			if err != nil {
				return err
			}
			e.logger.WithFields(logrus.Fields{
				"scope": scope,
				"entry": item.entry.Name(),
				"size":  humanize.Bytes(uint64(n)),
			}).Debug("override_entry_extracted")
		}
		sink.Overall(i+1, len(items))
	}
	return nil
}

// scopedRel 返回条目去掉作用域前缀后的相对路径。作用域根目录本身
// （如 "global/"、"global/./"）不对应任何写入，ok 为 false。
func scopedRel(entry modpack.Entry, prefix string) (string, bool) {
	rel, ok := strings.CutPrefix(entry.Name(), prefix)
	if !ok {
		return "", false
	}
	rel = strings.TrimSuffix(rel, "/")
	if strings.Trim(rel, "/") == "" {
		return "", false
	}
	if entry.IsDir() && path.Clean(rel) == "." {
		return "", false
	}
	return rel, true
}

// countScoped 返回 Extract 会处理的条目数。
func countScoped(archive modpack.Archive, scope string) int {
	if archive == nil {
		return 0
	}
	prefix := strings.TrimSuffix(scope, "/") + "/"
	n := 0
	for _, entry := range archive.Entries() {
		if _, ok := scopedRel(entry, prefix); ok {
			n++
		}
	}
	return n
}

func (e *Extractor) writeEntry(item extractItem, reader *digest.Reader, sink progress.Sink, cancelled func() bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(item.target), 0o755); err != nil {
		return 0, fmt.Errorf("create override parent: %w", err)
	}
	src, err := item.entry.Open()
	if err != nil {
		return 0, fmt.Errorf("open override %s: %w", item.entry.Name(), err)
	}
	defer src.Close()

	dst, err := os.OpenFile(item.target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create override %s: %w", item.target, err)
	}

	expected := item.entry.Size()
	reader.Reset(src, func(total int64) bool {
		sink.Item(total, expected)
		return !cancelled()
	})
	n, err := io.Copy(dst, reader)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if digest.IsCancelled(err) {
			return n, err
		}
		return n, fmt.Errorf("write override %s: %w", item.target, err)
	}
	return n, nil
}
