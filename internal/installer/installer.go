// Package installer 实现整合包安装任务：逐个文件决定跳过、复用本地文件、
// 命中内容寻址缓存或从镜像下载并校验，最后解压 override 条目。
//
// 任务在单个 goroutine 中顺序执行，通过 progress.Sink 汇报进度并轮询取消。
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/digest"
	"github.com/packhub/packhub/internal/logging"
	"github.com/packhub/packhub/internal/modpack"
	"github.com/packhub/packhub/internal/progress"
	"github.com/packhub/packhub/internal/transport"
)

// Status 是安装任务的生命周期状态。
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusSucceeded
	StatusSecurityAborted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusSecurityAborted:
		return "security_aborted"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Request 描述一次安装。Optional 的键为被用户选中的可选文件路径。
type Request struct {
	Manifest    *modpack.Manifest
	Destination string
	Side        modpack.Side
	Optional    map[string]bool
}

// Stats 汇总每个文件的处理结果。
type Stats struct {
	Installed       int
	Cached          int
	Present         int
	Skipped         int
	Failed          int
	BytesDownloaded int64
}

// Result 是任务结束时的状态与统计。
type Result struct {
	JobID       string
	Status      Status
	Stats       Stats
	FailedFiles []string
}

// Option 调整 Installer 行为。
type Option func(*Installer)

// WithPeers 设置对等 packhub 镜像，按顺序排在文件自身的下载地址之前，
// 以 <peer>/blobs/<hex> 的形式请求。
func WithPeers(peers []string) Option {
	return func(in *Installer) {
		in.peers = nil
		for _, p := range peers {
			if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
				in.peers = append(in.peers, p)
			}
		}
	}
}

// Installer 持有跨任务共享的缓存、下载器与日志。
type Installer struct {
	store     cache.Store
	fetcher   transport.Fetcher
	logger    *logrus.Logger
	extractor *Extractor
	peers     []string
}

// New 构造 Installer；logger 为 nil 时丢弃日志。
func New(store cache.Store, fetcher transport.Fetcher, logger *logrus.Logger, opts ...Option) *Installer {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	in := &Installer{
		store:     store,
		fetcher:   fetcher,
		logger:    logger,
		extractor: NewExtractor(logger),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Install 执行一次安装任务。
//
// 单个文件的所有镜像均失败不会使任务失败，只计入 Stats.Failed。
// 返回值约定：
//   - 成功：StatusSucceeded, nil
//   - 路径越界：StatusSecurityAborted, *SecurityError
//   - 取消：StatusCancelled, nil
//   - 文件系统或缓存写入错误：StatusFailed, err
func (in *Installer) Install(ctx context.Context, req Request, sink progress.Sink) (*Result, error) {
	if sink == nil {
		sink = progress.Discard
	}
	res := &Result{JobID: uuid.NewString(), Status: StatusCreated}

	if req.Manifest == nil {
		res.Status = StatusFailed
		return res, errors.New("install: manifest is required")
	}
	if strings.TrimSpace(req.Destination) == "" {
		res.Status = StatusFailed
		return res, errors.New("install: destination is required")
	}
	dest, err := filepath.Abs(req.Destination)
	if err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("install: resolve destination: %w", err)
	}

	j := &job{
		in:     in,
		ctx:    ctx,
		req:    req,
		dest:   dest,
		sink:   sink,
		res:    res,
		logger: in.logger.WithFields(logging.JobFields(res.JobID, dest, req.Side.ScopeDir())),
	}
	res.Status = StatusRunning
	j.logger.WithFields(logrus.Fields{"pack": req.Manifest.Name, "files": len(req.Manifest.Files)}).Info("install_started")

	err = j.run()
	switch {
	case err == nil:
		res.Status = StatusSucceeded
	case errors.Is(err, ErrUnsafePath):
		res.Status = StatusSecurityAborted
	case errors.Is(err, errCancelled), digest.IsCancelled(err):
		res.Status = StatusCancelled
		err = nil
	default:
		res.Status = StatusFailed
	}

	entry := j.logger.WithFields(logrus.Fields{
		"status":           res.Status.String(),
		"installed":        res.Stats.Installed,
		"cached":           res.Stats.Cached,
		"present":          res.Stats.Present,
		"skipped":          res.Stats.Skipped,
		"failed":           res.Stats.Failed,
		"bytes_downloaded": res.Stats.BytesDownloaded,
	})
	if err != nil {
		entry.WithError(err).Error("install_finished")
	} else {
		entry.Info("install_finished")
	}
	return res, err
}

type job struct {
	in     *Installer
	ctx    context.Context
	req    Request
	dest   string
	sink   progress.Sink
	res    *Result
	logger *logrus.Entry
}

func (j *job) cancelled() bool {
	return j.ctx.Err() != nil || j.sink.Cancelled()
}

func (j *job) run() error {
	if err := os.MkdirAll(j.dest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	files := j.req.Manifest.Files
	overrides := j.req.Manifest.Overrides
	scopes := []string{modpack.SideNone.ScopeDir()}
	if j.req.Side != modpack.SideNone {
		scopes = append(scopes, j.req.Side.ScopeDir())
	}
	// 文件与各作用域的 override 条目共用一个总数，整体进度单调递增
	total := len(files)
	for _, scope := range scopes {
		total += countScoped(overrides, scope)
	}

	j.sink.Log(fmt.Sprintf("Installing %s (%d files) into %s", packLabel(j.req.Manifest), len(files), j.dest))
	for i, f := range files {
		if j.cancelled() {
			return errCancelled
		}
		if err := j.installFile(f); err != nil {
			return err
		}
		j.sink.Overall(i+1, total)
	}

	done := len(files)
	for _, scope := range scopes {
		if j.cancelled() {
			return errCancelled
		}
		n := countScoped(overrides, scope)
		scoped := &offsetSink{Sink: j.sink, base: done, total: total}
		if err := j.in.extractor.Extract(j.ctx, overrides, j.dest, scope, scoped); err != nil {
			return err
		}
		done += n
	}

	stats := j.res.Stats
	j.sink.Log(fmt.Sprintf("Done: %d downloaded (%s), %d from cache, %d already present, %d skipped, %d failed",
		stats.Installed, humanize.Bytes(uint64(stats.BytesDownloaded)), stats.Cached, stats.Present, stats.Skipped, stats.Failed))
	return nil
}

func (j *job) installFile(f modpack.PackFile) error {
	log := j.logger.WithFields(logging.FileFields(f.Path, f.Size))

	switch j.req.Side {
	case modpack.SideClient, modpack.SideServer:
		switch f.CompatFor(j.req.Side) {
		case modpack.CompatUnsupported:
			j.res.Stats.Skipped++
			j.sink.Log(fmt.Sprintf("Skipping %s: not used on %s", f.Path, j.req.Side))
			log.Debug("install_file_unsupported")
			return nil
		case modpack.CompatOptional:
			if !j.req.Optional[f.Path] {
				j.res.Stats.Skipped++
				j.sink.Log("Skipping optional file " + f.Path)
				log.Info("install_file_optional_skipped")
				return nil
			}
		}
	}

	target, err := SafeJoin(j.dest, f.Path)
	if err != nil {
		log.WithError(err).Error("install_file_unsafe_path")
		j.sink.Log("Refusing unsafe path " + f.Path)
		return err
	}

	md, skipped := digest.ForExpected(f.Hashes)
	for _, name := range skipped {
		log.WithField("algorithm", name).Warn("install_hash_unsupported")
	}
	primary, ok := primaryHash(f.Hashes)
	if !ok {
		j.fail(f, target, log, "no supported hash declared")
		return nil
	}
	if first := f.Hashes[0].Algorithm; digest.NormalizeName(first) != primary.Algorithm {
		// 缓存键改用后续算法，与按首个声明摘要分片的布局不一致
		log.WithFields(logrus.Fields{"declared": first, "used": primary.Algorithm}).Warn("install_primary_hash_substituted")
		j.sink.Log(fmt.Sprintf("Warning: %s declares unsupported primary hash %s, keying cache by %s", f.Path, first, primary.Algorithm))
	}
	key := cache.Key(primary.Digest)

	present, err := j.alreadyPresent(target, f.Size, primary)
	if err != nil {
		return err
	}
	if present {
		j.res.Stats.Present++
		j.sink.Log(fmt.Sprintf("Skipping %s: already installed", f.Path))
		log.Debug("install_file_present")
		return nil
	}

	if _, hit := j.in.store.Locate(key, f.Size); hit {
		_, err := j.in.store.CopyTo(j.ctx, key, f.Size, target)
		switch {
		case err == nil:
			j.res.Stats.Cached++
			j.sink.Log("Copied " + f.Path + " from cache")
			log.Info("install_file_cached")
			return nil
		case j.cancelled():
			return errCancelled
		case !errors.Is(err, cache.ErrNotFound):
			return fmt.Errorf("copy %s from cache: %w", f.Path, err)
		}
	}

	for _, url := range j.mirrors(f, primary) {
		if j.cancelled() {
			return errCancelled
		}
		accepted, err := j.download(url, f, target, key, md, log)
		if err != nil {
			return err
		}
		if accepted {
			return nil
		}
	}
	j.fail(f, target, log, "all mirrors failed")
	return nil
}

func (j *job) mirrors(f modpack.PackFile, primary digest.Expected) []string {
	urls := make([]string, 0, len(j.in.peers)+len(f.Downloads))
	for _, peer := range j.in.peers {
		urls = append(urls, peer+"/blobs/"+digest.FormatHex(primary.Digest))
	}
	return append(urls, f.Downloads...)
}

// alreadyPresent 检查目标文件大小与主摘要，次要摘要不再复核。
func (j *job) alreadyPresent(target string, size int64, primary digest.Expected) (bool, error) {
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() || info.Size() != size {
		return false, nil
	}
	fh, err := os.Open(target)
	if err != nil {
		return false, nil
	}
	defer fh.Close()

	md, _ := digest.New(primary.Algorithm)
	r := digest.NewReader(fh, md, func(int64) bool { return !j.cancelled() })
	if _, err := io.Copy(io.Discard, r); err != nil {
		if digest.IsCancelled(err) {
			return false, errCancelled
		}
		return false, nil
	}
	return md.Verify([]digest.Expected{primary}) == nil, nil
}

// download 尝试从单个镜像获取文件。返回 accepted=false, err=nil 表示换下一个镜像。
func (j *job) download(url string, f modpack.PackFile, target string, key cache.Key, md *digest.MultiDigest, log *logrus.Entry) (bool, error) {
	mlog := log.WithFields(logrus.Fields{"url": url, "algorithms": md.Names()})
	body, err := j.in.fetcher.Fetch(j.ctx, url)
	if err != nil {
		if j.cancelled() {
			return false, errCancelled
		}
		j.sink.Log(fmt.Sprintf("Mirror %s failed for %s: %v", url, f.Path, err))
		mlog.WithError(err).Warn("install_mirror_failed")
		return false, nil
	}
	defer body.Close()

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create parent for %s: %w", f.Path, err)
	}
	tmp, err := os.CreateTemp(dir, ".packhub-*.part")
	if err != nil {
		return false, fmt.Errorf("create temp for %s: %w", f.Path, err)
	}
	tmpName := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpName)
		}
	}()

	j.sink.Log(fmt.Sprintf("Downloading %s (%s) from %s", f.Path, humanize.Bytes(uint64(f.Size)), url))
	progressFn := func(total int64) bool {
		j.sink.Item(total, f.Size)
		return !j.cancelled()
	}
	// 多读一个字节即可发现超长响应，无需读完整个 body
	limited := io.LimitReader(body, f.Size+1)
	md.Reset()
	n, err := io.Copy(tmp, digest.NewReader(limited, md, progressFn))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if digest.IsCancelled(err) || j.cancelled() {
			return false, errCancelled
		}
		j.sink.Log(fmt.Sprintf("Mirror %s failed for %s: %v", url, f.Path, err))
		mlog.WithError(err).Warn("install_mirror_failed")
		return false, nil
	}

	if n != f.Size {
		received := fmt.Sprintf("%d", n)
		if n > f.Size {
			received = fmt.Sprintf("more than %d", f.Size)
		}
		j.sink.Log(fmt.Sprintf("Rejected %s from %s: size mismatch (received %s bytes, declared %d)", f.Path, url, received, f.Size))
		mlog.WithFields(logrus.Fields{"reason": "size", "received": n}).Warn("install_mirror_rejected")
		return false, nil
	}
	if err := md.Verify(f.Hashes); err != nil {
		algorithm := "hash"
		var mismatch *digest.MismatchError
		if errors.As(err, &mismatch) {
			algorithm = mismatch.Algorithm
		}
		j.sink.Log(fmt.Sprintf("Rejected %s from %s: %s mismatch", f.Path, url, algorithm))
		mlog.WithError(err).WithField("reason", "hash").Warn("install_mirror_rejected")
		return false, nil
	}
	j.sink.Log(fmt.Sprintf("Verified %s (%s)", f.Path, strings.Join(md.Names(), ", ")))

	if _, err := j.in.store.Put(j.ctx, key, tmpName); err != nil {
		if j.cancelled() {
			return false, errCancelled
		}
		return false, fmt.Errorf("store %s in cache: %w", f.Path, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return false, fmt.Errorf("install %s: %w", f.Path, err)
	}
	keep = true

	j.res.Stats.Installed++
	j.res.Stats.BytesDownloaded += n
	j.sink.Log(fmt.Sprintf("Downloaded %s from %s", f.Path, url))
	mlog.Info("install_file_downloaded")
	return true, nil
}

// fail 记录一个无法安装的文件，并删除目标位置上残留的旧文件。
func (j *job) fail(f modpack.PackFile, target string, log *logrus.Entry, reason string) {
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("install_stale_remove_failed")
	}
	j.res.Stats.Failed++
	j.res.FailedFiles = append(j.res.FailedFiles, f.Path)
	j.sink.Log(fmt.Sprintf("Failed to install %s: %s", f.Path, reason))
	log.WithField("reason", reason).Error("install_file_failed")
}

// primaryHash 返回声明顺序中第一个已注册算法的摘要。
func primaryHash(hashes []digest.Expected) (digest.Expected, bool) {
	for _, h := range hashes {
		if digest.Supported(h.Algorithm) && len(h.Digest) > 0 {
			return digest.Expected{Algorithm: digest.NormalizeName(h.Algorithm), Digest: h.Digest}, true
		}
	}
	return digest.Expected{}, false
}

// offsetSink 把解压阶段的条目序号平移到整个任务的进度总数上。
type offsetSink struct {
	progress.Sink
	base  int
	total int
}

func (s *offsetSink) Overall(current, _ int) {
	s.Sink.Overall(s.base+current, s.total)
}

func packLabel(m *modpack.Manifest) string {
	switch {
	case m.Name != "" && m.Version != "":
		return m.Name + " " + m.Version
	case m.Name != "":
		return m.Name
	default:
		return "modpack"
	}
}
