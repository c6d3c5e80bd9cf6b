package modpack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/packhub/packhub/internal/digest"
)

// IndexName 是 .mrpack 归档中的清单文件名。
const IndexName = "modrinth.index.json"

// ErrInvalidPack 表示归档不是合法的 .mrpack。
var ErrInvalidPack = errors.New("invalid modpack")

// overridePrefixes 将归档目录映射到 override 作用域。
var overridePrefixes = []struct {
	dir   string
	scope Side
}{
	{dir: "overrides/", scope: SideNone},
	{dir: "client-overrides/", scope: SideClient},
	{dir: "server-overrides/", scope: SideServer},
}

// Pack 是一个已打开的 .mrpack 归档，Close 释放底层文件句柄。
type Pack struct {
	Manifest Manifest
	rc       *zip.ReadCloser
}

// Close 关闭归档。
func (p *Pack) Close() error {
	if p == nil || p.rc == nil {
		return nil
	}
	return p.rc.Close()
}

// Open 读取 path 指向的 .mrpack 并解析清单与 override 条目。
func Open(path string) (*Pack, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open modpack %s: %w", path, err)
	}
	manifest, err := parse(&rc.Reader)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Pack{Manifest: *manifest, rc: rc}, nil
}

func parse(zr *zip.Reader) (*Manifest, error) {
	var indexFile *zip.File
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.Name == IndexName {
			indexFile = f
			continue
		}
		if entry, ok := overrideEntry(f); ok {
			entries = append(entries, entry)
		}
	}
	if indexFile == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPack, IndexName)
	}

	r, err := indexFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", IndexName, err)
	}
	defer r.Close()

	var idx index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidPack, IndexName, err)
	}
	manifest, err := idx.manifest()
	if err != nil {
		return nil, err
	}
	manifest.Overrides = entryList(entries)
	return manifest, nil
}

func overrideEntry(f *zip.File) (Entry, bool) {
	name := strings.ReplaceAll(f.Name, "\\", "/")
	for _, p := range overridePrefixes {
		rest, ok := strings.CutPrefix(name, p.dir)
		if !ok || strings.Trim(rest, "/") == "" {
			continue
		}
		return &zipEntry{name: p.scope.ScopeDir() + "/" + rest, file: f}, true
	}
	return nil, false
}

type zipEntry struct {
	name string
	file *zip.File
}

func (e *zipEntry) Name() string { return e.name }

func (e *zipEntry) IsDir() bool {
	return strings.HasSuffix(e.name, "/") || e.file.FileInfo().IsDir()
}

func (e *zipEntry) Size() int64 { return int64(e.file.UncompressedSize64) }

func (e *zipEntry) Open() (io.ReadCloser, error) { return e.file.Open() }

type entryList []Entry

func (l entryList) Entries() []Entry { return l }

// index 对应 modrinth.index.json 的结构。
type index struct {
	FormatVersion int               `json:"formatVersion"`
	Game          string            `json:"game"`
	VersionID     string            `json:"versionId"`
	Name          string            `json:"name"`
	Files         []indexFile       `json:"files"`
	Dependencies  map[string]string `json:"dependencies"`
}

type indexFile struct {
	Path      string            `json:"path"`
	Hashes    orderedHashes     `json:"hashes"`
	Env       map[string]string `json:"env"`
	Downloads []string          `json:"downloads"`
	FileSize  int64             `json:"fileSize"`
}

func (idx *index) manifest() (*Manifest, error) {
	if idx.FormatVersion != 1 {
		return nil, fmt.Errorf("%w: unsupported formatVersion %d", ErrInvalidPack, idx.FormatVersion)
	}
	m := &Manifest{
		Name:         idx.Name,
		Version:      idx.VersionID,
		Game:         idx.Game,
		Dependencies: idx.Dependencies,
		Files:        make([]PackFile, 0, len(idx.Files)),
	}
	for i, f := range idx.Files {
		file, err := f.packFile()
		if err != nil {
			return nil, fmt.Errorf("%w: files[%d]: %v", ErrInvalidPack, i, err)
		}
		m.Files = append(m.Files, file)
	}
	return m, nil
}

func (f indexFile) packFile() (PackFile, error) {
	if strings.TrimSpace(f.Path) == "" {
		return PackFile{}, errors.New("empty path")
	}
	if f.FileSize < 0 {
		return PackFile{}, fmt.Errorf("%s: negative fileSize", f.Path)
	}
	file := PackFile{
		Path:      f.Path,
		Size:      f.FileSize,
		Downloads: f.Downloads,
		Hashes:    make([]digest.Expected, 0, len(f.Hashes)),
	}
	for _, h := range f.Hashes {
		sum, err := digest.ParseHex(h.value)
		if err != nil {
			return PackFile{}, fmt.Errorf("%s: hash %s: %w", f.Path, h.name, err)
		}
		name := digest.NormalizeName(h.name)
		if alg, ok := digest.Lookup(name); ok && len(sum) != alg.Size {
			return PackFile{}, fmt.Errorf("%s: hash %s has %d bytes, want %d", f.Path, name, len(sum), alg.Size)
		}
		file.Hashes = append(file.Hashes, digest.Expected{Algorithm: name, Digest: sum})
	}
	if len(f.Env) > 0 {
		file.Env = make(map[Side]Compat, len(f.Env))
		for rawSide, rawCompat := range f.Env {
			side, err := ParseSide(rawSide)
			if err != nil || side == SideNone {
				continue
			}
			compat, err := ParseCompat(rawCompat)
			if err != nil {
				return PackFile{}, fmt.Errorf("%s: env %s: %w", f.Path, rawSide, err)
			}
			file.Env[side] = compat
		}
	}
	return file, nil
}

type namedHash struct {
	name  string
	value string
}

// orderedHashes 保留 JSON 对象中键的声明顺序。
type orderedHashes []namedHash

func (h *orderedHashes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*h = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("hashes: expected object, got %v", tok)
	}
	var out orderedHashes
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("hashes.%s: %w", key, err)
		}
		out = append(out, namedHash{name: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*h = out
	return nil
}
