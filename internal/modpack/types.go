package modpack

import (
	"fmt"
	"io"
	"strings"

	"github.com/packhub/packhub/internal/digest"
)

// Side 表示安装目标：客户端、服务端，或二者皆非（global）。
type Side string

const (
	SideNone   Side = ""
	SideClient Side = "client"
	SideServer Side = "server"
)

// ParseSide 解析 client/server，空串与 global 视为 SideNone。
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "global", "none":
		return SideNone, nil
	case string(SideClient):
		return SideClient, nil
	case string(SideServer):
		return SideServer, nil
	default:
		return SideNone, fmt.Errorf("unsupported side %q (want client|server)", raw)
	}
}

// ScopeDir 返回 override 归档中该 side 对应的顶层目录名。
func (s Side) ScopeDir() string {
	if s == SideNone {
		return "global"
	}
	return string(s)
}

func (s Side) String() string {
	return s.ScopeDir()
}

// Compat 描述文件在某个 side 上的兼容性。
type Compat string

const (
	CompatRequired    Compat = "required"
	CompatOptional    Compat = "optional"
	CompatUnsupported Compat = "unsupported"
)

// ParseCompat 解析兼容性标签，未知值返回错误。
func ParseCompat(raw string) (Compat, error) {
	switch Compat(strings.ToLower(strings.TrimSpace(raw))) {
	case CompatRequired:
		return CompatRequired, nil
	case CompatOptional:
		return CompatOptional, nil
	case CompatUnsupported:
		return CompatUnsupported, nil
	default:
		return "", fmt.Errorf("unsupported compatibility %q", raw)
	}
}

// PackFile 是清单中的一个远程文件引用。Hashes 保持声明顺序，第一个为主摘要。
type PackFile struct {
	Path      string
	Env       map[Side]Compat
	Size      int64
	Hashes    []digest.Expected
	Downloads []string
}

// CompatFor 返回文件在 side 上的兼容性；未声明时视为 required。
func (f PackFile) CompatFor(side Side) Compat {
	if side == SideNone || f.Env == nil {
		return CompatRequired
	}
	if c, ok := f.Env[side]; ok {
		return c
	}
	return CompatRequired
}

// Primary 返回主摘要（声明的第一个）。
func (f PackFile) Primary() (digest.Expected, bool) {
	if len(f.Hashes) == 0 {
		return digest.Expected{}, false
	}
	return f.Hashes[0], true
}

// Entry 是 override 归档中的一个条目。Name 使用 '/' 分隔，
// 以 global/、client/ 或 server/ 开头。
type Entry interface {
	Name() string
	IsDir() bool
	Size() int64
	Open() (io.ReadCloser, error)
}

// Archive 提供有序的 override 条目列表。
type Archive interface {
	Entries() []Entry
}

// Manifest 是一次安装所需的全部输入。
type Manifest struct {
	Name      string
	Version   string
	Game      string
	Files     []PackFile
	Overrides Archive
	// Dependencies 记录加载器等运行时依赖，安装引擎不解释它们。
	Dependencies map[string]string
}

// OptionalFiles 返回在 side 上为 optional 的文件路径，供调用方展示选择项。
func (m *Manifest) OptionalFiles(side Side) []string {
	if m == nil {
		return nil
	}
	var paths []string
	for _, f := range m.Files {
		if f.CompatFor(side) == CompatOptional {
			paths = append(paths, f.Path)
		}
	}
	return paths
}
