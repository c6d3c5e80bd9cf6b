package digest

import (
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownAlgorithm 表示算法名称未注册。
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm 记录一个哈希算法的静态信息。
type Algorithm struct {
	Name string
	Size int
	New  func() hash.Hash
}

var globalRegistry = newRegistry()

type registry struct {
	mu         sync.RWMutex
	algorithms map[string]Algorithm
}

func newRegistry() *registry {
	return &registry{algorithms: make(map[string]Algorithm)}
}

// Register 将算法加入全局注册表，重复名称会返回错误。
func Register(alg Algorithm) error {
	return globalRegistry.register(alg)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(alg Algorithm) {
	if err := Register(alg); err != nil {
		panic(err)
	}
}

// Lookup 返回指定名称的算法，名称大小写不敏感。
func Lookup(name string) (Algorithm, bool) {
	return globalRegistry.resolve(name)
}

// Supported 报告算法是否已注册。
func Supported(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Names 返回所有已注册算法的名称，按字母序排列。
func Names() []string {
	return globalRegistry.names()
}

func (r *registry) register(alg Algorithm) error {
	key := NormalizeName(alg.Name)
	if key == "" {
		return fmt.Errorf("algorithm name is required")
	}
	if alg.New == nil {
		return fmt.Errorf("algorithm %s has no constructor", key)
	}
	alg.Name = key
	if alg.Size == 0 {
		alg.Size = alg.New().Size()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.algorithms[key]; exists {
		return fmt.Errorf("algorithm %s already registered", key)
	}
	r.algorithms[key] = alg
	return nil
}

func (r *registry) resolve(name string) (Algorithm, bool) {
	key := NormalizeName(name)
	if key == "" {
		return Algorithm{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	alg, ok := r.algorithms[key]
	return alg, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.algorithms) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeName 统一算法名称：小写并去除首尾空白。
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
