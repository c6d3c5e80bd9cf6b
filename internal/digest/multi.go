package digest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// ErrMismatch 表示计算得到的摘要与声明值不一致。
var ErrMismatch = errors.New("digest mismatch")

// MismatchError 描述某个算法的摘要不一致，Unwrap 返回 ErrMismatch 以便 errors.Is 分类。
type MismatchError struct {
	Algorithm string
	Expected  []byte
	Got       []byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Algorithm, hex.EncodeToString(e.Expected), hex.EncodeToString(e.Got))
}

// Unwrap 返回 ErrMismatch。
func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Expected 是一条声明的摘要：算法名 + 期望字节。
type Expected struct {
	Algorithm string
	Digest    []byte
}

// MultiDigest 对同一字节流并行维护多个独立的哈希状态。
// 零值不可用，需通过 New 构造；不支持并发写入。
type MultiDigest struct {
	names  []string
	states []hash.Hash
	sums   [][]byte
	fresh  []bool
}

// New 按给定顺序构造 MultiDigest，重复名称只保留一次。
// 传入零个名称时得到一个只计数不哈希的 MultiDigest。
func New(names ...string) (*MultiDigest, error) {
	m := &MultiDigest{}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		alg, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
		}
		if _, dup := seen[alg.Name]; dup {
			continue
		}
		seen[alg.Name] = struct{}{}
		m.names = append(m.names, alg.Name)
		m.states = append(m.states, alg.New())
		m.sums = append(m.sums, make([]byte, 0, alg.Size))
		m.fresh = append(m.fresh, false)
	}
	return m, nil
}

// ForExpected 为一组声明摘要构造 MultiDigest，只包含已注册的算法。
// skipped 返回被忽略的未知算法名。
func ForExpected(expected []Expected) (m *MultiDigest, skipped []string) {
	names := make([]string, 0, len(expected))
	for _, exp := range expected {
		if Supported(exp.Algorithm) {
			names = append(names, exp.Algorithm)
			continue
		}
		skipped = append(skipped, NormalizeName(exp.Algorithm))
	}
	m, _ = New(names...)
	return m, skipped
}

// Write 将 p 同时写入所有哈希状态，始终返回 len(p), nil。
func (m *MultiDigest) Write(p []byte) (int, error) {
	for i, state := range m.states {
		state.Write(p)
		m.fresh[i] = false
	}
	return len(p), nil
}

// Reset 重置全部哈希状态以便复用，不重新分配。
func (m *MultiDigest) Reset() {
	for i, state := range m.states {
		state.Reset()
		m.fresh[i] = false
	}
}

// Names 返回参与计算的算法名称，顺序与构造时一致。
func (m *MultiDigest) Names() []string {
	return append([]string(nil), m.names...)
}

// Sum 返回指定算法当前的摘要；算法不在集合内时返回 nil, false。
// 返回的切片在下一次 Write/Reset 后失效，需要保留时请复制。
func (m *MultiDigest) Sum(name string) ([]byte, bool) {
	key := NormalizeName(name)
	for i, n := range m.names {
		if n != key {
			continue
		}
		if !m.fresh[i] {
			m.sums[i] = m.states[i].Sum(m.sums[i][:0])
			m.fresh[i] = true
		}
		return m.sums[i], true
	}
	return nil, false
}

// Verify 逐个比较声明的摘要，任何一个不一致都会返回 *MismatchError。
// 未参与计算的算法被忽略，由 ForExpected 的 skipped 告知调用方。
func (m *MultiDigest) Verify(expected []Expected) error {
	for _, exp := range expected {
		got, ok := m.Sum(exp.Algorithm)
		if !ok {
			continue
		}
		if !bytes.Equal(got, exp.Digest) {
			return &MismatchError{
				Algorithm: NormalizeName(exp.Algorithm),
				Expected:  append([]byte(nil), exp.Digest...),
				Got:       append([]byte(nil), got...),
			}
		}
	}
	return nil
}
