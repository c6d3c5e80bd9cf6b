package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"
)

var repoRoot string

func init() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			repoRoot = dir
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func projectRoot(t *testing.T) string {
	t.Helper()
	if repoRoot == "" {
		t.Fatal("无法定位项目根目录")
	}
	return repoRoot
}

func configFixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "internal", "config", "testdata", name)
}

// useBufferWriters swaps stdOut/stdErr with in-memory buffers for the duration
// of a test, allowing assertions on CLI output without polluting test logs.
func useBufferWriters(t *testing.T) {
	t.Helper()

	prevOut := stdOut
	prevErr := stdErr

	stdOut = &bytes.Buffer{}
	stdErr = &bytes.Buffer{}

	t.Cleanup(func() {
		stdOut = prevOut
		stdErr = prevErr
	})
}

// stdOutBuffer returns the in-use stdout buffer when useBufferWriters is active.
func stdOutBuffer() *bytes.Buffer {
	buf, _ := stdOut.(*bytes.Buffer)
	return buf
}

// stdErrBuffer returns the in-use stderr buffer when useBufferWriters is active.
func stdErrBuffer() *bytes.Buffer {
	buf, _ := stdErr.(*bytes.Buffer)
	return buf
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packhub.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

// writeMrpack 生成一个最小的 .mrpack 归档。
func writeMrpack(t *testing.T, index string, overrides map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.mrpack")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create pack: %v", err)
	}
	zw := zip.NewWriter(out)
	files := map[string]string{"modrinth.index.json": index}
	for name, body := range overrides {
		files[name] = body
	}
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close pack: %v", err)
	}
	return path
}
