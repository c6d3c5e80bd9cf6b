package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// itemInterval 限制单个文件字节进度的刷新频率。
const itemInterval = 500 * time.Millisecond

// consolePrinter 在 Dispatcher 的消费 goroutine 中渲染安装进度。
type consolePrinter struct {
	w        io.Writer
	lastItem time.Time
}

func newConsolePrinter(w io.Writer) *consolePrinter {
	return &consolePrinter{w: w}
}

func (p *consolePrinter) Log(line string) {
	fmt.Fprintln(p.w, line)
}

func (p *consolePrinter) Overall(current, total int) {
	fmt.Fprintf(p.w, "[%d/%d]\n", current, total)
}

func (p *consolePrinter) Item(done, expected int64) {
	if done < expected && time.Since(p.lastItem) < itemInterval {
		return
	}
	p.lastItem = time.Now()
	fmt.Fprintf(p.w, "  %s / %s\n", humanize.Bytes(uint64(done)), humanize.Bytes(uint64(expected)))
}
