// Package progress defines the channel between an install job and whoever
// drives it: narration lines, overall unit progress, per-item byte progress,
// and a cancellation poll the job checks at its suspension points.
package progress

import "sync/atomic"

// Sink receives job events. Implementations must be safe to call from the
// job's worker goroutine.
type Sink interface {
	// Log receives one human-readable narration line.
	Log(line string)
	// Overall reports unit progress: current of total files or override entries.
	Overall(current, total int)
	// Item reports byte progress of the file or entry being transferred.
	Item(done, expected int64)
	// Cancelled reports whether the job should stop.
	Cancelled() bool
}

// Token is a cooperative cancellation flag.
type Token struct {
	flag atomic.Bool
}

// Cancel marks the token as cancelled. Safe for concurrent use.
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel was called.
func (t *Token) Cancelled() bool {
	return t != nil && t.flag.Load()
}

// Discard is a Sink that drops every event and is never cancelled.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(string)        {}
func (discard) Overall(int, int)  {}
func (discard) Item(int64, int64) {}
func (discard) Cancelled() bool   { return false }

// Multi fans events out to several sinks. It is cancelled as soon as any
// member is.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return multi(filtered)
}

type multi []Sink

func (m multi) Log(line string) {
	for _, s := range m {
		s.Log(line)
	}
}

func (m multi) Overall(current, total int) {
	for _, s := range m {
		s.Overall(current, total)
	}
}

func (m multi) Item(done, expected int64) {
	for _, s := range m {
		s.Item(done, expected)
	}
}

func (m multi) Cancelled() bool {
	for _, s := range m {
		if s.Cancelled() {
			return true
		}
	}
	return false
}

// NewTokenSink returns a Sink that discards events and reports token's state.
func NewTokenSink(token *Token) Sink {
	return tokenSink{token: token}
}

type tokenSink struct {
	discard
	token *Token
}

func (s tokenSink) Cancelled() bool { return s.token.Cancelled() }
