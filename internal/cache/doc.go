// Package cache implements the process-wide content-addressed blob store.
// Entries are keyed by the primary digest of a file's content and live at
// <root>/<hex[0:2]>/<hex[2:4]>/<hex[4:]>; the layout is shared with caches
// written by earlier runs and must not change. Writes go through a temp file
// in the shard directory followed by rename, so concurrent jobs populating
// the same key never observe a torn blob. Reads are lock-free; an entry whose
// size differs from the caller's expectation is reported as absent.
package cache
