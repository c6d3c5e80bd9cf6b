package digest

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestReaderHashesAndCounts(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 1000)
	m, err := New("sha1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var calls int
	var last int64
	r := NewReader(iotest.HalfReader(bytes.NewReader(payload)), m, func(total int64) bool {
		calls++
		if total < last {
			t.Fatalf("progress went backwards: %d < %d", total, last)
		}
		last = total
		return true
	})

	n, err := io.Copy(io.Discard, r)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if n != int64(len(payload)) || r.Count() != n {
		t.Fatalf("count mismatch: copied %d, counted %d", n, r.Count())
	}
	if last != n {
		t.Fatalf("final progress %d, want %d", last, n)
	}
	if calls < 2 {
		t.Fatalf("expected progress per chunk, got %d calls", calls)
	}

	want := sha1.Sum(payload)
	got, _ := r.Digest().Sum("sha1")
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("sha1 = %x, want %x", got, want)
	}
}

func TestReaderCancelStopsConsumption(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64*1024)
	src := iotest.OneByteReader(bytes.NewReader(payload))

	r := NewReader(src, nil, func(total int64) bool {
		return total < 100
	})

	n, err := io.Copy(io.Discard, r)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !IsCancelled(err) {
		t.Fatalf("IsCancelled should report true")
	}
	if n != 100 {
		t.Fatalf("expected consumption to stop at 100 bytes, got %d", n)
	}
	if _, err := r.Read(make([]byte, 10)); !errors.Is(err, ErrCancelled) {
		t.Fatalf("subsequent reads should keep returning ErrCancelled, got %v", err)
	}
}

func TestReaderResetReusesDigest(t *testing.T) {
	m, _ := New("sha1")
	r := NewReader(bytes.NewReader([]byte("one")), m, nil)
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("copy: %v", err)
	}

	r.Reset(bytes.NewReader([]byte("two")), nil)
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatalf("copy: %v", err)
	}
	want := sha1.Sum([]byte("two"))
	got, _ := m.Sum("sha1")
	if !bytes.Equal(got, want[:]) || r.Count() != 3 {
		t.Fatalf("reset reader produced sha1=%x count=%d", got, r.Count())
	}
}
