package indent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeSource answers from a fixed table and counts queries.
type fakeSource struct {
	mu      sync.Mutex
	styles  map[string]string
	calls   map[string]int
	err     error
	blockOn chan struct{}
}

func newFakeSource(styles map[string]string) *fakeSource {
	return &fakeSource{styles: styles, calls: make(map[string]int)}
}

func (s *fakeSource) IndentStyle(ctx context.Context, symbol string) (string, error) {
	s.mu.Lock()
	s.calls[symbol]++
	block, err := s.blockOn, s.err
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if style, ok := s.styles[symbol]; ok {
		return style, nil
	}
	return "none", nil
}

func (s *fakeSource) count(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

func TestHints_LearnedOnLaterPass(t *testing.T) {
	t.Parallel()
	src := newFakeSource(map[string]string{"my-macro": "body"})
	h := NewHints(src)
	f := New(WithHints(h))
	in := "(my-macro a\nb)"

	// The first pass does not wait for the backend.
	assert.Equal(t, "(my-macro a\n          b)", format(t, f, in))
	h.Wait()
	assert.Equal(t, "(my-macro a\n  b)", format(t, f, in))

	format(t, f, in)
	h.Wait()
	assert.Equal(t, 1, src.count("my-macro"))
	assert.Zero(t, src.count("define"), "static body forms are never queried")
}

func TestHints_NoneIsAlign(t *testing.T) {
	t.Parallel()
	src := newFakeSource(nil)
	h := NewHints(src)
	h.Request("frob")
	h.Request("frob")
	h.Wait()
	assert.Equal(t, map[string]Style{"frob": StyleAlign}, h.Snapshot())
	assert.Equal(t, 1, src.count("frob"))
}

func TestHints_FailureDegradesToAlign(t *testing.T) {
	t.Parallel()
	src := newFakeSource(nil)
	src.err = errors.New("backend down")
	h := NewHints(src)
	f := New(WithHints(h))

	assert.Equal(t, "(frob a\n      b)", format(t, f, "(frob a\nb)"))
	h.Wait()
	assert.Equal(t, "(frob a\n      b)", format(t, f, "(frob a\nb)"))
	h.Wait()
	assert.Equal(t, 1, src.count("frob"))
}

func TestHints_FormatNeverBlocks(t *testing.T) {
	t.Parallel()
	src := newFakeSource(map[string]string{"slow": "body"})
	src.blockOn = make(chan struct{})
	h := NewHints(src, WithTimeout(50*time.Millisecond))
	f := New(WithHints(h))

	done := make(chan string)
	go func() { done <- format(t, f, "(slow a\nb)") }()
	select {
	case out := <-done:
		assert.Equal(t, "(slow a\n      b)", out)
	case <-time.After(5 * time.Second):
		t.Fatal("format waited on the style source")
	}

	h.Wait()
	assert.Equal(t, StyleAlign, h.Snapshot()["slow"], "timed out lookups fall back to align")
}

func TestHints_NilSource(t *testing.T) {
	t.Parallel()
	h := NewHints(nil)
	h.Request("anything")
	h.Wait()
	assert.Empty(t, h.Snapshot())

	h.Set("mine", StyleBody)
	assert.Equal(t, "(mine a\n  b)", format(t, New(WithHints(h)), "(mine a\nb)"))
}

func TestParseStyle(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]Style{"body": StyleBody, "BODY": StyleBody, "none": StyleAlign, "align": StyleAlign} {
		got, ok := ParseStyle(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseStyle("sideways")
	assert.False(t, ok)
}
