package indent

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// StyleSource answers indentation style queries, typically by asking the
// Guile backend how a macro was declared.
type StyleSource interface {
	IndentStyle(ctx context.Context, symbol string) (string, error)
}

// Hints caches per-symbol styles learned from a StyleSource. Lookups run in
// the background; a format pass only ever reads a snapshot, so an answer is
// observed on a later pass.
type Hints struct {
	src     StyleSource
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	styles  map[string]Style
	pending map[string]bool
	wg      sync.WaitGroup
}

// HintsOption configures Hints.
type HintsOption func(*Hints)

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) HintsOption {
	return func(h *Hints) { h.timeout = d }
}

// WithLogger sets the logger for failed lookups.
func WithLogger(l *slog.Logger) HintsOption {
	return func(h *Hints) { h.logger = l }
}

// NewHints returns an empty cache backed by src. src may be nil, in which
// case only styles added with Set are known.
func NewHints(src StyleSource, opts ...HintsOption) *Hints {
	h := &Hints{
		src:     src,
		timeout: 2 * time.Second,
		logger:  slog.Default(),
		styles:  make(map[string]Style),
		pending: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Snapshot returns a copy of the cached styles.
func (h *Hints) Snapshot() map[string]Style {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.styles)
}

// Set records a style for symbol.
func (h *Hints) Set(symbol string, s Style) {
	h.mu.Lock()
	h.styles[symbol] = s
	h.mu.Unlock()
}

// Request starts a background lookup for symbol unless one is cached or in
// flight. It never blocks on the source. A failed lookup caches align so
// the backend is not asked again.
func (h *Hints) Request(symbol string) {
	if h.src == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.styles[symbol]; ok || h.pending[symbol] {
		h.mu.Unlock()
		return
	}
	h.pending[symbol] = true
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		name, err := h.src.IndentStyle(ctx, symbol)
		style := StyleAlign
		if err != nil {
			h.logger.Debug("indent style lookup failed", "symbol", symbol, "error", err)
		} else if s, ok := ParseStyle(name); ok {
			style = s
		} else {
			h.logger.Debug("unknown indent style", "symbol", symbol, "style", name)
		}

		h.mu.Lock()
		delete(h.pending, symbol)
		h.styles[symbol] = style
		h.mu.Unlock()
	}()
}

// Wait blocks until every lookup started so far has finished.
func (h *Hints) Wait() {
	h.wg.Wait()
}
