package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

const (
	progressBarWidth = 32
	redrawInterval   = 100 * time.Millisecond
)

// TextProgress renders a single-line bar, redrawing in place. Redraws
// are throttled so a tight update loop does not flood the terminal.
type TextProgress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int64
	current  int64
	started  time.Time
	lastDraw time.Time
	failed   bool
}

// NewProgressReporter returns a reporter writing to w. A nil w falls
// back to os.Stderr so data on stdout stays clean.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &TextProgress{w: w}
}

// Start begins a new bar with the given total. A total of zero disables
// rendering; updates still count but nothing is drawn.
func (p *TextProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()
	p.lastDraw = time.Time{}
	p.failed = false
	p.draw(true)
}

// Update advances the bar to current.
func (p *TextProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.draw(false)
}

// Finish completes the bar and terminates the line. After a reported
// error it does nothing, so the error stays the last output.
func (p *TextProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed || p.total <= 0 {
		return
	}
	p.current = p.total
	p.draw(true)
	fmt.Fprintln(p.w)
}

// Error breaks the bar line and reports err.
func (p *TextProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed = true
	fmt.Fprintf(p.w, "\n✗ %v\n", err)
}

// draw redraws the bar. Unforced draws are skipped while the previous
// one is newer than redrawInterval.
func (p *TextProgress) draw(force bool) {
	if p.total <= 0 {
		return
	}
	now := time.Now()
	if !force && now.Sub(p.lastDraw) < redrawInterval {
		return
	}
	p.lastDraw = now

	done := p.current
	if done > p.total {
		done = p.total
	}
	filled := int(int64(progressBarWidth) * done / p.total)
	bar := strings.Repeat("=", filled)
	if filled < progressBarWidth {
		bar += ">" + strings.Repeat(" ", progressBarWidth-filled-1)
	}

	elapsed := time.Since(p.started).Round(100 * time.Millisecond)
	fmt.Fprintf(p.w, "\r[%s] %d/%d (%s)", bar, done, p.total, elapsed)
}
