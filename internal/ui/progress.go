// Package ui renders per-item download progress.
package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Reporter creates a tracker per gallery item.
type Reporter interface {
	Track(name string, total int) Tracker
}

// Tracker follows the pages of one item.
type Tracker interface {
	// Page records one finished page and the bytes written for it. Skipped
	// pages report zero bytes.
	Page(bytes int)
	// Done marks the item complete.
	Done()
	// Abort stops the bar, leaving it on screen.
	Abort()
}

// Progress draws one bar per item.
type Progress struct {
	p *mpb.Progress
}

// NewProgress creates a progress container writing to w. Bars only render
// when w is a terminal unless opts include mpb.WithAutoRefresh.
func NewProgress(w io.Writer, opts ...mpb.ContainerOption) *Progress {
	base := []mpb.ContainerOption{
		mpb.WithWidth(48),
		mpb.WithOutput(w),
		mpb.WithRefreshRate(120 * time.Millisecond),
	}
	return &Progress{p: mpb.New(append(base, opts...)...)}
}

// Wait flushes and stops rendering. It must be called once every tracker is
// done or aborted.
func (p *Progress) Wait() {
	p.p.Wait()
}

// Track adds a bar for an item with total pages.
func (p *Progress) Track(name string, total int) Tracker {
	b := &bar{}
	b.bar = p.p.New(int64(total),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name+"  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d pages", decor.WCSyncWidth),
			decor.Any(func(decor.Statistics) string {
				return fmt.Sprintf(" | % .1f", decor.SizeB1024(b.bytes.Load()))
			}),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
	)
	return b
}

type bar struct {
	bar   *mpb.Bar
	bytes atomic.Int64
}

func (b *bar) Page(n int) {
	b.bytes.Add(int64(n))
	b.bar.Increment()
}

func (b *bar) Done() {
	b.bar.SetTotal(-1, true)
}

func (b *bar) Abort() {
	b.bar.Abort(false)
}

// Discard is a Reporter that draws nothing.
type Discard struct{}

func (Discard) Track(string, int) Tracker { return discardTracker{} }

type discardTracker struct{}

func (discardTracker) Page(int) {}
func (discardTracker) Done()    {}
func (discardTracker) Abort()   {}
