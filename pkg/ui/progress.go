package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	progressWidth = 20
)

// Progress tracks a batch of concurrent lookups and redraws a single status
// line on the error writer
type Progress struct {
	mu        sync.Mutex
	printer   *Printer
	total     int
	completed int
	failed    int
	startTime time.Time
	live      bool
}

// NewProgress starts tracking total items. The line is only drawn when the
// error writer is a terminal and the printer is not quiet.
func (p *Printer) NewProgress(total int) *Progress {
	return &Progress{
		printer:   p,
		total:     total,
		startTime: time.Now(),
		live:      !p.quiet && IsTerminal(p.errOut),
	}
}

// Add records one finished item
func (pr *Progress) Add(ok bool) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if ok {
		pr.completed++
	} else {
		pr.failed++
	}
	if pr.live {
		pr.printer.mu.Lock()
		fmt.Fprintf(pr.printer.errOut, "\r%s", pr.line())
		pr.printer.mu.Unlock()
	}
}

// Bar returns the progress bar for the items seen so far
func (pr *Progress) Bar() string {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.bar()
}

// Counts returns completed and failed items
func (pr *Progress) Counts() (completed, failed int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.completed, pr.failed
}

// Finish ends the status line and prints a summary
func (pr *Progress) Finish() {
	pr.mu.Lock()
	completed, failed, elapsed := pr.completed, pr.failed, time.Since(pr.startTime)
	live := pr.live
	pr.mu.Unlock()

	if live {
		pr.printer.println(pr.printer.errOut, "")
	}
	if failed > 0 {
		pr.printer.Warning("%d of %d failed (%s)", failed, pr.total, elapsed.Round(time.Millisecond))
		return
	}
	pr.printer.Success("%d fetched in %s", completed, elapsed.Round(time.Millisecond))
}

func (pr *Progress) bar() string {
	done := pr.completed + pr.failed
	filled := 0
	if pr.total > 0 {
		filled = done * progressWidth / pr.total
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, progressWidth-filled),
		done, pr.total)
}

func (pr *Progress) line() string {
	status := pr.printer.success.Render(fmt.Sprintf("%d ok", pr.completed))
	if pr.failed > 0 {
		status += " " + pr.printer.failure.Render(fmt.Sprintf("%d failed", pr.failed))
	}
	return pr.bar() + " " + status
}
