package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ProgressSnapshot is a point-in-time view of everything the §4.6 progress
// contract requires: overall percent, memory, per-worker detail, global
// average, and ETA.
type ProgressSnapshot struct {
	RunID         uuid.UUID
	Percent       float64
	BytesDone     int64
	FileSize      int64
	Elapsed       time.Duration
	ETA           time.Duration
	GlobalAvgMS   float64
	Workers       []Snapshot
	MemAllocBytes uint64
}

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	slowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	fastStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	averageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// ProgressReporter renders ProgressSnapshots to an io.Writer, throttled to
// at most once per interval (spec.md §4.6: "at most once per 1000ms").
type ProgressReporter struct {
	w          io.Writer
	interval   time.Duration
	lastRender time.Time
	clear      bool
}

// NewProgressReporter returns a reporter that clears the terminal between
// renders when clear is true (disabled for --json / --no-progress modes and
// for non-terminal stdout).
func NewProgressReporter(w io.Writer, clear bool) *ProgressReporter {
	return &ProgressReporter{w: w, interval: time.Second, clear: clear}
}

// MaybeRender renders snap only if at least one interval has elapsed since
// the last render.
func (p *ProgressReporter) MaybeRender(snap ProgressSnapshot) {
	now := time.Now()
	if !p.lastRender.IsZero() && now.Sub(p.lastRender) < p.interval {
		return
	}
	p.lastRender = now
	p.render(snap)
}

func (p *ProgressReporter) render(snap ProgressSnapshot) {
	var b strings.Builder

	if p.clear {
		b.WriteString("\033[H\033[2J")
	}

	b.WriteString(headingStyle.Render(fmt.Sprintf("primehunter  run=%s", snap.RunID)))
	b.WriteString("\n\n")
	b.WriteString(renderBar(snap.Percent, 40))
	b.WriteString(fmt.Sprintf("  %.1f%%\n", snap.Percent*100))
	b.WriteString(fmt.Sprintf("bytes:    %s / %s\n", humanize.Bytes(uint64(snap.BytesDone)), humanize.Bytes(uint64(snap.FileSize))))
	b.WriteString(fmt.Sprintf("elapsed:  %s   eta: %s\n", snap.Elapsed.Round(time.Millisecond), snap.ETA.Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("mem:      %s   global avg: %.1fms\n\n", humanize.Bytes(snap.MemAllocBytes), snap.GlobalAvgMS))

	b.WriteString(headingStyle.Render("workers"))
	b.WriteString("\n")
	for _, w := range snap.Workers {
		b.WriteString(renderWorkerRow(w))
	}

	fmt.Fprint(p.w, b.String())
}

func renderBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + barFilledStyle.Render(strings.Repeat("=", filled)) + barEmptyStyle.Render(strings.Repeat("-", width-filled)) + "]"
}

func renderWorkerRow(w Snapshot) string {
	classStyle := averageStyle
	switch w.Class {
	case ClassSlow:
		classStyle = slowStyle
	case ClassFast:
		classStyle = fastStyle
	}

	current := "idle"
	if w.HasCurrent {
		current = fmt.Sprintf("task %d (%s)", w.CurrentTaskID, humanize.Bytes(uint64(w.CurrentSize)))
	}

	return fmt.Sprintf(
		"  #%-3d  %-8s  tasks=%-6s primes=%-8s avg=%6.1fms  %s\n",
		w.WorkerID,
		classStyle.Render(w.Class.String()),
		humanize.Comma(w.TasksCompleted),
		humanize.Comma(w.PrimesFound),
		w.AvgMS,
		current,
	)
}

// RenderReport prints the final report block (spec.md §6: total prime
// count, elapsed milliseconds, per-worker summary, global average).
func RenderReport(w io.Writer, r *Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("primehunter run %s complete", r.RunID)))
	fmt.Fprintf(w, "primes found:   %s\n", humanize.Comma(r.TotalPrimes))
	fmt.Fprintf(w, "elapsed:        %s\n", time.Duration(r.ElapsedMS*float64(time.Millisecond)))
	fmt.Fprintf(w, "file size:      %s\n", humanize.Bytes(uint64(r.FileSize)))
	fmt.Fprintf(w, "global avg:     %.2fms/task\n\n", r.GlobalAvgMS)

	fmt.Fprintln(w, headingStyle.Render("workers"))
	for _, s := range r.Workers {
		fmt.Fprint(w, renderWorkerRow(s))
	}
}
