package main

import "sort"

// HistoryWindow bounds the FIFO window of recent task durations used by the
// adaptive sizer (distinct from the all-time global average used by the
// worker classifier — spec.md §9).
const HistoryWindow = 20

// MinChunk and MaxChunk bound every chunk size the adaptive sizer produces
// (except a file's final, possibly-smaller, task). They default to spec.md's
// 1 MiB / 10 MiB and may be overridden at startup by --min-chunk/--max-chunk
// (config.go), which is why they are vars rather than consts.
var (
	MinChunk int64 = 1 << 20  // 1 MiB
	MaxChunk int64 = 10 << 20 // 10 MiB
)

// Task is a half-open byte range [Start, End) of the input file plus a
// unique id. A task is not tagged "initial" or "adaptive" in its type —
// that distinction belongs to whichever source minted it.
type Task struct {
	ID    int64
	Start int64
	End   int64
}

// Size returns the number of bytes the task covers.
func (t Task) Size() int64 { return t.End - t.Start }

// TaskManager mints tasks and tracks recent per-task performance history.
// Per spec.md §9's "process-wide counter" note, the id counter is local to
// one TaskManager and only ever minted from the Orchestrator goroutine, so
// it needs no atomic or lock.
type TaskManager struct {
	nextID    int64
	history   []float64 // FIFO window, most recent HISTORY_WINDOW durations
	recentAvg float64
}

// NewTaskManager returns a TaskManager with a fresh id counter.
func NewTaskManager() *TaskManager {
	return &TaskManager{}
}

func (tm *TaskManager) mint(start, end int64) Task {
	tm.nextID++
	return Task{ID: tm.nextID, Start: start, End: end}
}

// InitialPartition computes the initial set of contiguous tasks covering
// [0, fileSize) per spec.md §4.3's three-tier sizing rule, and returns the
// leftover [remStart, remEnd) range (empty in the default scheme, since the
// initial partition always covers the whole file — the remaining range
// exists to support a future partitioning scheme that does not).
func (tm *TaskManager) InitialPartition(fileSize int64, numCores int) (tasks []Task, remStart, remEnd int64) {
	if numCores < 1 {
		numCores = 1
	}

	size := initialChunkSize(fileSize, numCores)

	for offset := int64(0); offset < fileSize; offset += size {
		end := offset + size
		if end > fileSize {
			end = fileSize
		}
		tasks = append(tasks, tm.mint(offset, end))
	}

	return tasks, fileSize, fileSize
}

func initialChunkSize(fileSize int64, numCores int) int64 {
	n := int64(numCores)

	switch {
	case fileSize < MinChunk*n*2:
		size := ceilDiv(fileSize, n*2)
		if size < 1024 {
			size = 1024
		}
		return size
	case fileSize < MaxChunk*n*4:
		return ceilDiv(fileSize, n*4)
	default:
		size := ceilDiv(fileSize, n*4)
		return clamp(size, MinChunk, MaxChunk)
	}
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AdaptiveSize computes a base chunk size from the recent-history average
// processing time, per spec.md §4.3's table.
func (tm *TaskManager) AdaptiveSize() int64 {
	if len(tm.history) == 0 {
		return MaxChunk
	}

	switch {
	case tm.recentAvg > 1000:
		return MinChunk
	case tm.recentAvg > 500:
		return (MinChunk + MaxChunk) / 4
	case tm.recentAvg > 200:
		return (MinChunk + MaxChunk) / 2
	default:
		return MaxChunk
	}
}

// applyClassMultiplier adjusts a base chunk size by the dispatch target's
// performance class.
func applyClassMultiplier(base int64, class PerformanceClass) int64 {
	switch class {
	case ClassSlow:
		adjusted := base / 2
		if adjusted < MinChunk {
			adjusted = MinChunk
		}
		return adjusted
	case ClassFast:
		adjusted := int64(float64(base) * 1.5)
		if adjusted > MaxChunk {
			adjusted = MaxChunk
		}
		return adjusted
	default:
		return base
	}
}

// CreateAdaptiveTask mints a new task from the remaining range, sized from
// recent performance history and the target worker's class, truncated to
// whatever remains of the range.
func (tm *TaskManager) CreateAdaptiveTask(remStart, remEnd int64, class PerformanceClass) Task {
	size := applyClassMultiplier(tm.AdaptiveSize(), class)
	remaining := remEnd - remStart
	if size > remaining {
		size = remaining
	}
	return tm.mint(remStart, remStart+size)
}

// Record appends a completed task's duration to the recent-history window,
// evicting the oldest entry once the window exceeds HistoryWindow, and
// recomputes the cached window mean.
func (tm *TaskManager) Record(durationMs float64) {
	tm.history = append(tm.history, durationMs)
	if len(tm.history) > HistoryWindow {
		tm.history = tm.history[len(tm.history)-HistoryWindow:]
	}

	var sum float64
	for _, d := range tm.history {
		sum += d
	}
	tm.recentAvg = sum / float64(len(tm.history))
}

// sortBySizeAscending returns a copy of tasks sorted by ascending byte size,
// used by the dispatch policy when handing work to a slow worker
// (spec.md §4.5, step 2).
func sortBySizeAscending(tasks []Task) []Task {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size() < sorted[j].Size() })
	return sorted
}
