package main

import "testing"

// Scenario 1: tiny file, 16 bytes, 4 cores -> one task covering the whole
// file (1024-byte floor wins over the ceil-division formula).
func TestInitialPartitionTinyFileUsesFloor(t *testing.T) {
	tm := NewTaskManager()
	tasks, remStart, remEnd := tm.InitialPartition(16, 4)

	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Start != 0 || tasks[0].End != 16 {
		t.Fatalf("task = [%d,%d), want [0,16)", tasks[0].Start, tasks[0].End)
	}
	if remStart != remEnd {
		t.Fatalf("expected empty remaining range, got [%d,%d)", remStart, remEnd)
	}
}

// Property P1: ids minted across initial + adaptive creation are pairwise
// distinct, even under rapid back-to-back creation.
func TestTaskIDsAreUnique(t *testing.T) {
	tm := NewTaskManager()
	seen := make(map[int64]bool)

	tasks, _, _ := tm.InitialPartition(50*MinChunk, 4)
	for _, task := range tasks {
		if seen[task.ID] {
			t.Fatalf("duplicate id %d in initial partition", task.ID)
		}
		seen[task.ID] = true
	}

	for i := 0; i < 1000; i++ {
		task := tm.CreateAdaptiveTask(0, MaxChunk*1000, ClassAverage)
		if seen[task.ID] {
			t.Fatalf("duplicate id %d from adaptive creation", task.ID)
		}
		seen[task.ID] = true
	}
}

// Property P4: every adaptive chunk size lies within [MinChunk, MaxChunk],
// except when truncated by a small remaining range.
func TestAdaptiveSizeWithinBounds(t *testing.T) {
	tm := NewTaskManager()

	for _, avg := range []float64{0, 150, 250, 600, 1500} {
		if avg > 0 {
			tm.Record(avg)
		}
		size := tm.AdaptiveSize()
		if size < MinChunk || size > MaxChunk {
			t.Errorf("AdaptiveSize() with recent avg %v = %d, out of [%d,%d]", avg, size, MinChunk, MaxChunk)
		}
	}
}

func TestAdaptiveSizeTable(t *testing.T) {
	cases := []struct {
		avg  float64
		want int64
	}{
		{1500, MinChunk},
		{750, (MinChunk + MaxChunk) / 4},
		{300, (MinChunk + MaxChunk) / 2},
		{100, MaxChunk},
	}
	for _, c := range cases {
		tm := NewTaskManager()
		tm.Record(c.avg)
		if got := tm.AdaptiveSize(); got != c.want {
			t.Errorf("AdaptiveSize() after recording %v = %d, want %d", c.avg, got, c.want)
		}
	}
}

func TestApplyClassMultiplier(t *testing.T) {
	base := MaxChunk / 2

	if got := applyClassMultiplier(base, ClassAverage); got != base {
		t.Errorf("average multiplier changed base: got %d want %d", got, base)
	}
	if got := applyClassMultiplier(base, ClassSlow); got != base/2 {
		t.Errorf("slow multiplier: got %d want %d", got, base/2)
	}
	if got := applyClassMultiplier(MinChunk, ClassSlow); got != MinChunk {
		t.Errorf("slow multiplier should floor at MinChunk: got %d", got)
	}
	if got := applyClassMultiplier(MaxChunk, ClassFast); got != MaxChunk {
		t.Errorf("fast multiplier should ceil at MaxChunk: got %d", got)
	}
}

// Scenario 5: a synthetic oracle that reports consistently slow durations
// drives the adaptive sizer down to MinChunk (or the remaining range,
// whichever is smaller).
func TestAdaptiveTaskShrinksUnderSlowHistory(t *testing.T) {
	tm := NewTaskManager()
	for i := 0; i < HistoryWindow; i++ {
		tm.Record(1500) // ms, > 1000 -> MinChunk bucket
	}

	task := tm.CreateAdaptiveTask(0, MaxChunk*10, ClassAverage)
	if task.Size() != MinChunk {
		t.Errorf("adaptive task size = %d, want MinChunk (%d)", task.Size(), MinChunk)
	}
}

func TestCreateAdaptiveTaskTruncatesToRemainingRange(t *testing.T) {
	tm := NewTaskManager()
	task := tm.CreateAdaptiveTask(100, 100+MinChunk/2, ClassAverage)
	if task.Size() != MinChunk/2 {
		t.Errorf("adaptive task size = %d, want %d (truncated to remaining range)", task.Size(), MinChunk/2)
	}
	if task.Start != 100 {
		t.Errorf("adaptive task start = %d, want 100", task.Start)
	}
}

func TestRecordWindowEvictsOldest(t *testing.T) {
	tm := NewTaskManager()
	for i := 0; i < HistoryWindow; i++ {
		tm.Record(100) // keeps recentAvg in the <=200 bucket
	}
	if got := tm.AdaptiveSize(); got != MaxChunk {
		t.Fatalf("expected MaxChunk before eviction, got %d", got)
	}

	for i := 0; i < HistoryWindow; i++ {
		tm.Record(2000) // push every low sample out of the window
	}
	if got := tm.AdaptiveSize(); got != MinChunk {
		t.Fatalf("expected MinChunk after window fully evicted, got %d", got)
	}
}

func TestSortBySizeAscending(t *testing.T) {
	tasks := []Task{
		{ID: 1, Start: 0, End: 300},
		{ID: 2, Start: 0, End: 100},
		{ID: 3, Start: 0, End: 200},
	}
	sorted := sortBySizeAscending(tasks)
	if sorted[0].ID != 2 || sorted[1].ID != 3 || sorted[2].ID != 1 {
		t.Fatalf("sortBySizeAscending produced wrong order: %+v", sorted)
	}
	// original slice must be untouched
	if tasks[0].ID != 1 {
		t.Fatalf("sortBySizeAscending mutated its input")
	}
}
