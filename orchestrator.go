package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxTaskRetries bounds how many times a single task may be retried after
// its worker dies before the run is declared a fatal failure. spec.md §9
// flags unbounded retry as the reference behavior and a bounded cap as an
// optional hardening measure; this repository takes the hardened option
// (see DESIGN.md's Open Question decisions).
const maxTaskRetries = 3

// Report is the final summary emitted once every byte of the file has been
// covered by a completed task (spec.md §4.6, §6).
type Report struct {
	RunID       uuid.UUID
	TotalPrimes int64
	ElapsedMS   float64
	GlobalAvgMS float64
	Workers     []Snapshot
	FileSize    int64
}

// Orchestrator owns the task queue, failed queue, remaining-range cursor,
// worker pool, dispatch policy, failure recovery, and progress reporting
// for a single run (spec.md §4.5). It is the sole owner of all shared
// state — every mutation happens on the goroutine running Run, driven by
// messages received from workers (spec.md §9's message-passing redesign).
type Orchestrator struct {
	path       string
	fileSize   int64
	numWorkers int

	taskManager *TaskManager
	stats       *WorkerStats
	exec        taskExecutor
	logger      *logrus.Logger
	progress    *ProgressReporter
	runID       uuid.UUID

	taskQueue   []Task
	failedQueue []Task
	remStart    int64
	remEnd      int64
	hasRemRange bool

	retryCount map[int64]int

	primeCount           int64
	totalBytesProcessed  int64
	startTime            time.Time
}

// NewOrchestrator stats the input file and computes the initial partition.
func NewOrchestrator(path string, numWorkers int, logger *logrus.Logger, progress *ProgressReporter) (*Orchestrator, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("primehunter: cannot stat %s: %w", path, err)
	}

	tm := NewTaskManager()
	fileSize := info.Size()
	tasks, remStart, remEnd := tm.InitialPartition(fileSize, numWorkers)

	o := &Orchestrator{
		path:        path,
		fileSize:    fileSize,
		numWorkers:  numWorkers,
		taskManager: tm,
		stats:       NewWorkerStats(),
		exec:        newFileExecutor(path, IsPrime),
		logger:      logger,
		progress:    progress,
		runID:       uuid.New(),
		taskQueue:   tasks,
		remStart:    remStart,
		remEnd:      remEnd,
		hasRemRange: remStart < remEnd,
		retryCount:  make(map[int64]int),
	}
	return o, nil
}

// Run drives the pool to completion: seeds workers, folds results, recovers
// from failures, and returns the final report once every byte of the file
// is covered by a completed task (spec.md invariant I4).
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.startTime = time.Now()

	taskChans := make(map[int]chan dispatchMsg)
	resultCh := make(chan Result)
	failureCh := make(chan workerFailure)
	live := make(map[int]bool)

	var group errgroup.Group

	spawn := func(id int) chan dispatchMsg {
		ch := make(chan dispatchMsg, 1)
		taskChans[id] = ch
		o.stats.Init(id)
		exec := o.exec
		group.Go(func() error {
			runWorker(id, ch, resultCh, failureCh, exec)
			return nil
		})
		return ch
	}

	initial := o.numWorkers
	if len(o.taskQueue) < initial {
		initial = len(o.taskQueue)
	}
	if initial == 0 && o.hasRemRange && o.numWorkers > 0 {
		initial = 1
	}

	busy := 0
	for id := 0; id < initial; id++ {
		ch := spawn(id)
		t, ok := o.popInitialTask()
		if !ok {
			break
		}
		o.stats.SetCurrent(id, t)
		ch <- dispatchMsg{task: t}
		live[id] = true
		busy++
	}

	var fatalErr error

mainLoop:
	for {
		if busy == 0 && !o.hasWork() {
			break mainLoop
		}

		select {
		case <-ctx.Done():
			fatalErr = ctx.Err()
			break mainLoop

		case res := <-resultCh:
			o.foldResult(res)
			busy--

			msg := o.dispatchFor(res.WorkerID)
			taskChans[res.WorkerID] <- msg
			if msg.exit {
				delete(live, res.WorkerID)
			} else {
				o.stats.SetCurrent(res.WorkerID, msg.task)
				busy++
			}

		case fail := <-failureCh:
			busy--
			delete(live, fail.workerID)
			o.logger.WithFields(logrus.Fields{
				"run_id":    o.runID,
				"worker_id": fail.workerID,
				"task_id":   fail.task.ID,
				"err":       fail.err,
			}).Warn("worker failed, task requeued")

			if err := o.recordFailure(fail); err != nil {
				fatalErr = err
				break mainLoop
			}

			if o.hasWork() {
				ch := spawn(fail.workerID)
				msg := o.dispatchFor(fail.workerID)
				ch <- msg
				if !msg.exit {
					o.stats.SetCurrent(fail.workerID, msg.task)
					live[fail.workerID] = true
					busy++
				}
				o.logger.WithFields(logrus.Fields{
					"run_id":    o.runID,
					"worker_id": fail.workerID,
				}).Info("replacement worker spawned")
			}
		}
	}

	for id := range live {
		taskChans[id] <- dispatchMsg{exit: true}
	}

	// Workers already mid-task when the loop broke (ctx cancellation or a
	// fatal retry error) still need somewhere to report their result or
	// failure; drain both channels alongside group.Wait() so a slow task
	// in flight can never deadlock shutdown.
	waitDone := make(chan error, 1)
	go func() { waitDone <- group.Wait() }()

drain:
	for {
		select {
		case <-resultCh:
		case <-failureCh:
		case err := <-waitDone:
			_ = err
			break drain
		}
	}

	if fatalErr != nil {
		return nil, fatalErr
	}

	report := &Report{
		RunID:       o.runID,
		TotalPrimes: o.primeCount,
		ElapsedMS:   float64(time.Since(o.startTime).Milliseconds()),
		GlobalAvgMS: o.stats.GlobalAvgMS(),
		Workers:     o.stats.Snapshots(),
		FileSize:    o.fileSize,
	}
	return report, nil
}

// popInitialTask hands out one task per worker at startup, in the order
// InitialPartition produced them.
func (o *Orchestrator) popInitialTask() (Task, bool) {
	if len(o.taskQueue) == 0 {
		return Task{}, false
	}
	t := o.taskQueue[0]
	o.taskQueue = o.taskQueue[1:]
	return t, true
}

// hasWork reports whether any source of future work remains.
func (o *Orchestrator) hasWork() bool {
	return len(o.taskQueue) > 0 || len(o.failedQueue) > 0 || o.hasRemRange
}

// dispatchFor selects the next task for a newly-idle worker, per the
// dispatch policy of spec.md §4.5:
//  1. failed queue first (recovery has priority),
//  2. else the main queue — smallest-first for a slow worker with ≥2
//     pending tasks, otherwise LIFO,
//  3. else an adaptive task minted from the remaining range,
//  4. else an exit instruction.
func (o *Orchestrator) dispatchFor(workerID int) dispatchMsg {
	if len(o.failedQueue) > 0 {
		t := o.failedQueue[0]
		o.failedQueue = o.failedQueue[1:]
		return dispatchMsg{task: t}
	}

	if len(o.taskQueue) > 0 {
		class := o.stats.PerformanceClass(workerID)
		if class == ClassSlow && len(o.taskQueue) >= 2 {
			smallest := sortBySizeAscending(o.taskQueue)[0]
			o.taskQueue = removeTaskByID(o.taskQueue, smallest.ID)
			return dispatchMsg{task: smallest}
		}

		last := len(o.taskQueue) - 1
		t := o.taskQueue[last]
		o.taskQueue = o.taskQueue[:last]
		return dispatchMsg{task: t}
	}

	if o.hasRemRange {
		class := o.stats.PerformanceClass(workerID)
		t := o.taskManager.CreateAdaptiveTask(o.remStart, o.remEnd, class)
		o.remStart = t.End
		if o.remStart >= o.remEnd {
			o.hasRemRange = false
		}
		return dispatchMsg{task: t}
	}

	return dispatchMsg{exit: true}
}

func removeTaskByID(tasks []Task, id int64) []Task {
	out := make([]Task, 0, len(tasks)-1)
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// foldResult applies a completed Result to every aggregate that spec.md
// §4.5's "On Result received" sequence names, then throttles a progress
// report.
func (o *Orchestrator) foldResult(r Result) {
	o.primeCount += r.PrimeCount
	o.totalBytesProcessed += r.Task.Size()
	o.stats.Update(r)
	o.taskManager.Record(r.ElapsedMS)

	if o.progress != nil {
		o.progress.MaybeRender(o.snapshot())
	}
}

// recordFailure moves a failed task onto the failed queue, or returns a
// fatal error once it has exceeded maxTaskRetries (DESIGN.md's Open
// Question decision).
func (o *Orchestrator) recordFailure(f workerFailure) error {
	o.retryCount[f.task.ID]++
	if o.retryCount[f.task.ID] > maxTaskRetries {
		return fmt.Errorf("primehunter: task %d exceeded %d retries: %w", f.task.ID, maxTaskRetries, f.err)
	}
	o.failedQueue = append(o.failedQueue, f.task)
	return nil
}

func (o *Orchestrator) snapshot() ProgressSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	elapsed := time.Since(o.startTime)
	percent := 0.0
	if o.fileSize > 0 {
		percent = float64(o.totalBytesProcessed) / float64(o.fileSize)
	}

	var eta time.Duration
	if percent > 0 {
		eta = time.Duration(float64(elapsed) * (1 - percent) / percent)
	}

	return ProgressSnapshot{
		RunID:         o.runID,
		Percent:       percent,
		BytesDone:     o.totalBytesProcessed,
		FileSize:      o.fileSize,
		Elapsed:       elapsed,
		ETA:           eta,
		GlobalAvgMS:   o.stats.GlobalAvgMS(),
		Workers:       o.stats.Snapshots(),
		MemAllocBytes: mem.Alloc,
	}
}
