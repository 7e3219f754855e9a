package main

import "time"

// dispatchMsg is sent down a worker's channel: either a task to execute or
// an exit instruction (spec.md §4.5's dispatch policy step 4).
type dispatchMsg struct {
	task Task
	exit bool
}

// workerFailure is reported upstream when a worker lane dies mid-task —
// spec.md models this as "OS-level failure, out-of-memory... or read
// error"; the lane itself terminates and the Orchestrator spawns a
// replacement carrying the same integer id (spec.md §4.5).
type workerFailure struct {
	workerID int
	task     Task
	err      error
}

// taskExecutor runs one task to completion and returns its Result. The
// production executor reads the file directly; tests substitute a stub to
// exercise slow-task adaptive resizing (scenario 5) or induced failure
// (scenario 6) without touching the real chunk reader.
type taskExecutor func(workerID int, t Task) (Result, error)

// newFileExecutor returns a taskExecutor that reads path via ReadIntegers
// and counts primes with isPrime.
func newFileExecutor(path string, isPrime func(int64) bool) taskExecutor {
	return func(workerID int, t Task) (Result, error) {
		start := time.Now()

		var count int64
		err := ReadIntegers(path, t.Start, t.End, func(n int64) bool {
			if isPrime(n) {
				count++
			}
			return true
		})
		if err != nil {
			return Result{}, err
		}

		return Result{
			Task:       t,
			PrimeCount: count,
			ElapsedMS:  float64(time.Since(start).Microseconds()) / 1000,
			WorkerID:   workerID,
		}, nil
	}
}

// runWorker executes tasks received on taskCh until it either receives an
// exit instruction (returns cleanly) or a task fails (reports upstream and
// returns — the lane is considered dead; the Orchestrator spawns a
// replacement with the same id).
func runWorker(id int, taskCh <-chan dispatchMsg, resultCh chan<- Result, failureCh chan<- workerFailure, exec taskExecutor) {
	for msg := range taskCh {
		if msg.exit {
			return
		}

		res, err := exec(id, msg.task)
		if err != nil {
			failureCh <- workerFailure{workerID: id, task: msg.task, err: err}
			return
		}

		resultCh <- res
	}
}
