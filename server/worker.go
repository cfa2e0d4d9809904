package server

import (
	"fmt"
	"sync"
)

var errWorkerStopped = fmt.Errorf("worker stopped")

// workRequest is a unit of work to be executed on the project goroutine.
type workRequest struct {
	fn   func(*Project) any
	done chan workResult
}

// workResult holds the return value from a project operation.
type workResult struct {
	value any
	err   error
}

// Worker serializes all Project access through a single goroutine.
// Connect handlers and LSP notifications arrive concurrently; the
// project index is only touched from here.
type Worker struct {
	project  *Project
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker owning p and starts the processing goroutine.
func NewWorker(p *Project) *Worker {
	w := &Worker{
		project:  p,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			select {
			case <-w.quit:
				req.done <- workResult{err: errWorkerStopped}
				return
			default:
			}
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the project, recovering from panics.
func (w *Worker) execute(fn func(*Project) any) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.project)
	}()
	return result
}

// Do submits a function for execution on the project goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*Project) any) (any, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	// A request can land in the buffer after loop has returned.
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
