package sched

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// TaskState tracks one enqueued task's progress.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskComplete
	TaskCanceled
)

// Task is a handle onto one Executor.Enqueue submission.
type Task interface {
	Status() TaskState
	Wait()
	Cancel()
}

// Executor runs callbacks, optionally bounding concurrency.
type Executor interface {
	Enqueue(callback func()) Task
}

type goTask struct {
	mu        sync.Mutex
	closeOnce sync.Once
	state     TaskState
	done      chan struct{}
	cancel    context.CancelFunc
}

func (t *goTask) Status() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *goTask) Wait() { <-t.done }

func (t *goTask) settle(state TaskState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *goTask) Cancel() {
	t.mu.Lock()
	pending := t.state == TaskPending
	t.mu.Unlock()
	t.cancel()
	if pending {
		t.settle(TaskCanceled)
	}
}

func (t *goTask) finish() {
	t.settle(TaskComplete)
}

// PoolExecutor bounds concurrency with a weighted semaphore; kgr/net's
// MasterServer shares one across connections for dispatching work.
type PoolExecutor struct {
	sem *semaphore.Weighted
}

// NewPoolExecutor returns an Executor allowing up to maxConcurrency
// in-flight callbacks; 0 means unbounded.
func NewPoolExecutor(maxConcurrency int64) *PoolExecutor {
	var sem *semaphore.Weighted
	if maxConcurrency > 0 {
		sem = semaphore.NewWeighted(maxConcurrency)
	}
	return &PoolExecutor{sem: sem}
}

func (e *PoolExecutor) Enqueue(callback func()) Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &goTask{done: make(chan struct{}), cancel: cancel}
	go func() {
		if e.sem != nil {
			if err := e.sem.Acquire(ctx, 1); err != nil {
				t.settle(TaskCanceled)
				return
			}
			defer e.sem.Release(1)
		}
		t.mu.Lock()
		if t.state == TaskCanceled {
			t.mu.Unlock()
			return
		}
		t.state = TaskRunning
		t.mu.Unlock()
		callback()
		t.finish()
	}()
	return t
}
