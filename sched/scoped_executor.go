package sched

import "sync"

// ScopedExecutor wraps an Executor and tracks every task it has enqueued,
// so Close can cancel anything still outstanding when the owning scope
// tears down.
type ScopedExecutor struct {
	executor Executor
	mu       sync.Mutex
	nextID   int
	tasks    map[int]Task
}

func NewScopedExecutor(executor Executor) *ScopedExecutor {
	return &ScopedExecutor{executor: executor, tasks: map[int]Task{}}
}

type scopedTask struct {
	owner *ScopedExecutor
	id    int
	task  Task
}

func (t *scopedTask) Status() TaskState { return t.task.Status() }
func (t *scopedTask) Wait()             { t.task.Wait() }

func (t *scopedTask) Cancel() {
	t.task.Cancel()
	if t.task.Status() == TaskCanceled {
		t.owner.mu.Lock()
		delete(t.owner.tasks, t.id)
		t.owner.mu.Unlock()
	}
}

// Enqueue submits callback to the underlying executor and tracks the
// resulting task until it completes or is cancelled.
func (e *ScopedExecutor) Enqueue(callback func()) Task {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.mu.Unlock()

	raw := e.executor.Enqueue(func() {
		callback()
		e.mu.Lock()
		delete(e.tasks, id)
		e.mu.Unlock()
	})
	st := &scopedTask{owner: e, id: id, task: raw}
	e.mu.Lock()
	e.tasks[id] = st
	e.mu.Unlock()
	return st
}

// Close cancels every task still tracked by this scope and returns once none
// is left: a pending task is cancelled at once, a running callback is waited
// for until it returns.
func (e *ScopedExecutor) Close() {
	for {
		e.mu.Lock()
		var next Task
		for _, t := range e.tasks {
			next = t
			break
		}
		e.mu.Unlock()
		if next == nil {
			return
		}
		next.Cancel()
	}
}
