package sched

import (
	"sync"
	"time"
)

// shutdownPollInterval paces Close while it drains tasks still settling
// into the garbage list.
const shutdownPollInterval = 10 * time.Millisecond

// ScopedScheduler wraps a Scheduler and tracks every timer it has
// submitted, cancelling outstanding ones and draining completed-but-not-
// yet-collected ones on Close.
type ScopedScheduler struct {
	sched Scheduler

	mu      sync.Mutex
	active  bool
	nextID  int
	tasks   map[int]*scopedTimerTask
	garbage []*scopedTimerTask
}

func NewScopedScheduler(sched Scheduler) *ScopedScheduler {
	return &ScopedScheduler{sched: sched, active: true, tasks: map[int]*scopedTimerTask{}}
}

type scopedTimerTask struct {
	owner *ScopedScheduler
	id    int
	task  TimerTask
}

func (t *scopedTimerTask) Status() TaskState { return t.task.Status() }
func (t *scopedTimerTask) Wait()             { t.task.Wait() }
func (t *scopedTimerTask) Time() time.Time   { return t.task.Time() }
func (t *scopedTimerTask) IsRecurring() bool { return t.task.IsRecurring() }
func (t *scopedTimerTask) Interval() (time.Duration, bool) { return t.task.Interval() }

func (t *scopedTimerTask) Cancel() {
	t.task.Cancel()
	o := t.owner
	o.mu.Lock()
	if _, ok := o.tasks[t.id]; ok {
		o.garbage = append(o.garbage, t)
		delete(o.tasks, t.id)
	}
	o.collectGarbage()
	o.mu.Unlock()
}

// collectGarbage drops any garbage entry whose underlying task has
// finished settling. Must be called with mu held.
func (s *ScopedScheduler) collectGarbage() {
	kept := s.garbage[:0]
	for _, t := range s.garbage {
		switch t.task.Status() {
		case TaskComplete, TaskCanceled:
		default:
			kept = append(kept, t)
		}
	}
	s.garbage = kept
}

func (s *ScopedScheduler) track(id int, task TimerTask) *scopedTimerTask {
	st := &scopedTimerTask{owner: s, id: id, task: task}
	s.mu.Lock()
	s.tasks[id] = st
	s.collectGarbage()
	s.mu.Unlock()
	return st
}

func (s *ScopedScheduler) allocate() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0, false
	}
	id := s.nextID
	s.nextID++
	return id, true
}

func (s *ScopedScheduler) At(tp time.Time, callback func()) TimerTask {
	id, ok := s.allocate()
	if !ok {
		return nil
	}
	task := s.sched.At(tp, func() {
		callback()
		s.mu.Lock()
		if t, ok := s.tasks[id]; ok {
			s.garbage = append(s.garbage, t)
			delete(s.tasks, id)
		}
		s.collectGarbage()
		s.mu.Unlock()
	})
	return s.track(id, task)
}

func (s *ScopedScheduler) Sleep(d time.Duration, callback func()) TimerTask {
	id, ok := s.allocate()
	if !ok {
		return nil
	}
	task := s.sched.Sleep(d, func() {
		callback()
		s.mu.Lock()
		if t, ok := s.tasks[id]; ok {
			s.garbage = append(s.garbage, t)
			delete(s.tasks, id)
		}
		s.collectGarbage()
		s.mu.Unlock()
	})
	return s.track(id, task)
}

func (s *ScopedScheduler) Interval(d time.Duration, callback func()) TimerTask {
	id, ok := s.allocate()
	if !ok {
		return nil
	}
	task := s.sched.Interval(d, callback)
	return s.track(id, task)
}

// Close cancels every outstanding timer and blocks, polling every
// shutdownPollInterval, until the garbage list fully drains.
func (s *ScopedScheduler) Close() {
	s.mu.Lock()
	s.active = false
	var outstanding []*scopedTimerTask
	for _, t := range s.tasks {
		outstanding = append(outstanding, t)
	}
	s.mu.Unlock()

	for _, t := range outstanding {
		t.Cancel()
	}

	s.mu.Lock()
	s.tasks = map[int]*scopedTimerTask{}
	for len(s.garbage) > 0 {
		s.collectGarbage()
		if len(s.garbage) == 0 {
			break
		}
		s.mu.Unlock()
		time.Sleep(shutdownPollInterval)
		s.mu.Lock()
	}
	s.mu.Unlock()
}
