package tabs

import (
	"context"
	"sync"
	"time"
)

// saver coalesces save requests. Requests that arrive before the pending
// write starts share one Task; a request made while a write is running
// schedules exactly one follow-up write, which snapshots whatever state is
// current when it starts.
type saver struct {
	delay time.Duration
	write func(context.Context) error

	mu      sync.Mutex
	pending *Task
	timer   *time.Timer
	running bool
	idle    chan struct{} // closed when the running write finishes
	closed  bool
}

func newSaver(delay time.Duration, write func(context.Context) error) *saver {
	return &saver{delay: delay, write: write}
}

// request returns the Task for the next write, scheduling one if needed.
func (s *saver) request() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return completedTask(ErrManagerClosed)
	}
	if s.pending == nil {
		s.pending = newTask()
		if !s.running {
			s.arm()
		}
	}
	return s.pending
}

// arm starts the debounce timer. Must hold s.mu.
func (s *saver) arm() {
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *saver) fire() {
	task := s.take()
	if task == nil {
		return
	}
	s.runWrite(context.Background(), task)
}

// take claims the pending task and marks a write as running. Must not hold s.mu.
func (s *saver) take() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.pending == nil {
		return nil
	}
	task := s.pending
	s.pending = nil
	s.timer = nil
	s.running = true
	s.idle = make(chan struct{})
	return task
}

func (s *saver) runWrite(ctx context.Context, task *Task) {
	err := s.write(ctx)
	task.complete(err)

	s.mu.Lock()
	s.running = false
	close(s.idle)
	if s.pending != nil && !s.closed {
		s.arm()
	}
	s.mu.Unlock()
}

// flush stops accepting requests, runs any pending write immediately and
// waits for in-flight writes to finish.
func (s *saver) flush(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	var last error
	for {
		s.mu.Lock()
		if s.running {
			idle := s.idle
			s.mu.Unlock()
			select {
			case <-idle:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		pending := s.pending != nil
		s.mu.Unlock()

		if !pending {
			return last
		}
		if task := s.take(); task != nil {
			s.runWrite(ctx, task)
			last = task.Err()
		}
	}
}
