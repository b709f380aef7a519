package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task represents a scheduled refresh job
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // 0 means one-shot
	Callback func()
	index    int // index in the heap (for heap.Interface)
}

// taskHeap is a min-heap of Tasks ordered by RunAt
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].RunAt.Before(h[j].RunAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	n := len(*h)
	task := x.(*Task)
	task.index = n
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil  // avoid memory leak
	task.index = -1 // for safety
	*h = old[0 : n-1]
	return task
}

// Scheduler runs refresh jobs at their due times using a min-heap and a
// worker pool. Recurring jobs are rescheduled with a fixed delay from
// dispatch, so a slow refresh pushes the next run back rather than
// stacking runs up.
type Scheduler struct {
	heap     taskHeap
	mu       sync.Mutex
	wakeup   chan struct{}
	tasks    map[string]*Task // for O(1) lookup by ID
	taskCh   chan *Task
	workers  int
	workerWg sync.WaitGroup
	stopped  bool
	stopCh   chan struct{}
}

// NewScheduler creates a new scheduler with a worker pool
func NewScheduler(workers int) *Scheduler {
	s := &Scheduler{
		heap:    make(taskHeap, 0),
		wakeup:  make(chan struct{}, 1),
		tasks:   make(map[string]*Task),
		taskCh:  make(chan *Task),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start starts the scheduler and its worker pool
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.workerWg.Add(1)
		go s.worker()
	}

	// Start the main dispatch goroutine
	go s.run()
}

// Stop stops the scheduler gracefully, letting in-flight jobs finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for workers to finish
	s.workerWg.Wait()
}

// Schedule adds a one-shot job to run at the specified time
func (s *Scheduler) Schedule(id string, runAt time.Time, callback func()) error {
	return s.add(&Task{ID: id, RunAt: runAt, Callback: callback})
}

// ScheduleEvery adds a recurring job, first run one interval from now
func (s *Scheduler) ScheduleEvery(id string, interval time.Duration, callback func()) error {
	return s.add(&Task{
		ID:       id,
		RunAt:    time.Now().Add(interval),
		Interval: interval,
		Callback: callback,
	})
}

func (s *Scheduler) add(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	// Remove existing task with same ID if present
	if existing, ok := s.tasks[task.ID]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.tasks, task.ID)
	}

	heap.Push(&s.heap, task)
	s.tasks[task.ID] = task

	// Wake up the dispatcher if this is the earliest task
	if s.heap[0] == task {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a scheduled job, recurring or not
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, task.index)
	delete(s.tasks, id)
	return true
}

// run is the main dispatch loop
func (s *Scheduler) run() {
	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		var waitDuration time.Duration
		if s.heap.Len() == 0 {
			// No tasks, wait indefinitely
			waitDuration = 24 * time.Hour
		} else {
			// Calculate wait time until next task
			nextTask := s.heap[0]
			waitDuration = time.Until(nextTask.RunAt)

			if waitDuration <= 0 {
				// Task is due, hand it to the worker pool
				task := heap.Pop(&s.heap).(*Task)
				if task.Interval > 0 {
					next := &Task{
						ID:       task.ID,
						RunAt:    time.Now().Add(task.Interval),
						Interval: task.Interval,
						Callback: task.Callback,
					}
					heap.Push(&s.heap, next)
					s.tasks[task.ID] = next
				} else {
					delete(s.tasks, task.ID)
				}
				s.mu.Unlock()

				select {
				case s.taskCh <- task:
				case <-s.stopCh:
					return
				}
				continue
			}
		}

		s.mu.Unlock()

		// Wait for either timeout or wakeup signal
		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
			// Time to check for due tasks
		case <-s.wakeup:
			// New task added or existing task updated
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// worker executes dispatched jobs
func (s *Scheduler) worker() {
	defer s.workerWg.Done()

	for {
		select {
		case task := <-s.taskCh:
			task.Callback()
		case <-s.stopCh:
			return
		}
	}
}

// Stats returns statistics about the scheduler
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStats{
		ScheduledTasks: len(s.tasks),
		Workers:        s.workers,
	}
}

// SchedulerStats contains statistics about the scheduler
type SchedulerStats struct {
	ScheduledTasks int
	Workers        int
}

var (
	ErrSchedulerStopped = &SchedulerError{"scheduler is stopped"}
)

// SchedulerError represents a scheduler error
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string {
	return e.msg
}
