package region

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var ErrLooperClosed = errors.New("looper closed")

// Timer is a pending delayed task.
type Timer interface {
	// Stop cancels the task. It reports whether the task had not yet run.
	Stop() bool
}

// Scheduler runs tasks on a single event thread.
type Scheduler interface {
	Post(fn func())
	PostDelayed(d time.Duration, fn func()) Timer
}

// Looper is a Scheduler backed by one goroutine. All tasks, including the
// delayed ones, run on that goroutine in the order they become due.
type Looper struct {
	tasks  chan func()
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
	wg     sync.WaitGroup
}

func NewLooper(queueSize int) *Looper {
	if queueSize <= 0 {
		queueSize = 64
	}
	l := &Looper{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.loop()
	return l
}

func (l *Looper) loop() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			return
		}
	}
}

// Post queues fn. Tasks posted after Close are dropped.
func (l *Looper) Post(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

type looperTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *looperTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.timer.Stop()
	return true
}

// PostDelayed queues fn after d. The stop flag is checked again on the loop
// goroutine, so a timer stopped from the loop never runs afterwards even if
// its wake-up was already queued.
func (l *Looper) PostDelayed(d time.Duration, fn func()) Timer {
	t := &looperTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if l.closed.Load() || t.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	return t
}

// Do runs fn on the loop and waits for it to return.
func (l *Looper) Do(fn func()) error {
	if l.closed.Load() {
		return ErrLooperClosed
	}
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLooperClosed
	}
}

// Close stops the loop. Pending and delayed tasks never run. Close must not
// be called from the loop goroutine.
func (l *Looper) Close() {
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
	l.wg.Wait()
}

// ManualScheduler runs tasks only when told to. Delayed tasks run when
// Advance moves its virtual clock past their deadline.
type ManualScheduler struct {
	now     time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Post(fn func()) {
	s.PostDelayed(0, fn)
}

func (s *ManualScheduler) PostDelayed(d time.Duration, fn func()) Timer {
	s.seq++
	t := &manualTask{due: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

// Pending is the number of tasks that have neither run nor been stopped.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every task that becomes due
// in deadline order. Tasks posted while advancing run too when due.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		if next.due > s.now {
			s.now = next.due
		}
		next.stopped = true
		next.fn()
	}
	s.now = target
	s.compact()
}

// RunPending runs the tasks already due without moving the clock.
func (s *ManualScheduler) RunPending() {
	s.Advance(0)
}

func (s *ManualScheduler) nextDue(limit time.Duration) *manualTask {
	var candidates []*manualTask
	for _, t := range s.pending {
		if !t.stopped && t.due <= limit {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].due == candidates[j].due {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].due < candidates[j].due
	})
	return candidates[0]
}

func (s *ManualScheduler) compact() {
	live := s.pending[:0]
	for _, t := range s.pending {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.pending = live
}
