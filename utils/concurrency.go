package utils

import (
	"sync"
	"time"
)

// WorkerPool runs jobs on at most maxWorkers goroutines and spaces job
// starts at least interval apart. The scrape command fans cities out over
// it so a multi-city run never hits the listing site faster than the
// configured rate.
type WorkerPool struct {
	slots    chan struct{}
	wg       sync.WaitGroup
	interval time.Duration

	mu        sync.Mutex
	nextStart time.Time
}

// NewWorkerPool returns a pool with maxWorkers concurrent jobs (at least
// one). rateLimitMs <= 0 disables spacing.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	var interval time.Duration
	if rateLimitMs > 0 {
		interval = time.Duration(rateLimitMs) * time.Millisecond
	}
	return &WorkerPool{
		slots:    make(chan struct{}, maxWorkers),
		interval: interval,
	}
}

// Submit blocks until a worker slot is free, then runs job on its own
// goroutine.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.slots <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()

		if d := wp.reserve(); d > 0 {
			time.Sleep(d)
		}
		job()
	}()
}

// Wait blocks until every submitted job has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// reserve claims the next start slot and returns how long the caller must
// wait for it. The lock is not held while sleeping.
func (wp *WorkerPool) reserve() time.Duration {
	if wp.interval == 0 {
		return 0
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	now := time.Now()
	start := now
	if wp.nextStart.After(now) {
		start = wp.nextStart
	}
	wp.nextStart = start.Add(wp.interval)
	return start.Sub(now)
}

// URLSet remembers listing URLs already seen during one crawl, so a result
// page that repeats a posting yields it once.
type URLSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add reports whether url was new.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[url]; dup {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

func (s *URLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
