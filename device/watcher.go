package device

import (
	"log"
	"sync"
	"time"
)

// WatcherEmitter receives status transition events from the watcher.
type WatcherEmitter interface {
	EmitStatusChanged(oldStatus, newStatus Status)
}

// Watcher observes the robot's cleaning status and emits transitions.
// The poll loop is the REST fallback; a live push feed injects status
// reports through Inject for lower latency, with both paths funneling
// into the same transition detection.
type Watcher struct {
	source   StateSource
	emitter  WatcherEmitter
	interval time.Duration

	mu       sync.Mutex
	last     Status
	stopChan chan struct{}
}

func NewWatcher(source StateSource, emitter WatcherEmitter, interval time.Duration) *Watcher {
	return &Watcher{
		source:   source,
		emitter:  emitter,
		interval: interval,
		last:     StatusUnknown,
		stopChan: make(chan struct{}),
	}
}

// Last returns the most recently observed status.
func (w *Watcher) Last() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) Stop() {
	select {
	case w.stopChan <- struct{}{}:
	default:
	}
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	status, err := w.source.CurrentStatus()
	if err != nil {
		log.Printf("watcher: get status: %v", err)
		return
	}
	w.observe(status)
}

// Inject feeds a pushed status report into transition detection.
func (w *Watcher) Inject(status Status) {
	w.observe(status)
}

func (w *Watcher) observe(status Status) {
	w.mu.Lock()
	old := w.last
	if status == old {
		w.mu.Unlock()
		return
	}
	w.last = status
	w.mu.Unlock()

	w.emitter.EmitStatusChanged(old, status)
}
