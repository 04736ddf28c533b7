package floors

import "sync"

// workflowSlot is the single-slot concurrency control for one robot.
// A workflow acquires the slot for its whole duration; a pending
// new-floor marker outlives its starting workflow and blocks new
// switches and mapping runs until auto-save resolves it. Conflicts are
// rejected immediately, never queued.
type workflowSlot struct {
	mu      sync.Mutex
	running bool
	pending *PendingFloor
	saving  bool
}

// acquire claims the slot for a new workflow. allowPending lets the
// auto-save path run while its own pending marker is still set.
func (s *workflowSlot) acquire(allowPending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && !allowPending {
		return ErrMappingInProgress
	}
	if s.running {
		return ErrWorkflowRunning
	}
	s.running = true
	return nil
}

func (s *workflowSlot) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *workflowSlot) setPending(p *PendingFloor) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
}

func (s *workflowSlot) pendingFloor() *PendingFloor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	cp := *s.pending
	return &cp
}

// beginSave claims the auto-save, once. A second transition observed
// while the first save is still running is ignored.
func (s *workflowSlot) beginSave() (*PendingFloor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.saving {
		return nil, false
	}
	s.saving = true
	cp := *s.pending
	return &cp, true
}

// finishSave clears the pending marker on both success and failure.
func (s *workflowSlot) finishSave() {
	s.mu.Lock()
	s.pending = nil
	s.saving = false
	s.mu.Unlock()
}
