package valetudo

import (
	"strings"
	"sync"
	"time"

	"floorpilot/device"
)

// PushState caches the newest status report pushed over MQTT. Valetudo
// publishes the status attribute as a bare string payload; Update
// translates it and stamps the arrival time so staleness is observable.
type PushState struct {
	mu     sync.Mutex
	status device.Status
	at     time.Time
	seen   bool
	now    func() time.Time
}

func NewPushState() *PushState {
	return &PushState{now: time.Now}
}

// Update ingests one raw MQTT status payload.
func (p *PushState) Update(payload []byte) device.Status {
	status := MapStatus(strings.TrimSpace(string(payload)))
	p.mu.Lock()
	p.status = status
	p.at = p.now()
	p.seen = true
	p.mu.Unlock()
	return status
}

// Latest implements device.PushSource.
func (p *PushState) Latest() (device.Status, time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.at, p.seen
}

var _ device.PushSource = (*PushState)(nil)
