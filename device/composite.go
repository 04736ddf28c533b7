package device

import "time"

// PushSource is a best-effort cache of the last pushed status report.
type PushSource interface {
	// Latest returns the newest pushed status, its arrival time, and
	// whether any report has been received at all.
	Latest() (Status, time.Time, bool)
}

// CompositeSource prefers the push feed for status reads while it is
// live and falls back to the polled source otherwise. Map layers and
// reachability always come from the polled source; the push feed does
// not carry them.
type CompositeSource struct {
	push PushSource
	rest StateSource
	ttl  time.Duration
	now  func() time.Time
}

func NewCompositeSource(push PushSource, rest StateSource, ttl time.Duration) *CompositeSource {
	return &CompositeSource{
		push: push,
		rest: rest,
		ttl:  ttl,
		now:  time.Now,
	}
}

// PushLive reports whether the push feed has delivered recently enough
// to be trusted over polling.
func (s *CompositeSource) PushLive() bool {
	if s.push == nil {
		return false
	}
	_, at, ok := s.push.Latest()
	return ok && s.now().Sub(at) <= s.ttl
}

func (s *CompositeSource) CurrentStatus() (Status, error) {
	if s.PushLive() {
		status, _, _ := s.push.Latest()
		return status, nil
	}
	return s.rest.CurrentStatus()
}

func (s *CompositeSource) MapLayers() ([]MapLayer, error) {
	return s.rest.MapLayers()
}

func (s *CompositeSource) IsReachable() bool {
	if s.PushLive() {
		return true
	}
	return s.rest.IsReachable()
}
