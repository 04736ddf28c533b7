package device

import (
	"testing"
	"time"
)

type fixedPush struct {
	status Status
	at     time.Time
	seen   bool
}

func (p *fixedPush) Latest() (Status, time.Time, bool) { return p.status, p.at, p.seen }

func TestCompositePrefersLivePush(t *testing.T) {
	base := time.Now()
	push := &fixedPush{status: StatusCleaning, at: base, seen: true}
	rest := &scriptedSource{statuses: []Status{StatusDocked}, reach: false}

	s := NewCompositeSource(push, rest, 30*time.Second)
	s.now = func() time.Time { return base.Add(5 * time.Second) }

	st, err := s.CurrentStatus()
	if err != nil {
		t.Fatal(err)
	}
	if st != StatusCleaning {
		t.Errorf("status = %q, want cleaning from push", st)
	}
	if !s.IsReachable() {
		t.Error("live push implies reachable")
	}
}

func TestCompositeFallsBackToRestWhenPushStale(t *testing.T) {
	base := time.Now()
	push := &fixedPush{status: StatusCleaning, at: base, seen: true}
	rest := &scriptedSource{statuses: []Status{StatusDocked}, reach: true}

	s := NewCompositeSource(push, rest, 30*time.Second)
	s.now = func() time.Time { return base.Add(time.Minute) }

	if s.PushLive() {
		t.Error("push older than ttl should not be live")
	}
	st, err := s.CurrentStatus()
	if err != nil {
		t.Fatal(err)
	}
	if st != StatusDocked {
		t.Errorf("status = %q, want docked from rest", st)
	}
}

func TestCompositeWithoutPushSource(t *testing.T) {
	rest := &scriptedSource{statuses: []Status{StatusIdle}, reach: true}
	s := NewCompositeSource(nil, rest, 30*time.Second)
	if s.PushLive() {
		t.Error("nil push source can never be live")
	}
	st, err := s.CurrentStatus()
	if err != nil {
		t.Fatal(err)
	}
	if st != StatusIdle {
		t.Errorf("status = %q, want idle", st)
	}
}
