package engine

import (
	"floorpilot/messaging"
)

func (e *Engine) wireEventHandlers() {
	// Status transitions drive the new-floor auto-save.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StatusChangedEvent)
		e.logFn("engine: robot status %s -> %s", ev.OldStatus, ev.NewStatus)
		e.manager.HandleStatusTransition(ev.OldStatus, ev.NewStatus)
	}, EventStatusChanged)

	// A freshly saved map is worth a preview snapshot.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(FloorEvent)
		go e.refreshSnapshot(ev.FloorID)
	}, EventMapSaved)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(FloorEvent)
		e.logFn("engine: floor switch to %s failed: %s", ev.FloorID, ev.Reason)
	}, EventFloorSwitchFailed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(FloorEvent)
		e.logFn("engine: mapping of %s failed: %s", ev.FloorID, ev.Reason)
	}, EventMappingFailed)

	// Every domain event is exported to the events topic through the
	// outbox, so consumers see them even across broker outages.
	e.Events.Subscribe(func(evt Event) {
		e.exportEvent(evt)
	})
}

func (e *Engine) exportEvent(evt Event) {
	if e.cfg.Messaging.EventsTopic == "" {
		return
	}
	env := messaging.NewEventEnvelope(exportName(evt.Type), e.cfg.Robot.ID, evt.Payload)
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode event %s: %v", exportName(evt.Type), err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.EventsTopic, data, env.Type, e.cfg.Robot.ID); err != nil {
		e.logFn("engine: enqueue event %s: %v", env.Type, err)
	}
}

// refreshSnapshot fetches the live map payload and caches it under the
// floor it belongs to. Previews are best-effort; any failure just means
// no snapshot until the next save.
func (e *Engine) refreshSnapshot(floorID string) {
	if e.snapshot == nil {
		return
	}
	data, err := e.snapshot.GetMapSnapshot()
	if err != nil {
		e.logFn("engine: snapshot for %s: %v", floorID, err)
		return
	}
	e.manager.Snapshots().Put(floorID, data)
}
