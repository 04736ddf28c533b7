package engine

import "floorpilot/device"

// floorsEmitter bridges the floors package's emitter interface to the EventBus.
type floorsEmitter struct {
	bus *EventBus
}

func (e *floorsEmitter) EmitFloorSwitchStarted(floorID, name string) {
	e.bus.Emit(Event{Type: EventFloorSwitchStarted, Payload: FloorEvent{FloorID: floorID, Name: name}})
}

func (e *floorsEmitter) EmitFloorSwitchCompleted(floorID, name string) {
	e.bus.Emit(Event{Type: EventFloorSwitchCompleted, Payload: FloorEvent{FloorID: floorID, Name: name}})
}

func (e *floorsEmitter) EmitFloorSwitchFailed(floorID, name, reason string) {
	e.bus.Emit(Event{Type: EventFloorSwitchFailed, Payload: FloorEvent{FloorID: floorID, Name: name, Reason: reason}})
}

func (e *floorsEmitter) EmitMapSaved(floorID, name string) {
	e.bus.Emit(Event{Type: EventMapSaved, Payload: FloorEvent{FloorID: floorID, Name: name}})
}

func (e *floorsEmitter) EmitMappingStarted(floorID, name string) {
	e.bus.Emit(Event{Type: EventMappingStarted, Payload: FloorEvent{FloorID: floorID, Name: name}})
}

func (e *floorsEmitter) EmitMappingCompleted(floorID, name string, segmented bool) {
	e.bus.Emit(Event{Type: EventMappingCompleted, Payload: MappingCompletedEvent{FloorID: floorID, Name: name, Segmented: segmented}})
}

func (e *floorsEmitter) EmitMappingFailed(floorID, name, reason string) {
	e.bus.Emit(Event{Type: EventMappingFailed, Payload: FloorEvent{FloorID: floorID, Name: name, Reason: reason}})
}

// watcherEmitter bridges the status watcher's transitions to the EventBus.
type watcherEmitter struct {
	bus *EventBus
}

func (e *watcherEmitter) EmitStatusChanged(oldStatus, newStatus device.Status) {
	e.bus.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{OldStatus: oldStatus, NewStatus: newStatus}})
}
