package floors

// EventEmitter is the interface the floors package uses to emit events.
type EventEmitter interface {
	EmitFloorSwitchStarted(floorID, name string)
	EmitFloorSwitchCompleted(floorID, name string)
	EmitFloorSwitchFailed(floorID, name, reason string)
	EmitMapSaved(floorID, name string)
	EmitMappingStarted(floorID, name string)
	EmitMappingCompleted(floorID, name string, segmented bool)
	EmitMappingFailed(floorID, name, reason string)
}
