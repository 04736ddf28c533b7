package engine

import "floorpilot/device"

const (
	EventStatusChanged EventType = iota + 1
	EventFloorSwitchStarted
	EventFloorSwitchCompleted
	EventFloorSwitchFailed
	EventMapSaved
	EventMappingStarted
	EventMappingCompleted
	EventMappingFailed
	EventRobotConnected
	EventRobotDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type StatusChangedEvent struct {
	OldStatus device.Status
	NewStatus device.Status
}

type FloorEvent struct {
	FloorID string
	Name    string
	Reason  string // set on failure events
}

type MappingCompletedEvent struct {
	FloorID   string
	Name      string
	Segmented bool
}

type ConnectionEvent struct {
	Detail string
}

// exportName maps an event type to its wire name on the events topic.
func exportName(t EventType) string {
	switch t {
	case EventStatusChanged:
		return "status.changed"
	case EventFloorSwitchStarted:
		return "floor.switch.started"
	case EventFloorSwitchCompleted:
		return "floor.switch.completed"
	case EventFloorSwitchFailed:
		return "floor.switch.failed"
	case EventMapSaved:
		return "floor.map.saved"
	case EventMappingStarted:
		return "floor.mapping.started"
	case EventMappingCompleted:
		return "floor.mapping.completed"
	case EventMappingFailed:
		return "floor.mapping.failed"
	case EventRobotConnected:
		return "robot.connected"
	case EventRobotDisconnected:
		return "robot.disconnected"
	case EventMessagingConnected:
		return "messaging.connected"
	case EventMessagingDisconnected:
		return "messaging.disconnected"
	default:
		return "unknown"
	}
}
