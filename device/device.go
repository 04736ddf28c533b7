package device

import "errors"

// Status is the vendor-neutral cleaning status vocabulary. Both the
// REST poll path and the MQTT push path map into it so consumers see
// one consistent stream.
type Status string

const (
	StatusCleaning  Status = "cleaning"
	StatusReturning Status = "returning"
	StatusMoving    Status = "moving"
	StatusPaused    Status = "paused"
	StatusIdle      Status = "idle"
	StatusDocked    Status = "docked"
	StatusError     Status = "error"
	StatusUnknown   Status = "unknown"
)

// IsActive reports whether the robot is out working.
func (s Status) IsActive() bool {
	switch s {
	case StatusCleaning, StatusReturning, StatusMoving:
		return true
	}
	return false
}

// IsTerminal reports whether the robot has come to rest. A transition
// from active to terminal is what ends a mapping run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusIdle, StatusDocked, StatusError:
		return true
	}
	return false
}

// MapLayer is a vendor-neutral live map layer.
type MapLayer struct {
	Type      string
	SegmentID string
	Name      string
	Area      int
}

// LayerTypeSegment marks a firmware-finalized room division.
const LayerTypeSegment = "segment"

// HasSegments reports whether any layer is a segment layer.
func HasSegments(layers []MapLayer) bool {
	for _, l := range layers {
		if l.Type == LayerTypeSegment {
			return true
		}
	}
	return false
}

// StateSource provides read-only access to the robot's state.
type StateSource interface {
	// CurrentStatus returns the robot's cleaning status.
	CurrentStatus() (Status, error)

	// MapLayers returns the live map's layer list.
	MapLayers() ([]MapLayer, error)

	// IsReachable reports whether the robot answers at all. It never
	// returns an error; failures read as false.
	IsReachable() bool
}

// Commander issues control actions to the robot.
type Commander interface {
	Stop() error
	StartCleaning() error
	ResetMap() error

	// StartMappingPass begins a dedicated mapping run. Returns
	// ErrUnsupported if the firmware has no such action.
	StartMappingPass() error

	// TriggerSegmentation asks firmware to divide the finished map
	// into rooms. Returns ErrUnsupported if no quirk exists for it.
	TriggerSegmentation() error
}

// ErrUnsupported is returned by optional actions the device cannot do.
var ErrUnsupported = errors.New("device: action not supported")

// Capability is the tri-state result of an optional capability probe.
// Unknown means the probe has not run (or could not run) yet; callers
// should attempt the action and fall back on ErrUnsupported.
type Capability int

const (
	CapabilityUnknown Capability = iota
	CapabilitySupported
	CapabilityUnsupported
)

func (c Capability) String() string {
	switch c {
	case CapabilitySupported:
		return "supported"
	case CapabilityUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// CapabilityProber reports which optional actions the device supports.
type CapabilityProber interface {
	MappingPass() Capability
	Segmentation() Capability
}

// Backend is the full vendor-neutral device surface the floor manager
// consumes. Implementations wrap vendor-specific APIs.
type Backend interface {
	StateSource
	Commander
	CapabilityProber

	// Name returns a human-readable backend name (e.g. "Valetudo").
	Name() string
}
