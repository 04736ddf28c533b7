package valetudo

import "floorpilot/device"

// MapStatus translates a Valetudo status string to the neutral
// vocabulary. Unrecognized values map to unknown rather than erroring;
// firmware vocabularies grow over time.
func MapStatus(raw string) device.Status {
	switch raw {
	case "cleaning":
		return device.StatusCleaning
	case "returning":
		return device.StatusReturning
	case "moving", "manual_control":
		return device.StatusMoving
	case "paused":
		return device.StatusPaused
	case "idle":
		return device.StatusIdle
	case "docked":
		return device.StatusDocked
	case "error":
		return device.StatusError
	default:
		return device.StatusUnknown
	}
}
