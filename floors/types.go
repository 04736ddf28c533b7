package floors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Floor is one logical cleaning area with its own persisted map backup.
type Floor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HasDock bool   `json:"hasDock"`
}

// floorJSON is the wire form. HasDock is a pointer so registries written
// before the dock flag existed read back as true.
type floorJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HasDock *bool  `json:"hasDock"`
}

func (f *Floor) UnmarshalJSON(data []byte) error {
	var w floorJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.ID = w.ID
	f.Name = w.Name
	f.HasDock = w.HasDock == nil || *w.HasDock
	return nil
}

// registryData is the persisted registry document. Floors keep insertion
// order; ActiveFloor is empty when no floor has been confirmed yet.
type registryData struct {
	Floors      []Floor `json:"floors"`
	ActiveFloor string  `json:"activeFloor,omitempty"`
}

// PendingFloor marks a mapping run in progress. It lives only between
// "reset map + start mapping" and the auto-save that resolves it.
type PendingFloor struct {
	ID      string
	Name    string
	HasDock bool
}

var (
	ErrNotFound           = errors.New("floor not found")
	ErrDuplicateFloor     = errors.New("floor already exists")
	ErrInvalidName        = errors.New("floor name yields an empty id")
	ErrNoMapFilesFound    = errors.New("no map files found to copy")
	ErrVerificationFailed = errors.New("primary map file missing after copy")
	ErrMappingInProgress  = errors.New("a new-floor mapping run is in progress")
	ErrWorkflowRunning    = errors.New("another floor workflow is running")
	ErrRebootTimeout      = errors.New("robot did not come back after reboot")
)

// NoSavedMapError means a switch target has no usable backup, even after
// recovery. The caller should revisit that area and save it as new.
type NoSavedMapError struct {
	FloorID string
	Name    string
}

func (e *NoSavedMapError) Error() string {
	return fmt.Sprintf("floor %q (%s) has no saved map; revisit the area and save it as a new floor", e.Name, e.FloorID)
}

// SlugFromName derives a floor id from a display name: lower-cased, runs
// of non-alphanumerics collapsed to single underscores, outer underscores
// trimmed. The derivation is stable, so deriving twice from the same name
// always yields the same id.
func SlugFromName(name string) (string, error) {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	slug := b.String()
	if slug == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return slug, nil
}
