package floors

import (
	"encoding/json"
	"fmt"
	"sync"

	"floorpilot/store"
)

const registryKey = "floor_registry"

// Registry is the durable record of which floors exist and which one is
// logically active. Every mutation reloads the stored document, applies
// the change, and writes the whole document back, so the stored value is
// never partially updated.
type Registry struct {
	mu      sync.Mutex
	db      *store.DB
	robotID string
}

func NewRegistry(db *store.DB, robotID string) *Registry {
	return &Registry{db: db, robotID: robotID}
}

func (r *Registry) load() (*registryData, error) {
	raw, err := r.db.GetSetting(r.robotID, registryKey)
	if err != nil {
		return nil, fmt.Errorf("load floor registry: %w", err)
	}
	reg := &registryData{}
	if raw == nil {
		return reg, nil
	}
	if err := json.Unmarshal(raw, reg); err != nil {
		return nil, fmt.Errorf("decode floor registry: %w", err)
	}
	return reg, nil
}

func (r *Registry) save(reg *registryData) error {
	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode floor registry: %w", err)
	}
	if err := r.db.SetSetting(r.robotID, registryKey, raw); err != nil {
		return fmt.Errorf("save floor registry: %w", err)
	}
	return nil
}

// mutate runs one load-modify-persist cycle under the registry lock.
func (r *Registry) mutate(fn func(reg *registryData) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return r.save(reg)
}

func findFloor(reg *registryData, id string) *Floor {
	for i := range reg.Floors {
		if reg.Floors[i].ID == id {
			return &reg.Floors[i]
		}
	}
	return nil
}

// List returns all floors in creation order.
func (r *Registry) List() ([]Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.load()
	if err != nil {
		return nil, err
	}
	return reg.Floors, nil
}

// Get returns one floor by id.
func (r *Registry) Get(id string) (*Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.load()
	if err != nil {
		return nil, err
	}
	f := findFloor(reg, id)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *f
	return &cp, nil
}

// Active returns the active floor, or nil if none is confirmed yet.
func (r *Registry) Active() (*Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.load()
	if err != nil {
		return nil, err
	}
	if reg.ActiveFloor == "" {
		return nil, nil
	}
	f := findFloor(reg, reg.ActiveFloor)
	if f == nil {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

// Add inserts a new floor. The id must not already exist.
func (r *Registry) Add(id, name string, hasDock bool) error {
	return r.mutate(func(reg *registryData) error {
		if findFloor(reg, id) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateFloor, id)
		}
		reg.Floors = append(reg.Floors, Floor{ID: id, Name: name, HasDock: hasDock})
		return nil
	})
}

// Upsert inserts the floor or updates its name and dock flag in place.
func (r *Registry) Upsert(id, name string, hasDock bool) error {
	return r.mutate(func(reg *registryData) error {
		if f := findFloor(reg, id); f != nil {
			f.Name = name
			f.HasDock = hasDock
			return nil
		}
		reg.Floors = append(reg.Floors, Floor{ID: id, Name: name, HasDock: hasDock})
		return nil
	})
}

// Rename updates a floor's display name. The id never changes.
func (r *Registry) Rename(id, name string) error {
	return r.mutate(func(reg *registryData) error {
		f := findFloor(reg, id)
		if f == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		f.Name = name
		return nil
	})
}

// SetDock updates a floor's dock-capability flag.
func (r *Registry) SetDock(id string, hasDock bool) error {
	return r.mutate(func(reg *registryData) error {
		f := findFloor(reg, id)
		if f == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		f.HasDock = hasDock
		return nil
	})
}

// Remove deletes a floor. If it was active, the active pointer clears.
// Removing an unknown id fails NotFound; robot-side cleanup is not this
// layer's concern.
func (r *Registry) Remove(id string) error {
	return r.mutate(func(reg *registryData) error {
		idx := -1
		for i := range reg.Floors {
			if reg.Floors[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		reg.Floors = append(reg.Floors[:idx], reg.Floors[idx+1:]...)
		if reg.ActiveFloor == id {
			reg.ActiveFloor = ""
		}
		return nil
	})
}

// SetActive marks one floor as the active one.
func (r *Registry) SetActive(id string) error {
	return r.mutate(func(reg *registryData) error {
		if findFloor(reg, id) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		reg.ActiveFloor = id
		return nil
	})
}
