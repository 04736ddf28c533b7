package floors

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"floorpilot/device"
)

// StartNewFloorMapping begins building a brand-new floor: the current
// map is safeguarded, an empty floor entry is registered, and the robot
// is sent off on a mapping run. The heavy lifting happens later, when
// the run ends and the auto-save in HandleStatusTransition fires. Any
// failure before the mapping run actually starts unwinds completely,
// leaving neither a pending marker nor an orphan registry entry.
func (m *Manager) StartNewFloorMapping(name string, hasDock bool) (string, error) {
	floorID, err := SlugFromName(name)
	if err != nil {
		return "", err
	}
	if err := m.slot.acquire(false); err != nil {
		return "", err
	}
	defer m.slot.release()

	// Reject a taken name before touching the robot at all; the later
	// registry.Add would catch it too, but only after backups ran.
	if _, err := m.registry.Get(floorID); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDuplicateFloor, floorID)
	}

	runID := uuid.New().String()

	// A registry with floors but no backups anywhere means every map
	// so far lived only in the live slot. Capture it as the implicit
	// first floor before the reset destroys it.
	if err := m.saveImplicitFirstFloor(); err != nil {
		return "", err
	}

	active, err := m.registry.Active()
	if err != nil {
		return "", err
	}
	if active != nil {
		if err := m.backupLiveTo(active.ID); err != nil {
			return "", fmt.Errorf("backup active floor %s before mapping: %w", active.ID, err)
		}
	}

	if err := m.registry.Add(floorID, name, hasDock); err != nil {
		return "", err
	}
	m.slot.setPending(&PendingFloor{ID: floorID, Name: name, HasDock: hasDock})

	if err := m.beginMappingRun(); err != nil {
		m.slot.setPending(nil)
		if rmErr := m.registry.Remove(floorID); rmErr != nil {
			log.Printf("floors: unwind floor %s: %v", floorID, rmErr)
		}
		m.audit(runID, "mapping_failed", floorID, err.Error())
		return "", err
	}

	m.audit(runID, "mapping_started", floorID, fmt.Sprintf("mapping new floor %q", name))
	m.emitter.EmitMappingStarted(floorID, name)
	log.Printf("floors: mapping started for new floor %q (%s)", name, floorID)
	return floorID, nil
}

func (m *Manager) saveImplicitFirstFloor() error {
	floorsList, err := m.registry.List()
	if err != nil {
		return err
	}
	if len(floorsList) == 0 {
		return nil
	}
	for _, f := range floorsList {
		if m.IsFloorSaved(f.ID) {
			return nil
		}
	}
	first := floorsList[0]
	if active, err := m.registry.Active(); err == nil && active != nil {
		first = *active
	}
	if err := m.BackupCurrentMapAs(first.ID); err != nil {
		return fmt.Errorf("save implicit first floor %s: %w", first.ID, err)
	}
	log.Printf("floors: saved live map as implicit first floor %s", first.ID)
	return nil
}

// beginMappingRun resets the live map and starts a mapping pass,
// falling back to a plain cleaning run on firmware without a dedicated
// mapping action.
func (m *Manager) beginMappingRun() error {
	if err := m.dev.ResetMap(); err != nil {
		return fmt.Errorf("reset map: %w", err)
	}
	err := m.dev.StartMappingPass()
	if errors.Is(err, device.ErrUnsupported) {
		err = m.dev.StartCleaning()
	}
	if err != nil {
		return fmt.Errorf("start mapping run: %w", err)
	}
	return nil
}

// HandleStatusTransition watches the robot's status stream. When the
// robot comes to rest after a mapping run the auto-save kicks off, once;
// further transitions while the save is still running are ignored.
func (m *Manager) HandleStatusTransition(oldStatus, newStatus device.Status) {
	if !oldStatus.IsActive() || !newStatus.IsTerminal() {
		return
	}
	p, ok := m.slot.beginSave()
	if !ok {
		return
	}
	log.Printf("floors: mapping run for %q ended (%s -> %s), starting auto-save", p.Name, oldStatus, newStatus)
	go m.runAutoSave(p)
}

// runAutoSave waits for firmware to finish segmenting the fresh map,
// then saves it as the pending floor. The pending marker clears on both
// success and failure; it never outlives this function.
func (m *Manager) runAutoSave(p *PendingFloor) {
	defer m.slot.finishSave()

	if err := m.slot.acquire(true); err != nil {
		// Nothing else can run while the pending marker is set, so
		// this only trips if a previous workflow leaked the slot.
		log.Printf("floors: auto-save for %s: %v", p.ID, err)
		return
	}
	defer m.slot.release()

	runID := uuid.New().String()
	segmented := m.waitForSegments(runID)
	if !segmented {
		m.audit(runID, "segments_missing", p.ID, "saving unsegmented map at timeout")
		log.Printf("floors: no segments found for %q before timeout, saving as-is", p.Name)
	}

	if err := m.BackupCurrentMapAs(p.ID); err != nil {
		m.audit(runID, "mapping_failed", p.ID, err.Error())
		m.emitter.EmitMappingFailed(p.ID, p.Name, err.Error())
		log.Printf("floors: auto-save of %q failed: %v", p.Name, err)
		return
	}

	m.audit(runID, "mapping_completed", p.ID, fmt.Sprintf("segmented=%v", segmented))
	m.emitter.EmitMapSaved(p.ID, p.Name)
	m.emitter.EmitMappingCompleted(p.ID, p.Name, segmented)
	log.Printf("floors: new floor %q (%s) saved, segmented=%v", p.Name, p.ID, segmented)
}

// waitForSegments polls the live map for a segment layer until the
// auto-save timeout. If none has appeared by the trigger threshold, one
// manual segmentation attempt is made; firmware may still ignore it.
func (m *Manager) waitForSegments(runID string) bool {
	deadline := m.now().Add(m.wf.AutoSaveTimeout)
	triggerAt := m.now().Add(m.wf.SegmentTriggerAfter)
	triggered := false

	for m.now().Before(deadline) {
		layers, err := m.dev.MapLayers()
		if err != nil {
			log.Printf("floors: segment poll: %v", err)
		} else if device.HasSegments(layers) {
			return true
		}
		if !triggered && !m.now().Before(triggerAt) {
			triggered = true
			m.triggerSegmentation(runID)
		}
		m.sleep(m.wf.SegmentPollInterval)
	}
	return false
}

// triggerSegmentation asks firmware to divide the map into rooms. The
// device quirk is preferred; without one, a firmware flag plus reboot
// is attempted, which some firmware honors and some ignores.
func (m *Manager) triggerSegmentation(runID string) {
	m.audit(runID, "segmentation_triggered", "", "")
	err := m.dev.TriggerSegmentation()
	if err == nil {
		log.Printf("floors: manual segmentation triggered")
		return
	}
	if !errors.Is(err, device.ErrUnsupported) {
		log.Printf("floors: trigger segmentation: %v", err)
		return
	}
	log.Printf("floors: no segmentation quirk, falling back to %s + reboot", m.paths.SegmentFlagKey())
	if err := m.patchFirmwareFlag(m.paths.SegmentFlagKey(), "1"); err != nil {
		log.Printf("floors: patch %s: %v", m.paths.SegmentFlagKey(), err)
		return
	}
	if err := m.rebootAndWait(); err != nil {
		log.Printf("floors: reboot for segmentation: %v", err)
	}
}
