package floors

import (
	"fmt"
	"log"

	"github.com/google/uuid"
)

// SwitchFloor restores the target floor's saved map into the live slot
// and reboots the robot onto it. The steps run in strict order; copy,
// removal, reboot, and reachability failures abort the switch, while
// redundant backups of the outgoing floor, stopping a cleaning run, and
// the firmware flag patch are best-effort. The registry's active floor
// moves only after the robot has come back on the new map.
func (m *Manager) SwitchFloor(targetID string) error {
	if err := m.slot.acquire(false); err != nil {
		return err
	}
	defer m.slot.release()

	target, err := m.registry.Get(targetID)
	if err != nil {
		return err
	}
	active, err := m.registry.Active()
	if err != nil {
		return err
	}
	if active != nil && active.ID == targetID {
		// Already there. No remote commands, no registry writes.
		return nil
	}

	runID := uuid.New().String()
	m.audit(runID, "switch_started", targetID, fmt.Sprintf("switching to %q", target.Name))
	m.emitter.EmitFloorSwitchStarted(target.ID, target.Name)

	if err := m.runSwitch(runID, target, active); err != nil {
		m.audit(runID, "switch_failed", targetID, err.Error())
		m.emitter.EmitFloorSwitchFailed(target.ID, target.Name, err.Error())
		return err
	}

	m.audit(runID, "switch_completed", targetID, "")
	m.emitter.EmitFloorSwitchCompleted(target.ID, target.Name)
	log.Printf("floors: switched to %q (%s)", target.Name, target.ID)
	return nil
}

func (m *Manager) runSwitch(runID string, target, active *Floor) error {
	// The outgoing floor's live map may have changed since its last
	// save. Losing this copy only costs freshness, not the map itself,
	// so a failure here is logged and the switch continues.
	if active != nil {
		if err := m.backupLiveTo(active.ID); err != nil {
			log.Printf("floors: pre-switch backup of %s: %v", active.ID, err)
		}
	}

	if !m.IsFloorSaved(target.ID) {
		if !m.recoverBackup(runID, target.ID) {
			return &NoSavedMapError{FloorID: target.ID, Name: target.Name}
		}
	}

	// Firmware rewrites map files while cleaning. Stop first and let
	// it settle; if the stop fails the switch proceeds anyway.
	if status, err := m.dev.CurrentStatus(); err == nil && status.IsActive() {
		if err := m.dev.Stop(); err != nil {
			log.Printf("floors: stop before switch: %v", err)
		} else {
			m.sleep(m.wf.SettleDelay)
		}
	}

	// Second backup now that the robot is at rest.
	if active != nil {
		if err := m.backupLiveTo(active.ID); err != nil {
			log.Printf("floors: post-stop backup of %s: %v", active.ID, err)
		}
	}

	for _, p := range m.paths.ConflictFiles() {
		if !m.remote.FileExists(p) {
			continue
		}
		if err := m.remote.RemoveFile(p); err != nil {
			return fmt.Errorf("remove conflict file %s: %w", p, err)
		}
	}

	for _, name := range m.paths.MapFileNames() {
		p := m.paths.LiveFile(name)
		if !m.remote.FileExists(p) {
			continue
		}
		if err := m.remote.RemoveFile(p); err != nil {
			return fmt.Errorf("clear live slot %s: %w", p, err)
		}
	}

	// Restore tolerates files missing from the backup. A lost charger
	// position regenerates on the next dock; a lost primary cannot,
	// but IsFloorSaved already proved the primary exists.
	for _, name := range m.paths.MapFileNames() {
		src := m.paths.BackupFile(target.ID, name)
		if !m.remote.FileExists(src) {
			continue
		}
		if err := m.remote.CopyFile(src, m.paths.LiveFile(name)); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
	}

	if err := m.patchFirmwareFlag(m.paths.RecoveryFlagKey(), "0"); err != nil {
		log.Printf("floors: patch %s: %v", m.paths.RecoveryFlagKey(), err)
	}

	if err := m.rebootAndWait(); err != nil {
		return err
	}

	return m.registry.SetActive(target.ID)
}
