package floors

import (
	"fmt"
	"log"

	"github.com/google/uuid"
)

// IsFloorSaved reports whether a floor has a usable backup on the
// robot. Presence of the primary map file is the sole authority here;
// a registry entry alone proves nothing about robot-side state.
func (m *Manager) IsFloorSaved(floorID string) bool {
	return m.remote.FileExists(m.paths.BackupFile(floorID, m.paths.PrimaryName()))
}

// backupLiveTo copies the live map file set into a floor's backup
// directory and verifies the result. Files absent from the live slot
// are skipped, but zero copied files or a missing primary afterward
// fails the whole backup.
func (m *Manager) backupLiveTo(floorID string) error {
	dir := m.paths.BackupDir(floorID)
	if err := m.remote.MkdirAll(dir); err != nil {
		return fmt.Errorf("create backup dir %s: %w", dir, err)
	}

	copied := 0
	for _, name := range m.paths.MapFileNames() {
		src := m.paths.LiveFile(name)
		if !m.remote.FileExists(src) {
			continue
		}
		if err := m.remote.CopyFile(src, m.paths.BackupFile(floorID, name)); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		copied++
	}
	if copied == 0 {
		return fmt.Errorf("%w in %s", ErrNoMapFilesFound, m.paths.cfg.LiveDir)
	}
	if !m.remote.FileExists(m.paths.BackupFile(floorID, m.paths.PrimaryName())) {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, floorID)
	}
	return nil
}

// BackupCurrentMapAs saves the live map as the named floor's backup and,
// only after the copy verifies, marks that floor active. Saving a map is
// how the system learns which floor the robot is standing on, so the
// active pointer moves with every successful save.
func (m *Manager) BackupCurrentMapAs(floorID string) error {
	if _, err := m.registry.Get(floorID); err != nil {
		return err
	}
	if err := m.backupLiveTo(floorID); err != nil {
		return err
	}
	if err := m.registry.SetActive(floorID); err != nil {
		return err
	}
	return nil
}

// RegisterAndBackup saves the live map under a brand-new floor derived
// from name. The registry entry appears only after the robot-side copy
// is proven; a failed copy leaves the registry untouched.
func (m *Manager) RegisterAndBackup(name string, hasDock bool) (string, error) {
	floorID, err := SlugFromName(name)
	if err != nil {
		return "", err
	}
	if err := m.slot.acquire(false); err != nil {
		return "", err
	}
	defer m.slot.release()

	runID := uuid.New().String()
	if err := m.backupLiveTo(floorID); err != nil {
		m.audit(runID, "save_failed", floorID, err.Error())
		return "", err
	}
	if err := m.registry.Upsert(floorID, name, hasDock); err != nil {
		return "", err
	}
	if err := m.registry.SetActive(floorID); err != nil {
		return "", err
	}
	m.audit(runID, "saved", floorID, fmt.Sprintf("map saved as %q", name))
	m.emitter.EmitMapSaved(floorID, name)
	log.Printf("floors: saved current map as %q (%s)", name, floorID)
	return floorID, nil
}
