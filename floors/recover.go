package floors

import (
	"fmt"
	"log"
	"path"
)

// recoverBackup tries to assemble a usable backup for a floor that has
// none. Candidates are tried in a fixed order and the first one that
// verifies wins: backup directories no registered floor claims, then
// firmware's own multi-map slots, then alternate primary filenames left
// in the live slot. Returns false if nothing usable was found.
func (m *Manager) recoverBackup(runID, floorID string) bool {
	if m.adoptUnclaimedBackup(runID, floorID) {
		return true
	}
	if m.adoptFromFiles(runID, floorID, m.paths.MultiMapSlotFiles(), "multi-map slot") {
		return true
	}
	if m.adoptFromFiles(runID, floorID, m.paths.AltPrimaryFiles(), "alternate live file") {
		return true
	}
	return false
}

// adoptUnclaimedBackup scans the backup root for directories that no
// other registered floor owns and adopts the first one holding a
// primary map file. Directory names equal floor ids, so a directory
// matching another floor's id is that floor's backup and is skipped.
func (m *Manager) adoptUnclaimedBackup(runID, floorID string) bool {
	entries, err := m.remote.ListDir(m.paths.BackupRoot())
	if err != nil {
		log.Printf("floors: recovery list %s: %v", m.paths.BackupRoot(), err)
		return false
	}
	floorsList, err := m.registry.List()
	if err != nil {
		log.Printf("floors: recovery registry read: %v", err)
		return false
	}
	claimed := make(map[string]bool, len(floorsList))
	for _, f := range floorsList {
		if f.ID != floorID {
			claimed[f.ID] = true
		}
	}

	for _, entry := range entries {
		if entry == floorID || claimed[entry] {
			continue
		}
		srcDir := path.Join(m.paths.BackupRoot(), entry)
		if !m.remote.FileExists(path.Join(srcDir, m.paths.PrimaryName())) {
			continue
		}
		if err := m.adoptDir(floorID, srcDir); err != nil {
			log.Printf("floors: adopt %s for %s: %v", srcDir, floorID, err)
			continue
		}
		m.audit(runID, "recovered", floorID, fmt.Sprintf("adopted unclaimed backup %s", entry))
		log.Printf("floors: recovered %s from unclaimed backup %s", floorID, entry)
		return true
	}
	return false
}

// adoptDir copies one candidate directory's map files into the target
// floor's backup and verifies the primary arrived.
func (m *Manager) adoptDir(floorID, srcDir string) error {
	if err := m.remote.MkdirAll(m.paths.BackupDir(floorID)); err != nil {
		return err
	}
	for _, name := range m.paths.MapFileNames() {
		src := path.Join(srcDir, name)
		if !m.remote.FileExists(src) {
			continue
		}
		if err := m.remote.CopyFile(src, m.paths.BackupFile(floorID, name)); err != nil {
			return err
		}
	}
	if !m.remote.FileExists(m.paths.BackupFile(floorID, m.paths.PrimaryName())) {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, floorID)
	}
	return nil
}

// adoptFromFiles tries a list of single-file map candidates, copying
// the first one that exists in as the floor's primary map.
func (m *Manager) adoptFromFiles(runID, floorID string, candidates []string, kind string) bool {
	for _, src := range candidates {
		if !m.remote.FileExists(src) {
			continue
		}
		if err := m.remote.MkdirAll(m.paths.BackupDir(floorID)); err != nil {
			log.Printf("floors: recovery mkdir for %s: %v", floorID, err)
			return false
		}
		dst := m.paths.BackupFile(floorID, m.paths.PrimaryName())
		if err := m.remote.CopyFile(src, dst); err != nil {
			log.Printf("floors: adopt %s for %s: %v", src, floorID, err)
			continue
		}
		if !m.remote.FileExists(dst) {
			continue
		}
		m.audit(runID, "recovered", floorID, fmt.Sprintf("adopted %s %s", kind, src))
		log.Printf("floors: recovered %s from %s %s", floorID, kind, src)
		return true
	}
	return false
}
