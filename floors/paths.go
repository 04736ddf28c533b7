package floors

import (
	"path"

	"floorpilot/config"
)

// Paths resolves the robot-side locations of live and backed-up map
// files from configuration. All joins use forward slashes because the
// paths live on the robot's filesystem, not the controller's.
type Paths struct {
	cfg config.FilesConfig
}

func NewPaths(cfg config.FilesConfig) Paths {
	return Paths{cfg: cfg}
}

// MapFileNames is the fixed file set that makes up one map: the primary
// map container first, then the charger position and persist records.
func (p Paths) MapFileNames() []string {
	names := []string{p.cfg.PrimaryMap, p.cfg.ChargerPos}
	return append(names, p.cfg.PersistData...)
}

// PrimaryName is the file whose presence defines a valid backup.
func (p Paths) PrimaryName() string { return p.cfg.PrimaryMap }

// LiveFile returns the path of a map file in the live slot.
func (p Paths) LiveFile(name string) string {
	return path.Join(p.cfg.LiveDir, name)
}

// BackupRoot is the directory holding all per-floor backups.
func (p Paths) BackupRoot() string { return p.cfg.BackupRoot }

// BackupDir returns a floor's backup directory.
func (p Paths) BackupDir(floorID string) string {
	return path.Join(p.cfg.BackupRoot, floorID)
}

// BackupFile returns the path of a map file inside a floor's backup.
func (p Paths) BackupFile(floorID, name string) string {
	return path.Join(p.cfg.BackupRoot, floorID, name)
}

// ConflictFiles are live-slot artifacts that make firmware merge or
// misread a restored map if left behind.
func (p Paths) ConflictFiles() []string {
	out := make([]string, len(p.cfg.ConflictFiles))
	for i, name := range p.cfg.ConflictFiles {
		out[i] = p.LiveFile(name)
	}
	return out
}

// AltPrimaryFiles are alternate live-slot names firmware has been seen
// using for the primary map, tried last during recovery.
func (p Paths) AltPrimaryFiles() []string {
	out := make([]string, len(p.cfg.AltPrimaryNames))
	for i, name := range p.cfg.AltPrimaryNames {
		out[i] = p.LiveFile(name)
	}
	return out
}

// MultiMapSlotFiles are firmware's own multi-map save slots.
func (p Paths) MultiMapSlotFiles() []string {
	out := make([]string, len(p.cfg.MultiMapSlots))
	for i, name := range p.cfg.MultiMapSlots {
		out[i] = p.LiveFile(name)
	}
	return out
}

// FirmwareConfig is the robot config file holding boot-time map flags.
func (p Paths) FirmwareConfig() string { return p.cfg.FirmwareConfig }

// RecoveryFlagKey is the firmware config key that tells the boot
// sequence to rebuild the map instead of trusting the files on disk.
func (p Paths) RecoveryFlagKey() string { return p.cfg.RecoveryFlagKey }

// SegmentFlagKey is the firmware config key that requests a
// segmentation run on next boot.
func (p Paths) SegmentFlagKey() string { return p.cfg.SegmentFlagKey }
