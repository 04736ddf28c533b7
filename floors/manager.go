package floors

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"floorpilot/config"
	"floorpilot/device"
	"floorpilot/store"
)

// RemoteFS is the slice of the robot shell the floor manager needs.
// shell.Channel satisfies it; tests substitute an in-memory fake.
type RemoteFS interface {
	FileExists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	CopyFile(src, dst string) error
	RemoveFile(path string) error
	RemoveDir(path string) error
	MkdirAll(path string) error
	ListDir(path string) ([]string, error)
	Reboot() error
}

// Manager owns the floor lifecycle for one robot: saving and restoring
// map backups, switching floors, and running new-floor mapping. At most
// one switch or mapping workflow runs at a time; conflicting requests
// are rejected rather than queued.
type Manager struct {
	db        *store.DB
	registry  *Registry
	remote    RemoteFS
	dev       device.Backend
	emitter   EventEmitter
	paths     Paths
	wf        config.WorkflowConfig
	robotID   string
	snapshots *SnapshotCache

	slot workflowSlot

	// test hooks
	sleep func(time.Duration)
	now   func() time.Time
}

func NewManager(db *store.DB, registry *Registry, remote RemoteFS, dev device.Backend, emitter EventEmitter, paths Paths, wf config.WorkflowConfig, robotID string, snapshots *SnapshotCache) *Manager {
	return &Manager{
		db:        db,
		registry:  registry,
		remote:    remote,
		dev:       dev,
		emitter:   emitter,
		paths:     paths,
		wf:        wf,
		robotID:   robotID,
		snapshots: snapshots,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Registry exposes the floor registry for read paths. Registry reads
// stay available while a switch or mapping run is in flight.
func (m *Manager) Registry() *Registry { return m.registry }

// Snapshots exposes the map snapshot cache.
func (m *Manager) Snapshots() *SnapshotCache { return m.snapshots }

// Pending returns the in-flight new-floor marker, if any.
func (m *Manager) Pending() *PendingFloor { return m.slot.pendingFloor() }

// DeleteFloor removes a floor from the registry and then tries to
// remove its backup directory on the robot. The registry removal is
// the operation; a failed remote cleanup is logged and the delete
// still succeeds. The floor currently being mapped cannot be deleted.
func (m *Manager) DeleteFloor(floorID string) error {
	if p := m.slot.pendingFloor(); p != nil && p.ID == floorID {
		return ErrMappingInProgress
	}
	if err := m.registry.Remove(floorID); err != nil {
		return err
	}
	if err := m.remote.RemoveDir(m.paths.BackupDir(floorID)); err != nil {
		log.Printf("floors: remove backup dir for %s: %v", floorID, err)
	}
	m.audit(uuid.New().String(), "deleted", floorID, "")
	return nil
}

func (m *Manager) audit(runID, action, floorID, detail string) {
	if m.db == nil {
		return
	}
	if err := m.db.AppendAudit(m.robotID, runID, "floor", floorID, action, detail, ""); err != nil {
		log.Printf("floors: audit %s %s: %v", action, floorID, err)
	}
}

// patchFirmwareFlag rewrites one key=value line in the firmware config
// file, appending the key if it is not present yet.
func (m *Manager) patchFirmwareFlag(key, value string) error {
	cfgPath := m.paths.FirmwareConfig()
	var lines []string
	if m.remote.FileExists(cfgPath) {
		raw, err := m.remote.ReadFile(cfgPath)
		if err != nil {
			return err
		}
		lines = strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	}
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), key+"=") {
			lines[i] = key + "=" + value
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, key+"="+value)
	}
	return m.remote.WriteFile(cfgPath, []byte(strings.Join(lines, "\n")+"\n"))
}

// rebootAndWait reboots the robot and polls reachability until it
// rejoins the network or the wait budget runs out.
func (m *Manager) rebootAndWait() error {
	if err := m.remote.Reboot(); err != nil {
		return err
	}
	deadline := m.now().Add(m.wf.RebootMaxWait)
	for m.now().Before(deadline) {
		m.sleep(m.wf.RebootPollInterval)
		if m.dev.IsReachable() {
			return nil
		}
	}
	return ErrRebootTimeout
}
