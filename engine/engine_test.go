package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"floorpilot/config"
	"floorpilot/device"
	"floorpilot/floors"
	"floorpilot/store"
)

// --- Mock device backend ---

type mockBackend struct {
	mu     sync.Mutex
	status device.Status
	layers []device.MapLayer
	reach  bool
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) CurrentStatus() (device.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *mockBackend) MapLayers() ([]device.MapLayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layers, nil
}

func (m *mockBackend) IsReachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reach
}

func (m *mockBackend) Stop() error                 { return nil }
func (m *mockBackend) StartCleaning() error        { return nil }
func (m *mockBackend) ResetMap() error             { return nil }
func (m *mockBackend) StartMappingPass() error     { return nil }
func (m *mockBackend) TriggerSegmentation() error  { return device.ErrUnsupported }
func (m *mockBackend) MappingPass() device.Capability  { return device.CapabilitySupported }
func (m *mockBackend) Segmentation() device.Capability { return device.CapabilityUnsupported }

// --- Mock remote filesystem ---

type mockRemote struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMockRemote() *mockRemote {
	return &mockRemote{files: make(map[string][]byte)}
}

func (m *mockRemote) FileExists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *mockRemote) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}

func (m *mockRemote) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	return nil
}

func (m *mockRemote) CopyFile(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[src]
	if !ok {
		return fmt.Errorf("no such file: %s", src)
	}
	m.files[dst] = data
	return nil
}

func (m *mockRemote) RemoveFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *mockRemote) RemoveDir(path string) error { return nil }
func (m *mockRemote) MkdirAll(path string) error  { return nil }
func (m *mockRemote) ListDir(path string) ([]string, error) {
	return nil, nil
}
func (m *mockRemote) Reboot() error { return nil }

var _ floors.RemoteFS = (*mockRemote)(nil)

// --- Test helpers ---

func testEngine(t *testing.T) (*Engine, *mockRemote, *mockBackend) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	remote := newMockRemote()
	backend := &mockBackend{status: device.StatusDocked, reach: true}
	cfg := config.Defaults()

	e := New(Config{
		AppConfig: cfg,
		DB:        db,
		Device:    backend,
		Source:    backend,
		Remote:    remote,
		LogFunc:   t.Logf,
	})
	return e, remote, backend
}

func seedLiveMap(t *testing.T, e *Engine, remote *mockRemote) {
	t.Helper()
	files := e.AppConfig().Files
	names := append([]string{files.PrimaryMap, files.ChargerPos}, files.PersistData...)
	for _, name := range names {
		remote.WriteFile(files.LiveDir+"/"+name, []byte("map-"+name))
	}
}

func TestDispatchSaveAndList(t *testing.T) {
	e, remote, _ := testEngine(t)
	seedLiveMap(t, e, remote)

	result, err := e.Dispatch("floor.save", CommandArgs{Name: "Floor 1", HasDock: true})
	if err != nil {
		t.Fatal(err)
	}
	if result != "floor_1" {
		t.Errorf("result = %v, want floor_1", result)
	}

	listed, err := e.Dispatch("floor.list", CommandArgs{})
	if err != nil {
		t.Fatal(err)
	}
	floorsList := listed.([]floors.Floor)
	if len(floorsList) != 1 || floorsList[0].ID != "floor_1" {
		t.Fatalf("floors = %+v", floorsList)
	}

	active, err := e.Dispatch("floor.active", CommandArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if f := active.(*floors.Floor); f == nil || f.ID != "floor_1" {
		t.Errorf("active = %+v", f)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	e, _, _ := testEngine(t)
	if _, err := e.Dispatch("floor.teleport", CommandArgs{}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestDispatchRenameAndDelete(t *testing.T) {
	e, remote, _ := testEngine(t)
	seedLiveMap(t, e, remote)
	if _, err := e.Dispatch("floor.save", CommandArgs{Name: "Attic", HasDock: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Dispatch("floor.rename", CommandArgs{FloorID: "attic", Name: "Top Floor"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Dispatch("floor.set_dock", CommandArgs{FloorID: "attic", HasDock: false}); err != nil {
		t.Fatal(err)
	}
	f, err := e.Manager().Registry().Get("attic")
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "Top Floor" || f.HasDock {
		t.Errorf("floor = %+v", f)
	}

	if _, err := e.Dispatch("floor.delete", CommandArgs{FloorID: "attic"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Manager().Registry().Get("attic"); !errors.Is(err, floors.ErrNotFound) {
		t.Error("floor survived delete")
	}
}

func TestStatusEventsReachManager(t *testing.T) {
	e, _, _ := testEngine(t)
	e.wireEventHandlers()

	// With no pending floor this must be a no-op, exercised through
	// the same path the watcher uses.
	e.Events.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{
		OldStatus: device.StatusCleaning,
		NewStatus: device.StatusDocked,
	}})
	time.Sleep(10 * time.Millisecond)
	if e.Manager().Pending() != nil {
		t.Error("no pending floor should exist")
	}
}

func TestEventsExportedThroughOutbox(t *testing.T) {
	e, remote, _ := testEngine(t)
	e.wireEventHandlers()
	seedLiveMap(t, e, remote)

	if _, err := e.Dispatch("floor.save", CommandArgs{Name: "Floor 1", HasDock: true}); err != nil {
		t.Fatal(err)
	}

	msgs, err := e.DB().ListPendingOutbox(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) == 0 {
		t.Fatal("no events exported to the outbox")
	}
	found := false
	for _, m := range msgs {
		if m.MsgType == "floor.map.saved" {
			found = true
			if m.Topic != e.AppConfig().Messaging.EventsTopic {
				t.Errorf("topic = %q", m.Topic)
			}
		}
	}
	if !found {
		t.Error("floor.map.saved not exported")
	}
}
