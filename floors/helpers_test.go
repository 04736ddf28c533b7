package floors

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"floorpilot/config"
	"floorpilot/device"
	"floorpilot/store"
)

func testDB(t *testing.T) *store.DB {
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
	return db
}

// fakeRemote is an in-memory stand-in for the robot filesystem. It
// records every mutating call so tests can assert on side effects.
type fakeRemote struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	ops      []string
	failCopy map[string]bool
	reboots  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		files:    make(map[string][]byte),
		dirs:     make(map[string]bool),
		failCopy: make(map[string]bool),
	}
}

func (f *fakeRemote) record(op string) {
	f.ops = append(f.ops, op)
}

func (f *fakeRemote) FileExists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok
}

func (f *fakeRemote) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: no such file", path)
	}
	return data, nil
}

func (f *fakeRemote) WriteFile(path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("write " + path)
	f.files[path] = data
	return nil
}

func (f *fakeRemote) CopyFile(src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cp " + src + " " + dst)
	if f.failCopy[src] {
		return fmt.Errorf("copy %s: injected failure", src)
	}
	data, ok := f.files[src]
	if !ok {
		return fmt.Errorf("copy %s: no such file", src)
	}
	f.files[dst] = data
	return nil
}

func (f *fakeRemote) RemoveFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("rm " + path)
	delete(f.files, path)
	return nil
}

func (f *fakeRemote) RemoveDir(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("rmdir " + path)
	delete(f.dirs, path)
	for p := range f.files {
		if strings.HasPrefix(p, path+"/") {
			delete(f.files, p)
		}
	}
	return nil
}

func (f *fakeRemote) MkdirAll(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	return nil
}

func (f *fakeRemote) ListDir(path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	for p := range f.files {
		if strings.HasPrefix(p, path+"/") {
			rest := strings.TrimPrefix(p, path+"/")
			seen[strings.SplitN(rest, "/", 2)[0]] = true
		}
	}
	for d := range f.dirs {
		if strings.HasPrefix(d, path+"/") {
			rest := strings.TrimPrefix(d, path+"/")
			seen[strings.SplitN(rest, "/", 2)[0]] = true
		}
	}
	var names []string
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRemote) Reboot() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reboot")
	f.reboots = f.reboots + 1
	return nil
}

func (f *fakeRemote) opCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

// fakeDevice scripts the robot control surface.
type fakeDevice struct {
	mu sync.Mutex

	status    device.Status
	statusErr error

	layerScript [][]device.MapLayer
	layerIdx    int

	reachable      bool
	reachableAfter int // IsReachable calls before it flips true

	stops, resets, mappingPasses, cleans, segTriggers int

	resetErr           error
	mappingUnsupported bool
	segUnsupported     bool
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) CurrentStatus() (device.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, d.statusErr
}

func (d *fakeDevice) MapLayers() ([]device.MapLayer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.layerScript) == 0 {
		return nil, nil
	}
	layers := d.layerScript[d.layerIdx]
	if d.layerIdx < len(d.layerScript)-1 {
		d.layerIdx++
	}
	return layers, nil
}

func (d *fakeDevice) IsReachable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reachableAfter > 0 {
		d.reachableAfter--
		return false
	}
	return d.reachable
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *fakeDevice) StartCleaning() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleans++
	return nil
}

func (d *fakeDevice) ResetMap() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resetErr != nil {
		return d.resetErr
	}
	d.resets++
	return nil
}

func (d *fakeDevice) StartMappingPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mappingUnsupported {
		return device.ErrUnsupported
	}
	d.mappingPasses++
	return nil
}

func (d *fakeDevice) TriggerSegmentation() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.segUnsupported {
		return device.ErrUnsupported
	}
	d.segTriggers++
	return nil
}

func (d *fakeDevice) MappingPass() device.Capability {
	if d.mappingUnsupported {
		return device.CapabilityUnsupported
	}
	return device.CapabilitySupported
}

func (d *fakeDevice) Segmentation() device.Capability {
	if d.segUnsupported {
		return device.CapabilityUnsupported
	}
	return device.CapabilitySupported
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordingEmitter) add(ev string) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *recordingEmitter) has(prefix string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if strings.HasPrefix(ev, prefix) {
			return true
		}
	}
	return false
}

func (e *recordingEmitter) EmitFloorSwitchStarted(floorID, name string) {
	e.add("switch_started " + floorID)
}
func (e *recordingEmitter) EmitFloorSwitchCompleted(floorID, name string) {
	e.add("switch_completed " + floorID)
}
func (e *recordingEmitter) EmitFloorSwitchFailed(floorID, name, reason string) {
	e.add("switch_failed " + floorID)
}
func (e *recordingEmitter) EmitMapSaved(floorID, name string) {
	e.add("map_saved " + floorID)
}
func (e *recordingEmitter) EmitMappingStarted(floorID, name string) {
	e.add("mapping_started " + floorID)
}
func (e *recordingEmitter) EmitMappingCompleted(floorID, name string, segmented bool) {
	e.add(fmt.Sprintf("mapping_completed %s segmented=%v", floorID, segmented))
}
func (e *recordingEmitter) EmitMappingFailed(floorID, name, reason string) {
	e.add("mapping_failed " + floorID)
}

type testRig struct {
	mgr     *Manager
	remote  *fakeRemote
	dev     *fakeDevice
	emitter *recordingEmitter
	clock   *fakeClock
}

// fakeClock advances on every sleep so polling loops terminate without
// real waiting.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	db := testDB(t)
	remote := newFakeRemote()
	dev := &fakeDevice{status: device.StatusDocked, reachable: true}
	emitter := &recordingEmitter{}
	clock := &fakeClock{now: time.Now()}

	cfg := config.Defaults()
	registry := NewRegistry(db, "robot1")
	mgr := NewManager(db, registry, remote, dev, emitter, NewPaths(cfg.Files), cfg.Workflow, "robot1", NewSnapshotCache(nil, "robot1"))
	mgr.sleep = clock.Sleep
	mgr.now = clock.Now

	return &testRig{mgr: mgr, remote: remote, dev: dev, emitter: emitter, clock: clock}
}

// seedLiveMap puts a full map file set in the live slot.
func (r *testRig) seedLiveMap(t *testing.T) {
	t.Helper()
	p := r.mgr.paths
	for _, name := range p.MapFileNames() {
		if err := r.remote.WriteFile(p.LiveFile(name), []byte("map-"+name)); err != nil {
			t.Fatal(err)
		}
	}
}

// seedBackup puts a full map file set in a floor's backup directory.
func (r *testRig) seedBackup(t *testing.T, floorID string) {
	t.Helper()
	p := r.mgr.paths
	if err := r.remote.MkdirAll(p.BackupDir(floorID)); err != nil {
		t.Fatal(err)
	}
	for _, name := range p.MapFileNames() {
		if err := r.remote.WriteFile(p.BackupFile(floorID, name), []byte("bak-"+name)); err != nil {
			t.Fatal(err)
		}
	}
}
