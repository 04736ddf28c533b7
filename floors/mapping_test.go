package floors

import (
	"errors"
	"strings"
	"testing"
	"time"

	"floorpilot/device"
)

var segmentLayers = []device.MapLayer{
	{Type: "floor"},
	{Type: device.LayerTypeSegment, SegmentID: "16", Name: "Kitchen"},
}

var plainLayers = []device.MapLayer{{Type: "floor"}, {Type: "wall"}}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartNewFloorMapping(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)

	floorID, err := rig.mgr.StartNewFloorMapping("Cellar", false)
	if err != nil {
		t.Fatal(err)
	}
	if floorID != "cellar" {
		t.Errorf("floorID = %q", floorID)
	}
	if rig.dev.resets != 1 || rig.dev.mappingPasses != 1 {
		t.Errorf("resets = %d, mapping passes = %d", rig.dev.resets, rig.dev.mappingPasses)
	}
	p := rig.mgr.Pending()
	if p == nil || p.ID != "cellar" || p.HasDock {
		t.Fatalf("pending = %+v", p)
	}
	f, err := rig.mgr.Registry().Get("cellar")
	if err != nil {
		t.Fatal(err)
	}
	if f.HasDock {
		t.Error("store-only entry should carry hasDock=false")
	}
	// No backup yet; only auto-save produces one.
	if rig.mgr.IsFloorSaved("cellar") {
		t.Error("new floor should have no backup before auto-save")
	}
	if !rig.emitter.has("mapping_started cellar") {
		t.Error("mapping_started event missing")
	}
}

func TestStartNewFloorMappingFallsBackToCleaning(t *testing.T) {
	rig := newTestRig(t)
	rig.dev.mappingUnsupported = true

	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	if rig.dev.cleans != 1 {
		t.Errorf("cleans = %d, want 1 (mapping pass unsupported)", rig.dev.cleans)
	}
}

func TestStartNewFloorMappingBacksUpActiveFloor(t *testing.T) {
	rig := newTestRig(t)
	rig.mgr.Registry().Add("floor_1", "Floor 1", true)
	rig.seedBackup(t, "floor_1")
	rig.seedLiveMap(t)
	rig.mgr.Registry().SetActive("floor_1")
	p := rig.mgr.paths

	// Live map drifted since the last save.
	rig.remote.WriteFile(p.LiveFile(p.PrimaryName()), []byte("fresh"))

	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	data, _ := rig.remote.ReadFile(p.BackupFile("floor_1", p.PrimaryName()))
	if string(data) != "fresh" {
		t.Errorf("active floor backup = %q, want refreshed copy", data)
	}
}

func TestStartNewFloorMappingSavesImplicitFirstFloor(t *testing.T) {
	rig := newTestRig(t)
	rig.mgr.Registry().Add("floor_1", "Floor 1", true)
	rig.seedLiveMap(t)

	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	// floor_1 existed with no backup anywhere: the live map becomes
	// its backup before the reset can destroy it.
	if !rig.mgr.IsFloorSaved("floor_1") {
		t.Error("implicit first floor was not saved")
	}
}

func TestStartNewFloorMappingUnwindsOnFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.dev.resetErr = errors.New("firmware busy")

	_, err := rig.mgr.StartNewFloorMapping("Cellar", true)
	if err == nil {
		t.Fatal("expected reset failure to surface")
	}
	if rig.mgr.Pending() != nil {
		t.Error("pending marker left behind")
	}
	if _, err := rig.mgr.Registry().Get("cellar"); !errors.Is(err, ErrNotFound) {
		t.Error("orphan registry entry left behind")
	}
}

func TestStartNewFloorMappingDuplicateName(t *testing.T) {
	rig := newTestRig(t)
	// Registered but never backed up, and the live slot is empty: the
	// duplicate must be rejected before any backup is even attempted,
	// or the caller would see a copy failure instead.
	rig.mgr.Registry().Add("cellar", "Cellar", true)
	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); !errors.Is(err, ErrDuplicateFloor) {
		t.Fatalf("err = %v, want ErrDuplicateFloor", err)
	}
	if got := rig.remote.opCount(); got != 0 {
		t.Errorf("remote ops = %d, want 0 (rejected before any backup)", got)
	}
	if rig.dev.resets != 0 {
		t.Errorf("resets = %d, want 0", rig.dev.resets)
	}
	if _, err := rig.mgr.StartNewFloorMapping("!!!", true); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestAutoSaveOnSegmentsAppearing(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)
	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	// Three polls without segments, then the segment layer shows up,
	// well before the manual trigger threshold.
	rig.dev.layerScript = [][]device.MapLayer{plainLayers, plainLayers, plainLayers, segmentLayers}

	rig.mgr.HandleStatusTransition(device.StatusCleaning, device.StatusDocked)
	waitFor(t, "auto-save to finish", func() bool { return rig.mgr.Pending() == nil })

	if rig.dev.segTriggers != 0 {
		t.Errorf("segTriggers = %d, want 0 (segments appeared on their own)", rig.dev.segTriggers)
	}
	if !rig.mgr.IsFloorSaved("cellar") {
		t.Error("floor not saved")
	}
	active, _ := rig.mgr.Registry().Active()
	if active == nil || active.ID != "cellar" {
		t.Errorf("active = %+v, want cellar", active)
	}
	if !rig.emitter.has("mapping_completed cellar segmented=true") {
		t.Error("mapping_completed segmented=true missing")
	}
}

func TestAutoSaveTriggersSegmentationThenTimesOut(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)
	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	// Segments never appear. The trigger threshold elapses first, so
	// exactly one manual attempt fires; the save happens at timeout.
	rig.dev.layerScript = [][]device.MapLayer{plainLayers}

	rig.mgr.HandleStatusTransition(device.StatusCleaning, device.StatusIdle)
	waitFor(t, "auto-save to finish", func() bool { return rig.mgr.Pending() == nil })

	if rig.dev.segTriggers != 1 {
		t.Errorf("segTriggers = %d, want exactly 1", rig.dev.segTriggers)
	}
	if !rig.mgr.IsFloorSaved("cellar") {
		t.Error("floor should be saved even without segments")
	}
	if !rig.emitter.has("mapping_completed cellar segmented=false") {
		t.Error("mapping_completed segmented=false missing")
	}
}

func TestAutoSaveSegmentationFallbackRebootsWithFlag(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)
	rig.dev.segUnsupported = true
	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	rig.dev.layerScript = [][]device.MapLayer{plainLayers}

	rig.mgr.HandleStatusTransition(device.StatusReturning, device.StatusDocked)
	waitFor(t, "auto-save to finish", func() bool { return rig.mgr.Pending() == nil })

	cfg, err := rig.remote.ReadFile(rig.mgr.paths.FirmwareConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(cfg), rig.mgr.paths.SegmentFlagKey()+"=1") {
		t.Errorf("firmware config = %q, segment flag not set", cfg)
	}
	if rig.remote.reboots != 1 {
		t.Errorf("reboots = %d, want 1 for segmentation fallback", rig.remote.reboots)
	}
}

func TestAutoSaveFailureClearsPending(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)
	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	// The mapping run produced nothing: firmware wiped the live slot.
	for _, name := range rig.mgr.paths.MapFileNames() {
		rig.remote.RemoveFile(rig.mgr.paths.LiveFile(name))
	}
	rig.dev.layerScript = [][]device.MapLayer{segmentLayers}

	rig.mgr.HandleStatusTransition(device.StatusCleaning, device.StatusError)
	waitFor(t, "auto-save to finish", func() bool { return rig.mgr.Pending() == nil })

	if !rig.emitter.has("mapping_failed cellar") {
		t.Error("mapping_failed event missing")
	}
	if rig.mgr.IsFloorSaved("cellar") {
		t.Error("failed save must not leave a verified backup")
	}
	// The slot is free again for the next attempt.
	if _, err := rig.mgr.RegisterAndBackup("Garage", true); !errors.Is(err, ErrNoMapFilesFound) {
		t.Errorf("err = %v, want the save to run (and fail on empty slot)", err)
	}
}

func TestHandleStatusTransitionIgnoresIrrelevantMoves(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)
	if _, err := rig.mgr.StartNewFloorMapping("Cellar", true); err != nil {
		t.Fatal(err)
	}
	rig.dev.layerScript = [][]device.MapLayer{segmentLayers}

	// Terminal-to-terminal and active-to-active moves never save.
	rig.mgr.HandleStatusTransition(device.StatusDocked, device.StatusIdle)
	rig.mgr.HandleStatusTransition(device.StatusCleaning, device.StatusReturning)
	rig.mgr.HandleStatusTransition(device.StatusUnknown, device.StatusDocked)
	time.Sleep(20 * time.Millisecond)
	if rig.mgr.Pending() == nil {
		t.Fatal("pending resolved without an active-to-terminal transition")
	}
}

func TestHandleStatusTransitionWithoutPending(t *testing.T) {
	rig := newTestRig(t)
	rig.seedLiveMap(t)
	rig.mgr.HandleStatusTransition(device.StatusCleaning, device.StatusDocked)
	time.Sleep(20 * time.Millisecond)
	if rig.mgr.IsFloorSaved("cellar") {
		t.Error("nothing should save without a pending floor")
	}
}
