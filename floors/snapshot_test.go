package floors

import (
	"bytes"
	"testing"
)

func TestSnapshotCacheLifecycle(t *testing.T) {
	c := NewSnapshotCache(nil, "robot1")

	if _, ok := c.Get("floor_1"); ok {
		t.Fatal("empty cache returned a snapshot")
	}

	c.Put("floor_1", []byte("map-bytes"))
	got, ok := c.Get("floor_1")
	if !ok || !bytes.Equal(got, []byte("map-bytes")) {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	// Repeat reads see the same payload.
	if _, ok := c.Get("floor_1"); !ok {
		t.Error("Get consumed the snapshot")
	}
}

func TestSnapshotCacheTakeConsumes(t *testing.T) {
	c := NewSnapshotCache(nil, "robot1")
	c.Put("floor_1", []byte("map-bytes"))
	c.Put("attic", []byte("other"))

	taken, ok := c.Take("floor_1")
	if !ok || !bytes.Equal(taken, []byte("map-bytes")) {
		t.Fatalf("Take = %q, %v", taken, ok)
	}
	if _, ok := c.Get("floor_1"); ok {
		t.Error("snapshot still present after Take")
	}
	if _, ok := c.Take("floor_1"); ok {
		t.Error("second Take should miss")
	}
	// Other floors are untouched.
	if _, ok := c.Get("attic"); !ok {
		t.Error("unrelated floor lost its snapshot")
	}
}

func TestSnapshotCachePutCopiesPayload(t *testing.T) {
	c := NewSnapshotCache(nil, "robot1")
	buf := []byte("map-bytes")
	c.Put("floor_1", buf)
	buf[0] = 'X'

	got, _ := c.Get("floor_1")
	if !bytes.Equal(got, []byte("map-bytes")) {
		t.Errorf("cached payload aliased the caller's buffer: %q", got)
	}
}
