package valetudo

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floorpilot/device"
	"floorpilot/vacuum"
)

func testAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestCapabilityProbeLazy(t *testing.T) {
	calls := 0
	a := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/robot/capabilities" {
			http.NotFound(w, r)
			return
		}
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["` + vacuum.CapBasicControl + `","` + vacuum.CapMappingPass + `"]`))
	}))

	if got := a.MappingPass(); got != device.CapabilitySupported {
		t.Errorf("MappingPass = %v, want supported", got)
	}
	if got := a.Segmentation(); got != device.CapabilityUnsupported {
		t.Errorf("Segmentation = %v, want unsupported", got)
	}
	if calls != 1 {
		t.Errorf("capability list fetched %d times, want 1", calls)
	}
}

func TestCapabilityUnknownWhenUnreachable(t *testing.T) {
	a := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if got := a.MappingPass(); got != device.CapabilityUnknown {
		t.Errorf("MappingPass = %v, want unknown while unreachable", got)
	}
}

func TestStartMappingPassNotFoundMarksUnsupported(t *testing.T) {
	a := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/robot/capabilities" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`["` + vacuum.CapMappingPass + `"]`))
			return
		}
		http.NotFound(w, r)
	}))

	err := a.StartMappingPass()
	if !errors.Is(err, device.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	// A 404 on the endpoint overrides whatever the list advertised.
	if got := a.MappingPass(); got != device.CapabilityUnsupported {
		t.Errorf("MappingPass after 404 = %v, want unsupported", got)
	}
}

func TestCurrentStatusMapsVocabulary(t *testing.T) {
	a := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"__class":"StatusStateAttribute","type":"status","value":"returning"}]`))
	}))
	st, err := a.CurrentStatus()
	if err != nil {
		t.Fatal(err)
	}
	if st != device.StatusReturning {
		t.Errorf("status = %q, want returning", st)
	}
}
