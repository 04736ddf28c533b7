package valetudo

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"floorpilot/device"
	"floorpilot/vacuum"
)

// Config holds the configuration for creating a Valetudo adapter.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// SegmentationQuirkID is the device quirk that forces a
	// segmentation run, when the firmware exposes one.
	SegmentationQuirkID string
}

// Adapter wraps a vacuum.Client to implement device.Backend. Optional
// capabilities are probed lazily from the firmware's capability list
// and cached; until the list has been fetched they report unknown.
type Adapter struct {
	client  *vacuum.Client
	quirkID string

	mu       sync.Mutex
	capsByID map[string]bool // nil until first successful probe
}

// New creates a Valetudo adapter.
func New(cfg Config) *Adapter {
	quirkID := cfg.SegmentationQuirkID
	if quirkID == "" {
		quirkID = "segmentation.trigger"
	}
	return &Adapter{
		client:  vacuum.NewClient(cfg.BaseURL, cfg.Timeout),
		quirkID: quirkID,
	}
}

// Client exposes the underlying REST client for snapshot fetches.
func (a *Adapter) Client() *vacuum.Client { return a.client }

func (a *Adapter) Name() string { return "Valetudo" }

// Reconfigure applies connection changes at runtime and invalidates the
// cached capability list.
func (a *Adapter) Reconfigure(baseURL string, timeout time.Duration) {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	a.client.Reconfigure(baseURL, timeout)
	a.mu.Lock()
	a.capsByID = nil
	a.mu.Unlock()
}

// --- device.StateSource ---

func (a *Adapter) CurrentStatus() (device.Status, error) {
	raw, err := a.client.GetStatus()
	if err != nil {
		return device.StatusUnknown, err
	}
	return MapStatus(raw), nil
}

func (a *Adapter) MapLayers() ([]device.MapLayer, error) {
	m, err := a.client.GetMapData()
	if err != nil {
		return nil, err
	}
	layers := make([]device.MapLayer, len(m.Layers))
	for i, l := range m.Layers {
		layers[i] = device.MapLayer{
			Type:      l.Type,
			SegmentID: l.MetaData.SegmentID,
			Name:      l.MetaData.Name,
			Area:      l.MetaData.Area,
		}
	}
	return layers, nil
}

func (a *Adapter) IsReachable() bool {
	return a.client.IsReachable()
}

// --- device.Commander ---

func (a *Adapter) Stop() error          { return a.client.Stop() }
func (a *Adapter) StartCleaning() error { return a.client.StartCleaning() }
func (a *Adapter) ResetMap() error      { return a.client.ResetMap() }

func (a *Adapter) StartMappingPass() error {
	if a.capability(vacuum.CapMappingPass) == device.CapabilityUnsupported {
		return device.ErrUnsupported
	}
	if err := a.client.StartMappingPass(); err != nil {
		if isNotFound(err) {
			a.markUnsupported(vacuum.CapMappingPass)
			return device.ErrUnsupported
		}
		return err
	}
	return nil
}

func (a *Adapter) TriggerSegmentation() error {
	if a.capability(vacuum.CapQuirks) == device.CapabilityUnsupported {
		return device.ErrUnsupported
	}
	if err := a.client.SetQuirk(a.quirkID, "true"); err != nil {
		if isNotFound(err) {
			a.markUnsupported(vacuum.CapQuirks)
			return device.ErrUnsupported
		}
		return err
	}
	return nil
}

// --- device.CapabilityProber ---

func (a *Adapter) MappingPass() device.Capability {
	return a.capability(vacuum.CapMappingPass)
}

func (a *Adapter) Segmentation() device.Capability {
	return a.capability(vacuum.CapQuirks)
}

// capability resolves one capability against the firmware's advertised
// list, fetching it on first use. Unknown when the robot is unreachable.
func (a *Adapter) capability(name string) device.Capability {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.capsByID == nil {
		caps, err := a.client.ListCapabilities()
		if err != nil {
			return device.CapabilityUnknown
		}
		a.capsByID = make(map[string]bool, len(caps))
		for _, c := range caps {
			a.capsByID[c] = true
		}
	}
	if a.capsByID[name] {
		return device.CapabilitySupported
	}
	return device.CapabilityUnsupported
}

func (a *Adapter) markUnsupported(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.capsByID == nil {
		a.capsByID = make(map[string]bool)
	}
	a.capsByID[name] = false
}

// isNotFound detects the firmware's 404 answer for absent capabilities.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, device.ErrUnsupported) {
		return true
	}
	return strings.Contains(err.Error(), "HTTP 404")
}

var _ device.Backend = (*Adapter)(nil)

// Healthcheck errors distinguish "down" from "misbehaving" in logs.
func (a *Adapter) Ping() error {
	if _, err := a.client.GetRobotInfo(); err != nil {
		return fmt.Errorf("valetudo ping: %w", err)
	}
	return nil
}
