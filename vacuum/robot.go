package vacuum

import "fmt"

// GetRobotInfo identifies the robot. Doubles as the reachability probe.
func (c *Client) GetRobotInfo() (*RobotInfo, error) {
	var info RobotInfo
	if err := c.get("/api/v2/robot", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// IsReachable reports whether the control surface answers at all. It
// never returns an error; timeouts and refusals read as false.
func (c *Client) IsReachable() bool {
	_, err := c.GetRobotInfo()
	return err == nil
}

// GetStatus returns the robot's current cleaning status string as the
// firmware reports it (e.g. "cleaning", "docked", "returning").
func (c *Client) GetStatus() (string, error) {
	var attrs []StateAttribute
	if err := c.get("/api/v2/robot/state/attributes", &attrs); err != nil {
		return "", err
	}
	for _, a := range attrs {
		if a.Class == classStatusState {
			return a.Value, nil
		}
	}
	return "", fmt.Errorf("vacuum state: no status attribute in %d attributes", len(attrs))
}

// GetMapData returns the decoded live map payload.
func (c *Client) GetMapData() (*MapData, error) {
	var m MapData
	if err := c.get("/api/v2/robot/state/map", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMapSnapshot returns the raw live map payload for preview caching.
func (c *Client) GetMapSnapshot() ([]byte, error) {
	return c.getRaw("/api/v2/robot/state/map")
}

// ListCapabilities returns the capability names the firmware advertises.
func (c *Client) ListCapabilities() ([]string, error) {
	var caps []string
	if err := c.get("/api/v2/robot/capabilities", &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// Stop halts the current cleaning run.
func (c *Client) Stop() error {
	return c.put("/api/v2/robot/capabilities/"+CapBasicControl, &actionRequest{Action: "stop"}, nil)
}

// StartCleaning begins a normal cleaning run.
func (c *Client) StartCleaning() error {
	return c.put("/api/v2/robot/capabilities/"+CapBasicControl, &actionRequest{Action: "start"}, nil)
}

// ResetMap erases the live map so a fresh mapping run starts clean.
func (c *Client) ResetMap() error {
	return c.put("/api/v2/robot/capabilities/"+CapMapReset, &actionRequest{Action: "reset"}, nil)
}

// StartMappingPass begins a dedicated mapping run on firmware that
// supports one. Firmware without the capability answers 404.
func (c *Client) StartMappingPass() error {
	return c.put("/api/v2/robot/capabilities/"+CapMappingPass, &actionRequest{Action: "start_mapping"}, nil)
}

// SetQuirk sets a device-specific quirk value, used among other things
// to nudge firmware into running segmentation.
func (c *Client) SetQuirk(id, value string) error {
	return c.put("/api/v2/robot/capabilities/"+CapQuirks, &quirkRequest{ID: id, Value: value}, nil)
}
