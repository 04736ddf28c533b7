package vacuum

// Capability names as the firmware advertises them.
const (
	CapBasicControl    = "BasicControlCapability"
	CapMapReset        = "MapResetCapability"
	CapMappingPass     = "MappingPassCapability"
	CapMapSegmentation = "MapSegmentationCapability"
	CapQuirks          = "QuirksCapability"
)

// StateAttribute is one entry of the robot's state attribute list.
type StateAttribute struct {
	Class string `json:"__class"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Flag  string `json:"flag"`
}

const classStatusState = "StatusStateAttribute"

// RobotInfo identifies the device behind the control surface.
type RobotInfo struct {
	Manufacturer   string `json:"manufacturer"`
	ModelName      string `json:"modelName"`
	Implementation string `json:"implementation"`
}

// MapLayer is one layer of the robot's live map render data. A layer of
// type "segment" only appears once firmware has finished dividing the
// map into rooms.
type MapLayer struct {
	Type     string        `json:"type"`
	MetaData LayerMetaData `json:"metaData"`
}

type LayerMetaData struct {
	SegmentID string `json:"segmentId"`
	Name      string `json:"name"`
	Area      int    `json:"area"`
}

// MapData is the decoded live map payload.
type MapData struct {
	Layers []MapLayer `json:"layers"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type quirkRequest struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}
