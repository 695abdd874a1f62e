package model

// Channel groups queries by discovery intent.
type Channel string

// Query channels, in plan order.
const (
	ChannelSourdough Channel = "sourdough"
	ChannelGeneric   Channel = "generic"
	ChannelStyle     Channel = "style"
	ChannelArea      Channel = "area"
)

// Query is one search submission. ID is stable for a target and is recorded
// in CanonicalCandidate.DiscoveredBy.
type Query struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Channel Channel `json:"channel"`
	Center  *LatLng `json:"center,omitempty"`
}
