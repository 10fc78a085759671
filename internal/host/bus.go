// Package host connects to the media player's JSON IPC socket and
// exposes it as a key/value property bus: observed properties deliver
// change events, and the bridge writes titles, clipboard text, and
// pointer positions back through it.
package host

// Property names consumed and produced by the bridge.
const (
	PropMousePos             = "mouse-pos"
	PropOSDDimensions        = "osd-dimensions"
	PropVideoParams          = "video-params"
	PropClipboardText        = "clipboard/text"
	PropClipboardTextPrimary = "clipboard/text-primary"
	PropMediaTitle           = "force-media-title"
	PropInputForwarding      = "user-data/waybridge/input-forwarding"
	PropForceGrabCursor      = "user-data/waybridge/force-grab-cursor"
)

// Event is implemented by all notifications from the player.
type Event interface{ hostEvent() }

// PropertyChange reports a new value for an observed property. Data
// is the decoded JSON value: bool, float64, string, or
// map[string]any for node-valued properties.
type PropertyChange struct {
	Name string
	Data any
}

// Shutdown reports that the player is quitting. This is the orderly
// end of the bridge's life.
type Shutdown struct{}

func (PropertyChange) hostEvent() {}
func (Shutdown) hostEvent()       {}

// Bus is the player-facing surface the bridge drives. Implemented by
// Client; tests substitute fakes.
type Bus interface {
	// Events yields property changes and the shutdown notification.
	// The channel closes on a connection error.
	Events() <-chan Event

	Observe(name string) error
	Unobserve(name string) error

	Get(name string) (any, error)
	Set(name string, value any) error
}

// IntField extracts an integer member from a node-valued property.
// JSON numbers decode as float64; anything else is a format error.
func IntField(data any, key string) (int64, bool) {
	m, ok := data.(map[string]any)
	if !ok {
		return 0, false
	}
	f, ok := m[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
