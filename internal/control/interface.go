package control

import "tuxedoctl/internal/device"

// Service identity reported by Health and used for the default socket name.
const (
	ServiceID = "tuxedo-infinitybook-gen10"
	Version   = "0.1.0"
)

// Channel ids as exposed to callers. Fixed cardinality; no runtime
// discovery.
const (
	Fan1ChannelID = "fan1"
	Fan2ChannelID = "fan2"
)

// ChannelInfo describes one fan channel of the device.
type ChannelInfo struct {
	Label        string             `json:"label"`
	Bounds       device.SpeedBounds `json:"bounds"`
	FixedEnabled bool               `json:"fixed_enabled"`
}

// Descriptor is a read-only snapshot of the device and its channels,
// built from live hardware bounds at enumeration time.
type Descriptor struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Channels map[string]ChannelInfo `json:"channels"`
}

// ChannelStatus is the current duty of one fan channel.
type ChannelStatus struct {
	Channel string      `json:"channel"`
	Duty    device.Duty `json:"duty"`
}

// HealthInfo reports service identity and liveness.
type HealthInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// channelByID maps an external channel id to its fan. Reports false for
// unknown ids so callers can reject them before any hardware access.
func channelByID(id string) (device.FanChannel, bool) {
	switch id {
	case Fan1ChannelID:
		return device.Fan1, true
	case Fan2ChannelID:
		return device.Fan2, true
	default:
		return 0, false
	}
}
