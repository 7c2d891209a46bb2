package mqtt

import "strings"

// Topics builds the agent's MQTT topic names under a configurable prefix.
//
// Conventions:
//
//	<prefix>/<deviceType>/<deviceID>/attrs   device measures (inbound)
//	<prefix>/<deviceType>/<deviceID>/cmd     commands to the device (outbound)
//	<prefix>/agent/status                    agent availability (retained)
type Topics struct {
	Prefix string
}

// Topic suffixes.
const (
	measureSuffix = "attrs"
	commandSuffix = "cmd"
)

// AgentStatus returns the availability topic.
func (t Topics) AgentStatus() string {
	return t.Prefix + "/agent/status"
}

// Measures returns the wildcard subscription pattern covering every
// device's measure topic.
func (t Topics) Measures() string {
	return t.Prefix + "/+/+/" + measureSuffix
}

// Command returns the command topic for one device.
func (t Topics) Command(deviceType, deviceID string) string {
	return t.Prefix + "/" + deviceType + "/" + deviceID + "/" + commandSuffix
}

// ParseMeasure extracts the device type and id from a measure topic.
// Returns ok=false for topics that do not match the convention.
func (t Topics) ParseMeasure(topic string) (deviceType, deviceID string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != measureSuffix {
		return "", "", false
	}
	if parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
