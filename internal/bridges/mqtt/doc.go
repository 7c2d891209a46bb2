// Package mqttbridge ingests device measures published over MQTT and feeds
// them into the same update dispatch path as broker-initiated traffic.
//
// Devices publish a JSON object of attribute values to
// <prefix>/<deviceType>/<deviceID>/attrs; the bridge translates each
// message into an updateContext-equivalent dispatch, so MQTT-attached
// devices and HTTP callers converge on one handler contract. Attribute
// types are filled in from the tenant's declared schema where the name is
// known; unknown names pass through untyped.
//
// When enabled, the bridge also offers a command handler that publishes
// command attributes to the device's <prefix>/<deviceType>/<deviceID>/cmd
// topic.
package mqttbridge
