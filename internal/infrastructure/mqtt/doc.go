// Package mqtt wraps paho.mqtt.golang for the agent's MQTT transport.
//
// It provides connection management with automatic reconnection,
// subscription tracking (re-subscribed after a reconnect), panic-safe
// message handlers, and an availability topic with a Last Will so peers can
// tell a crashed agent from a stopped one.
//
// The wrapper is transport only; topic conventions and payload handling
// live in the bridges that use it.
package mqtt
