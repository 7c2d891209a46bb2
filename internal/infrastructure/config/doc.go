// Package config loads and validates the agent's YAML configuration.
//
// Configuration is layered: built-in defaults, then the YAML file, then
// environment variable overrides (IOTAGENT_SECTION_KEY). Validate() runs as
// part of Load so the rest of the agent can assume a well-formed Config.
//
// The file supplies the broker coordinates, the inbound server settings,
// the default tenant, the per-type attribute declarations, the registry
// backend selection, the optional MQTT ingestion bridge, and logging.
package config
