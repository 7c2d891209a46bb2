// Package logging provides the structured logger used across the agent.
//
// It is a thin wrapper over log/slog configured from the logging section of
// config.yaml. Leaf packages that need logging declare their own minimal
// Logger interface (Debug/Info/Warn/Error with key-value args) which this
// type satisfies, keeping them free of infrastructure imports.
package logging
