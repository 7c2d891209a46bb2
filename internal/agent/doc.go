// Package agent assembles the IoT agent from its parts: type catalog,
// device registry, registration manager, dispatcher, HTTP server and the
// optional MQTT ingestion bridge.
//
// Consumers construct an Agent from configuration, install their device
// handlers, then Activate it:
//
//	a, err := agent.New(cfg, log, version)
//	a.Handlers().SetUpdateHandler(...)
//	a.Handlers().SetQueryHandler(...)
//	err = a.Activate(ctx)
//	defer a.Deactivate()
//
// Activate starts the HTTP listener and the registration renewal loop;
// Deactivate stops them and releases the registry backend.
package agent
