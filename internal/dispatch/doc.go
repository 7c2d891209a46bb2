// Package dispatch routes inbound broker traffic to the consumer-supplied
// device handlers and assembles the outbound NGSI response envelopes.
//
// Three entry points share the flow received → resolving-device →
// invoking-handler → responding/failed:
//
//   - UpdateContext: broker pushes attribute values; routed to the update
//     handler, with attributes declared as commands split off to the
//     command handler.
//   - QueryContext: broker pulls lazy attribute values through the query
//     handler.
//   - Notification: an out-of-band device notification; translated into the
//     exact same update-handler invocation as UpdateContext, so both
//     ingestion routes converge on one handler contract.
//
// Dispatch is stateless per request. Entities in a batch are processed
// independently and each carries its own status code; one failing entity
// never aborts its siblings. Handlers run synchronously on the request
// goroutine — the HTTP server gives every request its own goroutine, so a
// handler performing device I/O only ever suspends its own request, and the
// request context's deadline bounds a handler that never returns.
package dispatch
