// Package device provides the device model, the per-tenant type catalog and
// the Device Registry for the NGSI IoT agent.
//
// The registry is the runtime mapping from (service, subservice, device id)
// to a device record. Devices are created either explicitly (provisioning)
// or implicitly on the first inbound message referencing an unseen id; both
// routes go through Ensure, an idempotent upsert keyed on (tenant, id, type).
//
// # Key Types
//
//   - Tenant: a (service, subservice) pair scoping every lookup; tenant
//     isolation is absolute, no operation crosses it.
//   - TypeDefinition: a device type's declared command/lazy/active schema,
//     immutable after catalog load.
//   - Device: the runtime record resolved against its TypeDefinition.
//   - Registry: thread-safe lifecycle operations over a Repository backend
//     (in-memory or SQLite).
//
// Mutating operations are serialised per (tenant, device id) key so that
// concurrent traffic for the same device cannot create duplicate records,
// while disjoint devices proceed independently.
package device
