// Package ngsi defines the NGSIv1 wire model spoken between the agent and
// the context broker, together with the pure translation functions that map
// broker context elements to and from the agent's device attribute model.
//
// Two sibling protocols share this model:
//
//   - NGSI9 (context availability): registerContext requests advertising
//     which lazy and command attributes a device can provide.
//   - NGSI10 (context data): updateContext, queryContext, and the
//     subscription notification payload.
//
// The package has no I/O and no dependencies beyond the device model;
// everything here is plain data and deterministic mapping, which keeps the
// dispatch and registration layers trivially testable.
package ngsi
