// Package registration advertises device context availability to the
// broker and keeps those advertisements alive.
//
// For every device whose type declares lazy or command attributes, the
// Manager sends an NGSI9 registerContext declaration scoped by the tenant's
// service headers, stores the resulting RegistrationRecord, and renews it
// from a background loop before it expires. At most one live record exists
// per device at any time.
//
// Registration failures are never fatal: a device whose registration could
// not be sent remains fully usable for active-attribute traffic, and the
// declaration is retried on the device's next activity or the next renewal
// scan. Outbound traffic is rate limited per tenant by a minimum inter-call
// interval so bursts of device churn do not hammer the broker.
package registration
