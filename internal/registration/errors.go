package registration

import "errors"

// Errors returned by the broker client and manager, checked with
// errors.Is().
var (
	// ErrBrokerUnreachable is returned when the registerContext call could
	// not be delivered (network error, timeout).
	ErrBrokerUnreachable = errors.New("registration: broker unreachable")

	// ErrBrokerRejected is returned when the broker answered with an HTTP
	// error status, an NGSI errorCode, or no registration id.
	ErrBrokerRejected = errors.New("registration: broker rejected request")

	// ErrNoRecord is returned when renewing or cancelling a device that has
	// no live registration record.
	ErrNoRecord = errors.New("registration: no record for device")
)
