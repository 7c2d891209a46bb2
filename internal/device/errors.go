package device

import "errors"

// Domain errors for the device package, checked with errors.Is().
var (
	// ErrDeviceNotFound is returned when a device id does not exist for the
	// requesting tenant.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned by repositories when inserting a device
	// whose (tenant, id) key is already present.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrTypeNotFound is returned when a type name has no definition in the
	// tenant's catalog.
	ErrTypeNotFound = errors.New("device: type not declared")

	// ErrTypeMismatch is returned when a known device id is referenced with
	// a different type than it was first registered with. The registration
	// type is authoritative; re-typing a device is a validation error.
	ErrTypeMismatch = errors.New("device: type mismatch")

	// ErrInvalidDevice is returned when a device record fails validation
	// (empty id or type).
	ErrInvalidDevice = errors.New("device: invalid")
)
