package dispatch

import "errors"

// Configuration errors: the agent was activated without the handlers its
// traffic requires. Kept distinct from device-level errors so operators can
// tell "this device misbehaved" from "the adapter was not wired up".
var (
	// ErrUpdateHandlerNotSet is returned when update traffic arrives with
	// no update handler installed.
	ErrUpdateHandlerNotSet = errors.New("dispatch: update handler not set")

	// ErrQueryHandlerNotSet is returned when query traffic arrives with no
	// query handler installed.
	ErrQueryHandlerNotSet = errors.New("dispatch: query handler not set")

	// ErrCommandHandlerNotSet is returned when command attributes arrive
	// with no command handler installed.
	ErrCommandHandlerNotSet = errors.New("dispatch: command handler not set")
)
