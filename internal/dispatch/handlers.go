package dispatch

import (
	"context"
	"sync"

	"github.com/ngsilink/iotagent-core/internal/device"
)

// UpdateHandler receives attribute values pushed towards a device, from
// either an updateContext request or an out-of-band notification. The
// returned error becomes the entity's status code; it is never retried,
// since a device write may not be idempotent.
type UpdateHandler func(ctx context.Context, id, deviceType string, attrs []device.Attribute) error

// QueryHandler supplies current values for the requested attribute names of
// a device. For a type-scoped (pattern) query it may return results for
// several devices of that type.
type QueryHandler func(ctx context.Context, id, deviceType string, attrNames []string) ([]QueryResult, error)

// CommandHandler receives attributes declared as commands in the device's
// type schema.
type CommandHandler func(ctx context.Context, id, deviceType string, commands []device.Attribute) error

// QueryResult is one device's answer to a query.
type QueryResult struct {
	ID         string
	Type       string
	Attributes []device.Attribute
}

// Handlers holds the installed device handlers. It is injected into the
// Dispatcher at construction rather than held in process-wide slots, so
// multiple agent instances can coexist in one process.
//
// At most one handler of each kind is installed at a time; installing
// replaces any prior handler. Dispatching with a required handler missing
// is a configuration error, reported distinctly from device-level errors.
type Handlers struct {
	mu      sync.RWMutex
	update  UpdateHandler
	query   QueryHandler
	command CommandHandler
}

// NewHandlers creates an empty handler set.
func NewHandlers() *Handlers {
	return &Handlers{}
}

// SetUpdateHandler installs the update handler, replacing any prior one.
func (h *Handlers) SetUpdateHandler(fn UpdateHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.update = fn
}

// SetQueryHandler installs the query handler, replacing any prior one.
func (h *Handlers) SetQueryHandler(fn QueryHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.query = fn
}

// SetCommandHandler installs the command handler, replacing any prior one.
func (h *Handlers) SetCommandHandler(fn CommandHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.command = fn
}

// HasCommandHandler reports whether a command handler is installed. Used
// during assembly to install a transport default without clobbering a
// consumer-provided handler.
func (h *Handlers) HasCommandHandler() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.command != nil
}

func (h *Handlers) updateHandler() UpdateHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.update
}

func (h *Handlers) queryHandler() QueryHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.query
}

func (h *Handlers) commandHandler() CommandHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.command
}
