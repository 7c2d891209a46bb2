package dispatch

import (
	"context"
	"errors"

	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registrar lets the dispatcher nudge the registration manager on device
// activity, so a declaration that failed at creation time gets retried.
type Registrar interface {
	EnsureRegistered(ctx context.Context, d device.Device, def device.TypeDefinition)
}

// Dispatcher routes the three inbound request kinds to the installed
// handlers. It holds no per-request state; everything it needs arrives with
// the call or lives in the registry and handler set.
type Dispatcher struct {
	registry  *device.Registry
	handlers  *Handlers
	registrar Registrar
	logger    Logger
}

// NewDispatcher creates a dispatcher over the given registry and handler
// set. The registrar is optional.
func NewDispatcher(registry *device.Registry, handlers *Handlers) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		handlers: handlers,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetRegistrar installs the registration-retry hook.
func (d *Dispatcher) SetRegistrar(r Registrar) {
	d.registrar = r
}

// UpdateContext handles a broker-initiated attribute push. Each context
// element is processed independently: resolved against the registry,
// translated, and delivered to the update handler (command-declared
// attributes go to the command handler instead). The response echoes every
// entity with its own status.
func (d *Dispatcher) UpdateContext(ctx context.Context, tenant device.Tenant, req ngsi.UpdateContextRequest) ngsi.UpdateContextResponse {
	resp := ngsi.UpdateContextResponse{
		ContextResponses: make([]ngsi.ContextResponse, 0, len(req.ContextElements)),
	}
	for _, el := range req.ContextElements {
		status := d.processUpdate(ctx, tenant, el)
		if status.Code != "200" {
			d.logger.Warn("update dispatch failed",
				"device_id", el.ID,
				"device_type", el.Type,
				"code", status.Code,
				"details", status.Details,
			)
		}
		resp.ContextResponses = append(resp.ContextResponses, ngsi.ContextResponse{
			ContextElement: echoElement(el),
			StatusCode:     status,
		})
	}
	return resp
}

// processUpdate runs one element through resolving-device and
// invoking-handler, returning the terminal status.
func (d *Dispatcher) processUpdate(ctx context.Context, tenant device.Tenant, el ngsi.ContextElement) ngsi.StatusCode {
	if el.ID == "" || el.Type == "" {
		return ngsi.StatusBadRequest("entity id and type are required")
	}

	dev, err := d.registry.Ensure(ctx, tenant, el.ID, el.Type)
	if err != nil {
		return statusFor(err)
	}
	def, err := d.registry.Schema(dev)
	if err != nil {
		return statusFor(err)
	}
	d.retryRegistration(ctx, dev, def)

	attrs := ngsi.ToDeviceAttributes(el)
	var commands, updates []device.Attribute
	for _, a := range attrs {
		if def.IsCommand(a.Name) {
			commands = append(commands, a)
		} else {
			updates = append(updates, a)
		}
	}

	if len(commands) > 0 {
		handler := d.handlers.commandHandler()
		if handler == nil {
			return statusFor(ErrCommandHandlerNotSet)
		}
		if err := handler(ctx, dev.ID, dev.Type, commands); err != nil {
			return statusFor(err)
		}
	}

	if len(updates) > 0 || len(commands) == 0 {
		handler := d.handlers.updateHandler()
		if handler == nil {
			return statusFor(ErrUpdateHandlerNotSet)
		}
		// Last write wins per attribute at the point the handler is
		// invoked; anything beyond that is the handler's concern.
		d.registry.ApplyValues(tenant, dev.ID, updates)
		if err := handler(ctx, dev.ID, dev.Type, updates); err != nil {
			return statusFor(err)
		}
	}

	return ngsi.StatusOK()
}

// QueryContext handles a broker-initiated pull of lazy attributes. Unknown
// devices yield a per-entity 404 without invoking the query handler;
// siblings in the batch are unaffected.
func (d *Dispatcher) QueryContext(ctx context.Context, tenant device.Tenant, req ngsi.QueryContextRequest) ngsi.QueryContextResponse {
	var resp ngsi.QueryContextResponse
	for _, ref := range req.Entities {
		resp.ContextResponses = append(resp.ContextResponses, d.processQuery(ctx, tenant, ref, req.Attributes)...)
	}
	return resp
}

// processQuery resolves one entity reference and collects the handler's
// results. A type-scoped (pattern) reference skips id resolution and may
// fan out to several devices of the type.
func (d *Dispatcher) processQuery(ctx context.Context, tenant device.Tenant, ref ngsi.EntityRef, attrNames []string) []ngsi.ContextResponse {
	if ref.Type == "" || (ref.ID == "" && ref.IsPattern != ngsi.PatternTrue) {
		return []ngsi.ContextResponse{queryFailure(ref, ngsi.StatusBadRequest("entity id and type are required"))}
	}

	if ref.IsPattern != ngsi.PatternTrue {
		dev, err := d.registry.Find(ctx, tenant, ref.ID)
		if err != nil {
			return []ngsi.ContextResponse{queryFailure(ref, statusFor(err))}
		}
		if dev.Type != ref.Type {
			return []ngsi.ContextResponse{queryFailure(ref, statusFor(device.ErrTypeMismatch))}
		}
		if def, schemaErr := d.registry.Schema(dev); schemaErr == nil {
			d.retryRegistration(ctx, dev, def)
		}
	}

	handler := d.handlers.queryHandler()
	if handler == nil {
		return []ngsi.ContextResponse{queryFailure(ref, statusFor(ErrQueryHandlerNotSet))}
	}

	results, err := handler(ctx, ref.ID, ref.Type, attrNames)
	if err != nil {
		d.logger.Warn("query dispatch failed",
			"device_id", ref.ID,
			"device_type", ref.Type,
			"error", err,
		)
		return []ngsi.ContextResponse{queryFailure(ref, statusFor(err))}
	}

	responses := make([]ngsi.ContextResponse, 0, len(results))
	for _, res := range results {
		values := filterAttributes(res.Attributes, attrNames)
		responses = append(responses, ngsi.ContextResponse{
			ContextElement: ngsi.ToWireEntity(res.ID, res.Type, values),
			StatusCode:     ngsi.StatusOK(),
		})
	}
	return responses
}

// Notification handles an out-of-band device notification. It is
// structurally an update: the contained context elements are fed through
// the same update path, producing identical handler invocations.
func (d *Dispatcher) Notification(ctx context.Context, tenant device.Tenant, req ngsi.NotificationRequest) ngsi.UpdateContextResponse {
	update := ngsi.UpdateContextRequest{
		ContextElements: make([]ngsi.ContextElement, 0, len(req.ContextResponses)),
		UpdateAction:    ngsi.UpdateActionAppend,
	}
	for _, cr := range req.ContextResponses {
		update.ContextElements = append(update.ContextElements, cr.ContextElement)
	}
	return d.UpdateContext(ctx, tenant, update)
}

// retryRegistration nudges the registration manager on device activity.
func (d *Dispatcher) retryRegistration(ctx context.Context, dev *device.Device, def device.TypeDefinition) {
	if d.registrar != nil {
		d.registrar.EnsureRegistered(ctx, *dev, def)
	}
}

// echoElement returns the element as it appears in the response envelope.
func echoElement(el ngsi.ContextElement) ngsi.ContextElement {
	if el.IsPattern == "" {
		el.IsPattern = ngsi.PatternFalse
	}
	return el
}

// queryFailure builds the per-entity failure response for a query.
func queryFailure(ref ngsi.EntityRef, status ngsi.StatusCode) ngsi.ContextResponse {
	return ngsi.ContextResponse{
		ContextElement: ngsi.ContextElement{
			Type:      ref.Type,
			IsPattern: ref.IsPattern,
			ID:        ref.ID,
		},
		StatusCode: status,
	}
}

// filterAttributes keeps only the requested attribute names. An empty
// request list means "everything the handler supplied". Attributes the
// handler omitted are simply absent, never defaulted.
func filterAttributes(attrs []device.Attribute, names []string) []device.Attribute {
	if len(names) == 0 {
		return attrs
	}
	requested := make(map[string]struct{}, len(names))
	for _, n := range names {
		requested[n] = struct{}{}
	}
	filtered := make([]device.Attribute, 0, len(attrs))
	for _, a := range attrs {
		if _, ok := requested[a.Name]; ok {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// statusFor maps an error to its NGSI status code.
func statusFor(err error) ngsi.StatusCode {
	switch {
	case err == nil:
		return ngsi.StatusOK()
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, device.ErrTypeNotFound):
		return ngsi.StatusNotFound()
	case errors.Is(err, device.ErrTypeMismatch), errors.Is(err, device.ErrInvalidDevice):
		return ngsi.StatusBadRequest(err.Error())
	case errors.Is(err, ErrUpdateHandlerNotSet),
		errors.Is(err, ErrQueryHandlerNotSet),
		errors.Is(err, ErrCommandHandlerNotSet):
		return ngsi.StatusHandlerNotImplemented()
	default:
		return ngsi.StatusInternalError(err.Error())
	}
}
