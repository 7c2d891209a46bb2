package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/dispatch"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/mqtt"
	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Transport is the MQTT surface the bridge depends on.
// Satisfied by *mqtt.Client; tests substitute their own.
type Transport interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Bridge subscribes to device measure topics and dispatches each payload
// through the update path under the agent's default tenant.
type Bridge struct {
	transport  Transport
	topics     mqtt.Topics
	qos        byte
	dispatcher *dispatch.Dispatcher
	catalog    *device.Catalog
	tenant     device.Tenant
	logger     Logger
}

// Deps holds the dependencies required by the bridge.
type Deps struct {
	Transport   Transport
	TopicPrefix string
	QoS         byte
	Dispatcher  *dispatch.Dispatcher
	Catalog     *device.Catalog
	Tenant      device.Tenant
	Logger      Logger
}

// New creates the bridge. It does not subscribe until Start() is called.
func New(deps Deps) (*Bridge, error) {
	if deps.Transport == nil {
		return nil, fmt.Errorf("mqtt transport is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("type catalog is required")
	}
	return &Bridge{
		transport:  deps.Transport,
		topics:     mqtt.Topics{Prefix: deps.TopicPrefix},
		qos:        deps.QoS,
		dispatcher: deps.Dispatcher,
		catalog:    deps.Catalog,
		tenant:     deps.Tenant,
		logger:     deps.Logger,
	}, nil
}

// Start subscribes to the measure topic pattern. Messages are handled on
// the MQTT client's goroutines; each message is one dispatch.
func (b *Bridge) Start(ctx context.Context) error {
	return b.transport.Subscribe(b.topics.Measures(), b.qos, func(topic string, payload []byte) error {
		return b.handleMeasure(ctx, topic, payload)
	})
}

// handleMeasure translates one measure message into an update dispatch.
func (b *Bridge) handleMeasure(ctx context.Context, topic string, payload []byte) error {
	deviceType, deviceID, ok := b.topics.ParseMeasure(topic)
	if !ok {
		return fmt.Errorf("unexpected measure topic %q", topic)
	}

	var values map[string]any
	if err := json.Unmarshal(payload, &values); err != nil {
		return fmt.Errorf("malformed measure payload on %q: %w", topic, err)
	}
	if len(values) == 0 {
		return nil
	}

	req := ngsi.UpdateContextRequest{
		ContextElements: []ngsi.ContextElement{{
			Type:       deviceType,
			IsPattern:  ngsi.PatternFalse,
			ID:         deviceID,
			Attributes: b.wireAttributes(deviceType, values),
		}},
		UpdateAction: ngsi.UpdateActionAppend,
	}

	resp := b.dispatcher.UpdateContext(ctx, b.tenant, req)
	for _, cr := range resp.ContextResponses {
		if cr.StatusCode.Code != "200" {
			b.logger.Warn("mqtt measure dispatch failed",
				"device_id", deviceID,
				"device_type", deviceType,
				"code", cr.StatusCode.Code,
				"details", cr.StatusCode.Details,
			)
		}
	}
	return nil
}

// wireAttributes builds the attribute list for a measure payload, typing
// known names from the declared schema.
func (b *Bridge) wireAttributes(deviceType string, values map[string]any) []ngsi.Attribute {
	declared := make(map[string]string)
	if def, err := b.catalog.Resolve(b.tenant, deviceType); err == nil {
		for _, a := range def.Active {
			declared[a.Name] = a.Type
		}
		for _, a := range def.Lazy {
			declared[a.Name] = a.Type
		}
	}

	attrs := make([]ngsi.Attribute, 0, len(values))
	for name, value := range values {
		attrs = append(attrs, ngsi.Attribute{
			Name:  name,
			Type:  declared[name],
			Value: value,
		})
	}
	return attrs
}

// CommandHandler returns a dispatch command handler that forwards command
// attributes to the device's command topic as a JSON object.
func (b *Bridge) CommandHandler() dispatch.CommandHandler {
	return func(_ context.Context, id, deviceType string, commands []device.Attribute) error {
		payload := make(map[string]any, len(commands))
		for _, c := range commands {
			payload[c.Name] = c.Value
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding command payload: %w", err)
		}
		return b.transport.Publish(b.topics.Command(deviceType, id), body, b.qos, false)
	}
}
