package registration

import (
	"context"
	"sync"
	"time"

	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// Logger defines the logging interface used by the Manager.
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

// BrokerClient is the outbound NGSI9 surface the manager depends on.
// Satisfied by *Client; tests substitute their own.
type BrokerClient interface {
	RegisterContext(ctx context.Context, tenant device.Tenant, req ngsi.RegisterContextRequest) (*ngsi.RegisterContextResponse, error)
}

// Record is a live registration: the device it covers, the broker-assigned
// id used for renewal and cancellation, and the expiry deadline.
type Record struct {
	Device         device.Device
	Attributes     []device.AttributeDefinition
	RegistrationID string
	ExpiresAt      time.Time
}

// Config carries the manager's tenant-independent settings.
type Config struct {
	// ProviderURL is the callback URL the broker uses to reach this agent.
	ProviderURL string

	// Duration is the ISO 8601 validity window sent on the wire, e.g. "P1M".
	Duration string

	// CheckInterval is the renewal scan period. Zero selects a period
	// derived from Duration.
	CheckInterval time.Duration
}

// renewalMargin is how long before expiry a record becomes due for renewal.
const renewalMargin = 0.25

// Manager implements the registration lifecycle: register on first
// appearance, renew before expiry, cancel on removal. It holds the only
// mutable registration state in the agent. The records map is guarded by
// mu; register/renew/cancel for the same (tenant, device id) are serialised
// through a per-key lock held across the whole check-and-send, so the
// broker never sees two live registrations for one device.
type Manager struct {
	client      BrokerClient
	providerURL string
	durationStr string
	duration    time.Duration
	checkEvery  time.Duration
	throttle    *Throttle

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex // (tenant, device id) -> serialisation lock

	mu      sync.Mutex
	records map[string]*Record // (tenant, device id) -> live record

	logger Logger
}

// NewManager creates a registration manager. The throttle may be nil to
// disable outbound rate limiting.
func NewManager(client BrokerClient, cfg Config, throttle *Throttle) (*Manager, error) {
	dur, err := ngsi.ParseDuration(cfg.Duration)
	if err != nil {
		return nil, err
	}
	check := cfg.CheckInterval
	if check <= 0 {
		check = time.Duration(float64(dur) * renewalMargin / 2)
	}

	return &Manager{
		client:      client,
		providerURL: cfg.ProviderURL,
		durationStr: cfg.Duration,
		duration:    dur,
		checkEvery:  check,
		throttle:    throttle,
		keys:        make(map[string]*sync.Mutex),
		records:     make(map[string]*Record),
		logger:      noopLogger{},
	}, nil
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// DeviceEnsured implements device.Notifier: a newly created device is
// advertised to the broker. Failure is logged, never propagated; the
// declaration is retried on the device's next activity.
func (m *Manager) DeviceEnsured(ctx context.Context, d device.Device, def device.TypeDefinition) {
	if err := m.Register(ctx, d, def); err != nil {
		m.logger.Warn("device registration failed, will retry on next activity",
			"device_id", d.ID,
			"device_type", d.Type,
			"error", err,
		)
	}
}

// DeviceRemoved implements device.Notifier: the registration is cancelled
// best effort.
func (m *Manager) DeviceRemoved(ctx context.Context, d device.Device) {
	if err := m.Unregister(ctx, d); err != nil {
		m.logger.Warn("device unregistration failed",
			"device_id", d.ID,
			"error", err,
		)
	}
}

// Register sends a registration declaration for the device if its type
// provides lazy or command attributes, and stores the resulting record.
// A device with neither is a no-op: there is nothing to advertise.
func (m *Manager) Register(ctx context.Context, d device.Device, def device.TypeDefinition) error {
	provided := def.ProvidedAttributes()
	if len(provided) == 0 {
		return nil
	}

	lock := m.keyLock(d.Tenant, d.ID)
	lock.Lock()
	defer lock.Unlock()

	return m.register(ctx, d, provided)
}

// register performs one declaration send and stores the record. The
// device's key lock must be held.
func (m *Manager) register(ctx context.Context, d device.Device, provided []device.AttributeDefinition) error {
	// Renewals reuse the broker-assigned id so only one registration is
	// ever live for the device.
	var registrationID string
	m.mu.Lock()
	if rec, ok := m.records[recordKey(d.Tenant, d.ID)]; ok {
		registrationID = rec.RegistrationID
	}
	m.mu.Unlock()

	resp, err := m.send(ctx, d, provided, registrationID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records[recordKey(d.Tenant, d.ID)] = &Record{
		Device:         d,
		Attributes:     provided,
		RegistrationID: resp.RegistrationID,
		ExpiresAt:      time.Now().Add(m.duration),
	}
	m.mu.Unlock()

	m.logger.Info("device registered with broker",
		"device_id", d.ID,
		"device_type", d.Type,
		"registration_id", resp.RegistrationID,
		"attributes", len(provided),
	)
	return nil
}

// EnsureRegistered registers the device only if no live record exists.
// Called from the dispatch path so that a registration that failed at
// creation time is retried on the device's next activity. The liveness
// check and the send happen under the device's key lock; concurrent
// callers for the same device serialise, and all but the first find the
// stored record and return without a broker call.
func (m *Manager) EnsureRegistered(ctx context.Context, d device.Device, def device.TypeDefinition) {
	provided := def.ProvidedAttributes()
	if len(provided) == 0 {
		return
	}

	lock := m.keyLock(d.Tenant, d.ID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	_, live := m.records[recordKey(d.Tenant, d.ID)]
	m.mu.Unlock()
	if live {
		return
	}

	if err := m.register(ctx, d, provided); err != nil {
		m.logger.Warn("device registration failed, will retry on next activity",
			"device_id", d.ID,
			"device_type", d.Type,
			"error", err,
		)
	}
}

// Renew re-sends the declaration for a record before it expires. Renewal
// failure is logged and retried on the next scan, never fatal.
func (m *Manager) Renew(ctx context.Context, rec Record) error {
	lock := m.keyLock(rec.Device.Tenant, rec.Device.ID)
	lock.Lock()
	defer lock.Unlock()

	resp, err := m.send(ctx, rec.Device, rec.Attributes, rec.RegistrationID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if live, ok := m.records[recordKey(rec.Device.Tenant, rec.Device.ID)]; ok {
		live.RegistrationID = resp.RegistrationID
		live.ExpiresAt = time.Now().Add(m.duration)
	}
	m.mu.Unlock()

	m.logger.Debug("registration renewed",
		"device_id", rec.Device.ID,
		"registration_id", resp.RegistrationID,
	)
	return nil
}

// Unregister cancels the device's registration by re-sending it with a
// zero duration. The local record is dropped whether or not the broker
// call succeeds; cancellation is best effort.
func (m *Manager) Unregister(ctx context.Context, d device.Device) error {
	lock := m.keyLock(d.Tenant, d.ID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	rec, ok := m.records[recordKey(d.Tenant, d.ID)]
	if ok {
		delete(m.records, recordKey(d.Tenant, d.ID))
	}
	m.mu.Unlock()
	if !ok {
		return ErrNoRecord
	}

	req := ngsi.RegisterContextRequest{
		ContextRegistrations: m.contextRegistrations(d, rec.Attributes),
		Duration:             "PT0S",
		RegistrationID:       rec.RegistrationID,
	}
	if err := m.throttle.Wait(ctx, d.Tenant.Key()); err != nil {
		return err
	}
	if _, err := m.client.RegisterContext(ctx, d.Tenant, req); err != nil {
		return err
	}
	return nil
}

// Record returns a copy of the device's live registration record.
func (m *Manager) Record(tenant device.Tenant, id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(tenant, id)]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Start launches the background renewal loop. It runs until ctx is
// cancelled. The loop snapshots due records under the lock, then performs
// all broker calls outside it so request-driven registry mutation is never
// blocked on the network.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.checkEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.renewDue(ctx)
			}
		}
	}()
}

// renewDue renews every record that expires before the next scan would
// reach it again.
func (m *Manager) renewDue(ctx context.Context) {
	deadline := time.Now().Add(m.checkEvery + time.Duration(float64(m.duration)*renewalMargin))

	m.mu.Lock()
	due := make([]Record, 0)
	for _, rec := range m.records {
		if rec.ExpiresAt.Before(deadline) {
			due = append(due, *rec)
		}
	}
	m.mu.Unlock()

	for _, rec := range due {
		if err := m.Renew(ctx, rec); err != nil {
			m.logger.Warn("registration renewal failed, will retry",
				"device_id", rec.Device.ID,
				"error", err,
			)
		}
	}
}

// send performs one throttled registerContext call.
func (m *Manager) send(ctx context.Context, d device.Device, attrs []device.AttributeDefinition, registrationID string) (*ngsi.RegisterContextResponse, error) {
	req := ngsi.RegisterContextRequest{
		ContextRegistrations: m.contextRegistrations(d, attrs),
		Duration:             m.durationStr,
		RegistrationID:       registrationID,
	}
	if err := m.throttle.Wait(ctx, d.Tenant.Key()); err != nil {
		return nil, err
	}
	return m.client.RegisterContext(ctx, d.Tenant, req)
}

// contextRegistrations builds the NGSI9 payload body for one device.
func (m *Manager) contextRegistrations(d device.Device, attrs []device.AttributeDefinition) []ngsi.ContextRegistration {
	return []ngsi.ContextRegistration{{
		Entities: []ngsi.EntityRef{{
			Type:      d.Type,
			IsPattern: ngsi.PatternFalse,
			ID:        d.ID,
		}},
		Attributes:           ngsi.RegistrationAttributes(attrs),
		ProvidingApplication: m.providerURL,
	}}
}

// keyLock returns the serialisation lock for a (tenant, id) key, creating
// it on first use.
func (m *Manager) keyLock(tenant device.Tenant, id string) *sync.Mutex {
	key := recordKey(tenant, id)

	m.keyMu.Lock()
	defer m.keyMu.Unlock()

	lock, ok := m.keys[key]
	if !ok {
		lock = &sync.Mutex{}
		m.keys[key] = lock
	}
	return lock
}

func recordKey(tenant device.Tenant, id string) string {
	return tenant.Key() + "\x00" + id
}
