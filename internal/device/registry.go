package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Notifier receives device lifecycle events. The registration manager
// implements this to advertise and withdraw context availability without
// the device package depending on it.
type Notifier interface {
	// DeviceEnsured is called after a device is created for the first time.
	// Failures are the notifier's concern; they must not fail Ensure.
	DeviceEnsured(ctx context.Context, d Device, def TypeDefinition)

	// DeviceRemoved is called after a device is deleted.
	DeviceRemoved(ctx context.Context, d Device)
}

// Registry provides tenant-partitioned device lifecycle management on top
// of a Repository backend.
//
// Mutations for the same (tenant, id) key are serialised through a per-key
// lock; operations on disjoint devices proceed independently. The registry
// also keeps a last-write-wins snapshot of the most recent attribute values
// seen per device, updated at the point a handler call is made.
type Registry struct {
	catalog *Catalog
	repo    Repository

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex // (tenant, id) -> serialisation lock

	valMu  sync.RWMutex
	values map[string]map[string]Attribute // (tenant, id) -> attribute name -> last value

	notifier Notifier
	logger   Logger
}

// NewRegistry creates a new device registry over the given catalog and
// repository backend.
func NewRegistry(catalog *Catalog, repo Repository) *Registry {
	return &Registry{
		catalog: catalog,
		repo:    repo,
		keys:    make(map[string]*sync.Mutex),
		values:  make(map[string]map[string]Attribute),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetNotifier installs the lifecycle notifier. Must be called before the
// registry starts receiving traffic.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// Ensure returns the existing device for (tenant, id) or creates one with
// the given type. Idempotent on (tenant, id, type); referencing a known id
// with a different type returns ErrTypeMismatch. The type must be declared
// in the tenant's catalog.
func (r *Registry) Ensure(ctx context.Context, tenant Tenant, id, typeName string) (*Device, error) {
	if id == "" || typeName == "" {
		return nil, ErrInvalidDevice
	}

	lock := r.keyLock(tenant, id)
	lock.Lock()
	d, def, created, err := r.ensureLocked(ctx, tenant, id, typeName)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	// The notifier performs throttled broker I/O; it runs outside the key
	// lock so concurrent requests for the device never wait on the network.
	// Creation happened exactly once under the lock, so this fires once.
	if created && r.notifier != nil {
		r.notifier.DeviceEnsured(ctx, *d, def)
	}
	return d.Copy(), nil
}

// ensureLocked is the lookup-or-create step of Ensure. The device's key
// lock must be held.
func (r *Registry) ensureLocked(ctx context.Context, tenant Tenant, id, typeName string) (*Device, TypeDefinition, bool, error) {
	existing, err := r.repo.Get(ctx, tenant, id)
	switch {
	case err == nil:
		if existing.Type != typeName {
			return nil, TypeDefinition{}, false, fmt.Errorf("%w: device %q is %q, referenced as %q",
				ErrTypeMismatch, id, existing.Type, typeName)
		}
		return existing, TypeDefinition{}, false, nil
	case errors.Is(err, ErrDeviceNotFound):
		// fall through to creation
	default:
		return nil, TypeDefinition{}, false, err
	}

	def, err := r.catalog.Resolve(tenant, typeName)
	if err != nil {
		return nil, TypeDefinition{}, false, err
	}

	now := time.Now().UTC()
	d := &Device{
		ID:        id,
		Type:      typeName,
		Tenant:    tenant,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Insert(ctx, d); err != nil {
		return nil, TypeDefinition{}, false, err
	}
	r.logger.Info("device registered",
		"device_id", id,
		"device_type", typeName,
		"service", tenant.Service,
		"subservice", tenant.Subservice,
	)
	return d, def, true, nil
}

// Find retrieves a device by id. Returns ErrDeviceNotFound if the tenant
// has no such device.
func (r *Registry) Find(ctx context.Context, tenant Tenant, id string) (*Device, error) {
	return r.repo.Get(ctx, tenant, id)
}

// List returns all devices for the tenant.
func (r *Registry) List(ctx context.Context, tenant Tenant) ([]Device, error) {
	return r.repo.List(ctx, tenant)
}

// Schema resolves a device's effective attribute schema from its type and
// the tenant catalog.
func (r *Registry) Schema(d *Device) (TypeDefinition, error) {
	return r.catalog.Resolve(d.Tenant, d.Type)
}

// Remove deregisters a device. The lifecycle notifier is informed so the
// broker registration can be withdrawn (best effort).
func (r *Registry) Remove(ctx context.Context, tenant Tenant, id string) error {
	lock := r.keyLock(tenant, id)
	lock.Lock()
	d, err := r.removeLocked(ctx, tenant, id)
	lock.Unlock()
	if err != nil {
		return err
	}

	// Outside the key lock, same as Ensure: withdrawal is a broker call.
	if r.notifier != nil {
		r.notifier.DeviceRemoved(ctx, *d)
	}
	return nil
}

// removeLocked deletes the record and its value snapshot. The device's key
// lock must be held.
func (r *Registry) removeLocked(ctx context.Context, tenant Tenant, id string) (*Device, error) {
	d, err := r.repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Delete(ctx, tenant, id); err != nil {
		return nil, err
	}

	r.valMu.Lock()
	delete(r.values, valueKey(tenant, id))
	r.valMu.Unlock()

	r.logger.Info("device removed",
		"device_id", id,
		"service", tenant.Service,
		"subservice", tenant.Subservice,
	)
	return d, nil
}

// ApplyValues records the latest observed value per attribute for a device,
// last write wins. Called by the dispatch layer at the point the update
// handler is invoked; conflict resolution beyond this is the handler's
// responsibility.
func (r *Registry) ApplyValues(tenant Tenant, id string, attrs []Attribute) {
	if len(attrs) == 0 {
		return
	}

	r.valMu.Lock()
	defer r.valMu.Unlock()

	key := valueKey(tenant, id)
	byName, ok := r.values[key]
	if !ok {
		byName = make(map[string]Attribute, len(attrs))
		r.values[key] = byName
	}
	for _, a := range attrs {
		byName[a.Name] = a
	}
}

// LastValues returns the last-write-wins snapshot for a device, or nil if
// no values have been observed.
func (r *Registry) LastValues(tenant Tenant, id string) []Attribute {
	r.valMu.RLock()
	defer r.valMu.RUnlock()

	byName, ok := r.values[valueKey(tenant, id)]
	if !ok {
		return nil
	}
	attrs := make([]Attribute, 0, len(byName))
	for _, a := range byName {
		attrs = append(attrs, a)
	}
	return attrs
}

// keyLock returns the serialisation lock for a (tenant, id) key, creating
// it on first use.
func (r *Registry) keyLock(tenant Tenant, id string) *sync.Mutex {
	key := valueKey(tenant, id)

	r.keyMu.Lock()
	defer r.keyMu.Unlock()

	lock, ok := r.keys[key]
	if !ok {
		lock = &sync.Mutex{}
		r.keys[key] = lock
	}
	return lock
}

func valueKey(tenant Tenant, id string) string {
	return tenant.Key() + "\x00" + id
}
