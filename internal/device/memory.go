package device

import (
	"context"
	"sync"
)

// MemoryRepository is the default, process-lifetime device store. Records
// are partitioned by tenant key; lookups never cross partitions.
type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]map[string]*Device // tenant key -> device id -> record
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tenants: make(map[string]map[string]*Device),
	}
}

// Get retrieves a device by id for the tenant.
func (m *MemoryRepository) Get(_ context.Context, tenant Tenant, id string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if d, ok := m.tenants[tenant.Key()][id]; ok {
		return d.Copy(), nil
	}
	return nil, ErrDeviceNotFound
}

// List returns all devices for the tenant.
func (m *MemoryRepository) List(_ context.Context, tenant Tenant) ([]Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := m.tenants[tenant.Key()]
	devices := make([]Device, 0, len(byID))
	for _, d := range byID {
		devices = append(devices, *d.Copy())
	}
	return devices, nil
}

// Insert stores a new device record.
func (m *MemoryRepository) Insert(_ context.Context, d *Device) error {
	if d == nil || d.ID == "" || d.Type == "" {
		return ErrInvalidDevice
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.tenants[d.Tenant.Key()]
	if !ok {
		byID = make(map[string]*Device)
		m.tenants[d.Tenant.Key()] = byID
	}
	if _, exists := byID[d.ID]; exists {
		return ErrDeviceExists
	}
	byID[d.ID] = d.Copy()
	return nil
}

// Delete removes a device record.
func (m *MemoryRepository) Delete(_ context.Context, tenant Tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := m.tenants[tenant.Key()]
	if _, ok := byID[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(byID, id)
	return nil
}
