package device

import "context"

// Repository is the persistence interface for device records. Two
// implementations exist: MemoryRepository (default) and SQLiteRepository
// (survives agent restarts). The backend is selected by configuration.
//
// All operations are tenant-scoped; an implementation must never return a
// record belonging to a different tenant.
type Repository interface {
	// Get retrieves a device by id. Returns ErrDeviceNotFound if absent.
	Get(ctx context.Context, tenant Tenant, id string) (*Device, error)

	// List returns all devices for the tenant.
	List(ctx context.Context, tenant Tenant) ([]Device, error)

	// Insert stores a new device. Returns ErrDeviceExists if the
	// (tenant, id) key is already present.
	Insert(ctx context.Context, d *Device) error

	// Delete removes a device. Returns ErrDeviceNotFound if absent.
	Delete(ctx context.Context, tenant Tenant, id string) error
}
