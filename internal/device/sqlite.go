package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteRepository implements Repository using SQLite, so provisioned
// devices survive agent restarts.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the devices
// table already initialised (see database.InitSchema).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get retrieves a device by id for the tenant.
func (r *SQLiteRepository) Get(ctx context.Context, tenant Tenant, id string) (*Device, error) {
	query := `
		SELECT device_id, device_type, service, subservice, created_at, updated_at
		FROM devices
		WHERE service = ? AND subservice = ? AND device_id = ?`

	row := r.db.QueryRowContext(ctx, query, tenant.Service, tenant.Subservice, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices for the tenant.
func (r *SQLiteRepository) List(ctx context.Context, tenant Tenant) ([]Device, error) {
	query := `
		SELECT device_id, device_type, service, subservice, created_at, updated_at
		FROM devices
		WHERE service = ? AND subservice = ?
		ORDER BY device_id`

	rows, err := r.db.QueryContext(ctx, query, tenant.Service, tenant.Subservice)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var devices []Device
	for rows.Next() {
		d, scanErr := scanDevice(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning device row: %w", scanErr)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// Insert stores a new device record.
func (r *SQLiteRepository) Insert(ctx context.Context, d *Device) error {
	if d == nil || d.ID == "" || d.Type == "" {
		return ErrInvalidDevice
	}

	query := `
		INSERT INTO devices (device_id, device_type, service, subservice, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Type, d.Tenant.Service, d.Tenant.Subservice,
		d.CreatedAt.UTC().Format(time.RFC3339Nano),
		d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Delete removes a device record.
func (r *SQLiteRepository) Delete(ctx context.Context, tenant Tenant, id string) error {
	query := `DELETE FROM devices WHERE service = ? AND subservice = ? AND device_id = ?`

	res, err := r.db.ExecContext(ctx, query, tenant.Service, tenant.Subservice, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDevice.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice reads one device row into a Device.
func scanDevice(row rowScanner) (*Device, error) {
	var (
		d                    Device
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &d.Type, &d.Tenant.Service, &d.Tenant.Subservice, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

// isUniqueConstraintError reports whether err is a SQLite unique constraint
// violation. The driver does not export a typed error for this.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
