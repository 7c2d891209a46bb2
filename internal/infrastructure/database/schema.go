package database

import (
	"context"
	"fmt"
)

// schema holds the persistent registry tables. Statements are idempotent so
// InitSchema can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS devices (
		device_id   TEXT NOT NULL,
		device_type TEXT NOT NULL,
		service     TEXT NOT NULL,
		subservice  TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (service, subservice, device_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_tenant
		ON devices (service, subservice)`,
}

// InitSchema creates the registry tables if they do not exist.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initialising schema: %w", err)
		}
	}
	return nil
}
