// Package database manages the SQLite connection backing the persistent
// device registry. The default registry backend is in-memory; this package
// is only wired in when registry.backend is "sqlite" in config.yaml.
package database
