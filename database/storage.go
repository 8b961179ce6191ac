package database

// Storage defines the interface the application expects from a database
// backend. GORMStore is the implementation used in production; the raw
// PostgreSQLStore remains for tooling that only needs connectivity checks.
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error

	// GetDB returns the underlying handle: *gorm.DB for GORMStore,
	// *sql.DB for PostgreSQLStore.
	GetDB() interface{}
}
