package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"github.com/nileshk-dev/gurukul/config"
)

// PostgreSQLStore is a raw database/sql backend. It carries no schema logic
// and is used by ops tooling (cmd/dbping) that only needs connectivity.
type PostgreSQLStore struct {
	db *sql.DB
}

func Start() (*PostgreSQLStore, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	connectStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv.DB_HOST, getEnv.DB_PORT, getEnv.DB_USER_NAME, getEnv.DB_PASSWORD, getEnv.DB_NAME, getEnv.DB_SSL_MODE)

	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		fmt.Println("Unable to start PostgreSQL database.")
		return nil, err
	}

	log.Println("Successfully connected to PostgreSQL Database.")
	return &PostgreSQLStore{
		db: db,
	}, nil
}

func (s *PostgreSQLStore) Init() error {
	// Schema is owned by the GORM store; nothing to migrate here.
	return s.db.Ping()
}

func (s *PostgreSQLStore) Close() error {
	log.Println("Closing PostgreSQL database.")
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

// GetDB returns the raw *sql.DB handle
func (s *PostgreSQLStore) GetDB() interface{} {
	return s.db
}
