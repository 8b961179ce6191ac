package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/nileshk-dev/gurukul/database"
)

// dbping checks database connectivity without loading the ORM or running
// migrations. Useful as a container health probe and in deploy scripts.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	store, err := database.Start()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.HealthCheck(); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}

	log.Println("Database is reachable")
}
