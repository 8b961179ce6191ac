package app

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/api"
	"github.com/nileshk-dev/gurukul/config"
	"github.com/nileshk-dev/gurukul/database"
	"github.com/nileshk-dev/gurukul/router"
	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/services/cron"
)

// SetupAndRunServer wires the whole application and blocks on the listener.
func SetupAndRunServer() error {
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	store, err := database.StartGORM()
	if err != nil {
		print("Check whether Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to run database migrations\n")
		return err
	}

	// Scheduled housekeeping (notification and log cleanup). Records and
	// results are never mutated from cron.
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		db, ok := store.GetDB().(*gorm.DB)
		if !ok {
			print("Warning: Failed to get database connection for cron jobs\n")
		} else {
			notifications := services.NewNotificationService(db, services.NewEmailService())
			cronManager = cron.NewCronManager(db, notifications)
			if err := cronManager.Start(); err != nil {
				print("Warning: Failed to start cron jobs\n")
				print("Error: ", err.Error(), "\n")
			}
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	app.Use(logger.New())
	app.Use(recover.New())

	router.SetupRoutes(app, store)

	return server.Run()
}
