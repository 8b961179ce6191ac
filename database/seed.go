package database

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/auth"
)

// RunSeeds provisions the bootstrap data a fresh install needs: the platform
// admin identity (from ADMIN_EMAIL / ADMIN_PASSWORD) and a starter class with
// its subjects. Safe to run repeatedly.
func RunSeeds(db *gorm.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	return seedStarterCatalog(db)
}

func seedAdmin(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL / ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing model.Identity
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("Admin identity %s already exists, skipping", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check admin identity: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		identity := model.Identity{
			Email:           email,
			PasswordHash:    hash,
			Name:            "Administrator",
			IsPlatformAdmin: true,
		}
		if err := tx.Create(&identity).Error; err != nil {
			return fmt.Errorf("failed to create admin identity: %w", err)
		}
		profile := model.RoleProfile{IdentityID: identity.ID, Role: model.RoleAdmin}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create admin profile: %w", err)
		}
		log.Printf("Created admin identity %s", email)
		return nil
	})
}

func seedStarterCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.ClassGroup{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count class groups: %w", err)
	}
	if count > 0 {
		log.Println("Catalog already seeded, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		classGroup := model.ClassGroup{Name: "10", Section: "A"}
		if err := tx.Create(&classGroup).Error; err != nil {
			return fmt.Errorf("failed to create class group: %w", err)
		}

		subjects := []model.Subject{
			{Name: "Mathematics", Code: "MATH10", ClassGroupID: classGroup.ID, MaxMarks: 100, PassMarks: 35},
			{Name: "Science", Code: "SCI10", ClassGroupID: classGroup.ID, MaxMarks: 100, PassMarks: 35},
			{Name: "English", Code: "ENG10", ClassGroupID: classGroup.ID, MaxMarks: 100, PassMarks: 35},
		}
		for i := range subjects {
			if err := tx.Create(&subjects[i]).Error; err != nil {
				return fmt.Errorf("failed to create subject %s: %w", subjects[i].Code, err)
			}
		}

		log.Printf("Seeded class 10-A with %d subjects", len(subjects))
		return nil
	})
}
