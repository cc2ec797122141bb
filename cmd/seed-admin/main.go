// seed-admin creates or updates the platform console user. Platform admins
// have role 'platform-admin' and no school; they see every tenant.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   PLATFORM_ADMIN_EMAIL=... PLATFORM_ADMIN_PASSWORD=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"gorm.io/gorm"
)

const adminName = "Platform Admin"

func main() {
	email := os.Getenv("PLATFORM_ADMIN_EMAIL")
	password := os.Getenv("PLATFORM_ADMIN_PASSWORD")
	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "PLATFORM_ADMIN_EMAIL and PLATFORM_ADMIN_PASSWORD are required.")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// Platform admins carry no school_id; bypass tenant scoping explicitly.
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Name:     adminName,
			Email:    email,
			Password: string(hashed),
			IsActive: utils.NewTrue(),
			Role:     models.UserRolePlatformAdmin,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create platform admin: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created platform admin: email=%q\n", email)
		return
	}

	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Updates(map[string]any{
		"password":  string(hashed),
		"name":      adminName,
		"is_active": utils.NewTrue(),
		"role":      models.UserRolePlatformAdmin,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update platform admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated platform admin: email=%q\n", email)
}
