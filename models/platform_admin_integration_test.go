package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/models"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

// Exercises the same insert cmd/seed-admin performs: the role column must
// accept 'platform-admin' and the account must be able to log in without a
// school.
func TestPlatformAdminInsertAndLogin(t *testing.T) {
	ctx := startIntegrationEnv(t)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	const email = "platform@console.test"
	const password = "consolepassword1"

	hashed, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := models.User{
		Name:     "Platform Admin",
		Email:    email,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
		Role:     models.UserRolePlatformAdmin,
	}
	// Strict-mode MySQL rejects values outside the column enum, so a create
	// failure here means the schema lost the platform-admin role.
	if err := config.GetDB().WithContext(ctx).Create(&admin).Error; err != nil {
		t.Fatalf("create platform admin: %v", err)
	}

	result, err := models.Login(ctx, &models.LoginInput{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("login returned empty token")
	}
	if result.User.Role != models.UserRolePlatformAdmin {
		t.Fatalf("logged-in role = %s; want platform-admin", result.User.Role)
	}
	if result.User.SchoolId != "" {
		t.Fatalf("platform admin carries school id %q; want none", result.User.SchoolId)
	}

	// The API-facing role set still excludes platform-admin.
	if models.UserRolePlatformAdmin.Valid() {
		t.Fatalf("platform-admin must not be a valid school-user role")
	}
}
