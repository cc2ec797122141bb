package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
)

type User struct {
	ID       int      `gorm:"primary_key" json:"id"`
	SchoolId string   `gorm:"index;not null" json:"school_id" binding:"required"`
	Name     string   `gorm:"size:100;not null" json:"name" binding:"required"`
	Email    string   `gorm:"size:100;not null;uniqueIndex" json:"email" binding:"required"`
	Phone    string   `gorm:"size:20" json:"phone"`
	Password string   `gorm:"size:255;not null" json:"-"`
	// 'platform-admin' is in the column enum so seed-admin can insert it, but
	// it is rejected by NewUser validation; API-created users stay school roles.
	Role     UserRole `gorm:"type:enum('platform-admin','admin','accountant','teacher','parent');not null;default:'teacher'" json:"role"`
	IsActive *bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Phone    string   `json:"phone" binding:"omitempty,phone"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (input *NewUser) validate(ctx context.Context, schoolId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[User](ctx, schoolId, id); err != nil {
			return err
		}
	}
	if !input.Role.Valid() {
		return errors.New("invalid role")
	}
	if err := utils.ValidateUnique[User](ctx, schoolId, "email", input.Email, id); err != nil {
		return err
	}
	return nil
}

func CreateUser(ctx context.Context, schoolId string, input *NewUser) (*User, error) {
	if err := input.validate(ctx, schoolId, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	phone := input.Phone
	if phone != "" {
		phone, err = utils.NormalizePhone(phone, "")
		if err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	user := User{
		SchoolId: schoolId,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    phone,
		Password: string(hashed),
		Role:     input.Role,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func UpdateUser(ctx context.Context, schoolId string, id int, input *NewUser) (*User, error) {
	if err := input.validate(ctx, schoolId, id); err != nil {
		return nil, err
	}

	user, err := utils.FetchModel[User](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":  input.Name,
		"email": input.Email,
		"role":  input.Role,
	}
	if input.Phone != "" {
		phone, err := utils.NormalizePhone(input.Phone, "")
		if err != nil {
			return nil, errors.New("invalid phone number")
		}
		updates["phone"] = phone
	}
	if input.Password != "" {
		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = string(hashed)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func ToggleActiveUser(ctx context.Context, schoolId string, id int, isActive bool) (*User, error) {
	user, err := utils.FetchModel[User](ctx, schoolId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUser(ctx context.Context, schoolId string, id int) (*User, error) {
	return utils.FetchModel[User](ctx, schoolId, id)
}

func ListUsers(ctx context.Context, schoolId string, role UserRole) ([]*User, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("school_id = ?", schoolId)
	if role != "" {
		dbCtx = dbCtx.Where("role = ?", role)
	}
	var users []*User
	if err := dbCtx.Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Login verifies credentials and issues a JWT carrying the user's school scope.
// Runs without a tenant context; the email+school pair is looked up directly.
func Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	db := config.GetDB()

	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	var user User
	if err := db.WithContext(ctx).Where("email = ?", input.Email).First(&user).Error; err != nil {
		return nil, errors.New("invalid email or password")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("account is deactivated")
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, errors.New("invalid email or password")
	}
	if user.SchoolId != "" {
		var school School
		if err := db.WithContext(ctx).Select("is_active").Where("id = ?", user.SchoolId).First(&school).Error; err != nil {
			return nil, errors.New("invalid email or password")
		}
		if school.IsActive == nil || !*school.IsActive {
			return nil, errors.New("school is deactivated")
		}
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role), user.SchoolId)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: &user}, nil
}
