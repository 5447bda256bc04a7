package models

import (
	"slices"
	"time"

	"github.com/camden-git/pathclassifier/permissions"
	"golang.org/x/crypto/bcrypt"
)

// User is an account that can browse submissions and, with the contributor
// capability, create them.
type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Username          string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email             string    `json:"email" gorm:"size:254"`
	PasswordHash      string    `json:"-" gorm:"not null"` // "-" means don't include in JSON responses
	IsActive          bool      `json:"is_active" gorm:"not null;default:true"`
	GlobalPermissions []string  `json:"global_permissions" gorm:"serializer:json"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// HasGlobalPermission checks if the user has a specific global permission.
func (u *User) HasGlobalPermission(permission string) bool {
	return slices.Contains(u.GlobalPermissions, permission)
}

// IsContributor reports whether the user may create submissions.
func (u *User) IsContributor() bool {
	return u.IsActive && u.HasGlobalPermission(permissions.SubmissionCreate)
}

// Grant adds a permission if it is not already held. Returns true when it changed.
func (u *User) Grant(permission string) bool {
	if u.HasGlobalPermission(permission) {
		return false
	}
	u.GlobalPermissions = append(u.GlobalPermissions, permission)
	return true
}

// Revoke removes a permission. Returns true when it changed.
func (u *User) Revoke(permission string) bool {
	idx := slices.Index(u.GlobalPermissions, permission)
	if idx < 0 {
		return false
	}
	u.GlobalPermissions = slices.Delete(u.GlobalPermissions, idx, idx+1)
	return true
}
