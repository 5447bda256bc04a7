package repository

import (
	"github.com/camden-git/pathclassifier/models"
)

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	ListAll() ([]models.User, error)

	// direct global permission management for a user
	SetUserGlobalPermissions(userID uint, permissions []string) error
}
