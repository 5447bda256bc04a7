package repository

import (
	"github.com/camden-git/pathclassifier/models"
	"gorm.io/gorm"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete removes the user with their submissions and scores in one transaction. The rows are
// deleted explicitly so the outcome does not depend on the driver enforcing the cascades.
func (r *GormUserRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Submission{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("submission_id IN (?)", owned).Delete(&models.Score{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormUserRepository) ListAll() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) SetUserGlobalPermissions(userID uint, permissions []string) error {
	// Updates with a struct runs the json serializer, Select keeps an empty list from being skipped
	return r.db.Model(&models.User{ID: userID}).
		Select("GlobalPermissions").
		Updates(&models.User{GlobalPermissions: permissions}).Error
}
