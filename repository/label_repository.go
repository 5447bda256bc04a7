package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/camden-git/pathclassifier/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LabelRepository handles database operations for Label entities
type LabelRepository struct {
	DB *gorm.DB
}

func NewLabelRepository(db *gorm.DB) *LabelRepository {
	return &LabelRepository{DB: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *LabelRepository) WithTx(tx *gorm.DB) *LabelRepository {
	return &LabelRepository{DB: tx}
}

// GetOrCreate retrieves the label with exactly this text, creating it if needed.
func (r *LabelRepository) GetOrCreate(ctx context.Context, text string) (*models.Label, error) {
	var label models.Label
	err := r.DB.WithContext(ctx).Where("text = ?", text).First(&label).Error
	if err == nil {
		return &label, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get label %q: %w", text, err)
	}

	label = models.Label{Text: text}
	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "text"}}, DoNothing: true}).
		Create(&label)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create label %q: %w", text, result.Error)
	}
	if result.RowsAffected > 0 && label.ID != 0 {
		return &label, nil
	}

	// another writer created it first
	label = models.Label{}
	if err := r.DB.WithContext(ctx).Where("text = ?", text).First(&label).Error; err != nil {
		return nil, fmt.Errorf("failed to re-read label %q after conflict: %w", text, err)
	}
	return &label, nil
}

// ListAll returns every label.
func (r *LabelRepository) ListAll(ctx context.Context) ([]models.Label, error) {
	var labels []models.Label
	if err := r.DB.WithContext(ctx).Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}
