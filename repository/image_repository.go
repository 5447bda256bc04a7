package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/camden-git/pathclassifier/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImageFactory builds the row for a hash seen for the first time.
type ImageFactory func() (*models.Image, error)

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *ImageRepository) WithTx(tx *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: tx}
}

// GetByID retrieves an image including its thumbnail bytes.
func (r *ImageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.WithContext(ctx).First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image %d: %w", id, err)
	}
	return &image, nil
}

// GetByHash retrieves the image stored for a content hash.
func (r *ImageRepository) GetByHash(ctx context.Context, contentHash string) (*models.Image, error) {
	var image models.Image
	err := r.DB.WithContext(ctx).Where("content_hash = ?", contentHash).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image by hash %s: %w", contentHash, err)
	}
	return &image, nil
}

// GetOrCreate returns the image for contentHash, inserting the one built by factory when
// none is stored yet. A concurrent insert of the same hash is absorbed by the unique index:
// the loser re-reads the winner's row, so the first thumbnail is the one kept. created
// reports whether this call inserted the row.
func (r *ImageRepository) GetOrCreate(ctx context.Context, contentHash string, factory ImageFactory) (*models.Image, bool, error) {
	existing, err := r.GetByHash(ctx, contentHash)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	image, err := factory()
	if err != nil {
		return nil, false, err
	}
	image.ContentHash = contentHash

	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "content_hash"}}, DoNothing: true}).
		Create(image)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to insert image %s: %w", contentHash, result.Error)
	}
	if result.RowsAffected > 0 && image.ID != 0 {
		return image, true, nil
	}

	// lost the race
	existing, err = r.GetByHash(ctx, contentHash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read image %s after conflict: %w", contentHash, err)
	}
	return existing, false, nil
}
