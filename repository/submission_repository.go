package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/camden-git/pathclassifier/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SubmissionRepository handles database operations for Submission and Score entities
type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

// Create inserts the submission row only, associations are not saved.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// CreateScores batch inserts the scores of one submission.
func (r *SubmissionRepository) CreateScores(ctx context.Context, scores []models.Score) error {
	if len(scores) == 0 {
		return nil
	}
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(&scores).Error; err != nil {
		return fmt.Errorf("failed to create scores: %w", err)
	}
	return nil
}

// GetByID loads a submission with its image, expected label and scores (highest first).
func (r *SubmissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	err := r.withDetails(ctx).First(&submission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get submission %d: %w", id, err)
	}
	return &submission, nil
}

// Count returns the number of submissions matching cond.
func (r *SubmissionRepository) Count(ctx context.Context, cond sq.Sqlizer) (int64, error) {
	queryBuilder := psql.Select("COUNT(*)").From("submissions").Where(cond)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for Count: %w", err)
	}

	var count int64
	if err := r.DB.WithContext(ctx).Raw(sqlStr, args...).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// Search returns one window of the submissions matching cond, newest id first, with the
// same eager loading as GetByID.
func (r *SubmissionRepository) Search(ctx context.Context, cond sq.Sqlizer, offset, limit int) ([]models.Submission, error) {
	queryBuilder := psql.Select("submissions.id").
		From("submissions").
		Where(cond).
		OrderBy("submissions.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for Search: %w", err)
	}

	var ids []uint
	if err := r.DB.WithContext(ctx).Raw(sqlStr, args...).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to search submissions: %w", err)
	}
	if len(ids) == 0 {
		return []models.Submission{}, nil
	}

	var submissions []models.Submission
	err = r.withDetails(ctx).
		Where("submissions.id IN ?", ids).
		Order("submissions.id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	return submissions, nil
}

func (r *SubmissionRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Image").
		Preload("ExpectedLabel").
		Preload("Scores", func(db *gorm.DB) *gorm.DB {
			return db.Order("scores.score DESC, scores.id ASC")
		}).
		Preload("Scores.Label")
}
