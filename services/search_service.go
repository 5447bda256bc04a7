package services

import (
	"context"
	"fmt"
	"time"

	"github.com/camden-git/pathclassifier/metrics"
	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/query"
	"github.com/camden-git/pathclassifier/repository"
	"gorm.io/gorm"
)

// SearchResult is one page of matching submissions.
type SearchResult struct {
	Page        query.Page
	Submissions []models.Submission
}

// SearchService runs filtered, paginated submission listings.
type SearchService struct {
	submissions *repository.SubmissionRepository
	pageSize    int

	Metrics *metrics.Metrics
}

func NewSearchService(db *gorm.DB, pageSize int) *SearchService {
	if pageSize <= 0 {
		pageSize = query.DefaultPageSize
	}
	return &SearchService{
		submissions: repository.NewSubmissionRepository(db),
		pageSize:    pageSize,
	}
}

// Search validates filters and returns page number of the matches, newest first. A page past
// the last one fails with query.ErrInvalidPage.
func (s *SearchService) Search(ctx context.Context, filters query.Filters, page int) (*SearchResult, error) {
	start := time.Now()
	defer func() { s.Metrics.ObserveSearch(time.Since(start).Seconds()) }()

	if err := filters.Validate(); err != nil {
		return nil, err
	}
	cond, err := query.ToSql(query.Build(filters))
	if err != nil {
		return nil, err
	}

	count, err := s.submissions.Count(ctx, cond)
	if err != nil {
		return nil, err
	}
	p, err := query.NewPage(page, s.pageSize, count)
	if err != nil {
		return nil, err
	}

	subs, err := s.submissions.Search(ctx, cond, p.Offset(), p.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to search page %d: %w", page, err)
	}
	return &SearchResult{Page: p, Submissions: subs}, nil
}

// Get loads one submission with its details.
func (s *SearchService) Get(ctx context.Context, id uint) (*models.Submission, error) {
	return s.submissions.GetByID(ctx, id)
}
