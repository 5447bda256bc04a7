package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/services"
)

type LabelDTO struct {
	ID    uint   `json:"id"`
	Label string `json:"label"`
}

type ImageDTO struct {
	ID             uint      `json:"id"`
	ContentHash    string    `json:"content_hash"`
	PerceptualHash string    `json:"perceptual_hash,omitempty"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	CreatedAt      time.Time `json:"created_at"`
	ImageBase64    string    `json:"image_base64"`
}

type ScoreDTO struct {
	ID           uint     `json:"id"`
	Label        LabelDTO `json:"label"`
	Score        float64  `json:"score"`
	RoundedScore float64  `json:"rounded_score"`
}

type SubmissionDTO struct {
	ID            uint       `json:"id"`
	Filename      string     `json:"filename"`
	CreatedAt     time.Time  `json:"created_at"`
	UserID        uint       `json:"user_id"`
	ExpectedLabel *LabelDTO  `json:"expected_label"`
	Image         *ImageDTO  `json:"image"`
	Scores        []ScoreDTO `json:"submission_scores"`
}

// PageDTO is the pagination envelope of list responses.
type PageDTO struct {
	Count       int64           `json:"count"`
	Next        *string         `json:"next"`
	Previous    *string         `json:"previous"`
	Page        int             `json:"page"`
	TotalPages  int             `json:"total_pages"`
	HasNext     bool            `json:"has_next"`
	HasPrevious bool            `json:"has_previous"`
	Results     []SubmissionDTO `json:"results"`
}

func newLabelDTO(l *models.Label) *LabelDTO {
	if l == nil {
		return nil
	}
	return &LabelDTO{ID: l.ID, Label: l.Text}
}

func newSubmissionDTO(s *models.Submission) SubmissionDTO {
	dto := SubmissionDTO{
		ID:            s.ID,
		Filename:      s.Filename,
		CreatedAt:     s.CreatedAt,
		UserID:        s.UserID,
		ExpectedLabel: newLabelDTO(s.ExpectedLabel),
		Scores:        make([]ScoreDTO, 0, len(s.Scores)),
	}
	if s.Image != nil {
		dto.Image = &ImageDTO{
			ID:             s.Image.ID,
			ContentHash:    s.Image.ContentHash,
			PerceptualHash: s.Image.PerceptualHash,
			Width:          s.Image.Width,
			Height:         s.Image.Height,
			CreatedAt:      s.Image.CreatedAt,
			ImageBase64:    s.Image.ThumbnailBase64(),
		}
	}
	for _, score := range s.Scores {
		item := ScoreDTO{ID: score.ID, Score: score.Score, RoundedScore: score.Rounded()}
		if label := newLabelDTO(score.Label); label != nil {
			item.Label = *label
		} else {
			item.Label = LabelDTO{ID: score.LabelID}
		}
		dto.Scores = append(dto.Scores, item)
	}
	return dto
}

func newPageDTO(r *http.Request, res *services.SearchResult) PageDTO {
	dto := PageDTO{
		Count:       res.Page.Count,
		Page:        res.Page.Number,
		TotalPages:  res.Page.TotalPages,
		HasNext:     res.Page.HasNext(),
		HasPrevious: res.Page.HasPrevious(),
		Results:     make([]SubmissionDTO, 0, len(res.Submissions)),
	}
	if dto.HasNext {
		link := pageLink(r, res.Page.Number+1)
		dto.Next = &link
	}
	if dto.HasPrevious {
		link := pageLink(r, res.Page.Number-1)
		dto.Previous = &link
	}
	for i := range res.Submissions {
		dto.Results = append(dto.Results, newSubmissionDTO(&res.Submissions[i]))
	}
	return dto
}

// pageLink rebuilds the request URL with another page number, keeping the other parameters.
func pageLink(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return scheme + "://" + r.Host + r.URL.Path + "?" + q.Encode()
}
