package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/camden-git/pathclassifier/cache"
	"github.com/camden-git/pathclassifier/classifier"
	"github.com/camden-git/pathclassifier/media"
	"github.com/camden-git/pathclassifier/metrics"
	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/repository"
	"gorm.io/gorm"
)

// EventSubmissionCreated is published after a submission is committed.
const EventSubmissionCreated = "submission.created"

// ErrClassification wraps every failure of the model call.
var ErrClassification = errors.New("classification failed")

// EventPublisher receives domain events, the realtime hub implements it.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// SubmitRequest is one upload to classify.
type SubmitRequest struct {
	Data          []byte
	Labels        string // comma separated, blank for the defaults
	ExpectedLabel string
	Filename      string
	UserID        uint
}

// SubmissionService classifies uploads and persists the result atomically.
type SubmissionService struct {
	db          *gorm.DB
	images      *repository.ImageRepository
	labels      *repository.LabelRepository
	submissions *repository.SubmissionRepository
	classifier  classifier.Classifier
	thumbnailer *media.Thumbnailer

	Cache   cache.PredictionCache
	Metrics *metrics.Metrics
	Events  EventPublisher
}

// NewSubmissionService creates the service. Cache, Metrics and Events are optional and can be
// set on the returned value.
func NewSubmissionService(db *gorm.DB, clf classifier.Classifier, thumbnailer *media.Thumbnailer) *SubmissionService {
	if thumbnailer == nil {
		thumbnailer = media.NewThumbnailer(media.DefaultThumbnailMaxSize, media.DefaultThumbnailQuality)
	}
	return &SubmissionService{
		db:          db,
		images:      repository.NewImageRepository(db),
		labels:      repository.NewLabelRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		classifier:  clf,
		thumbnailer: thumbnailer,
		Cache:       cache.Noop{},
	}
}

// Submit runs the pipeline: decode, hash, resolve labels and classify outside any transaction,
// then store image, expected label, submission, labels and scores in one transaction. Any
// failure leaves no rows behind. The returned submission has its image, expected label and
// scores (highest first) loaded.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*models.Submission, error) {
	submission, err := s.submit(ctx, req)
	if err != nil {
		s.Metrics.ObserveSubmission(resultFor(err))
		return nil, err
	}
	s.Metrics.ObserveSubmission(metrics.ResultCreated)

	if s.Events != nil {
		s.Events.Publish(EventSubmissionCreated, map[string]any{
			"id":       submission.ID,
			"user_id":  submission.UserID,
			"image_id": submission.ImageID,
		})
	}
	log.Printf("submission: stored submission %d (image %d, %d scores) for user %d",
		submission.ID, submission.ImageID, len(submission.Scores), submission.UserID)
	return submission, nil
}

func (s *SubmissionService) submit(ctx context.Context, req SubmitRequest) (*models.Submission, error) {
	img, _, err := media.Decode(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	contentHash := media.ContentHash(req.Data)

	labels, err := ResolveCandidateLabels(req.Labels)
	if err != nil {
		return nil, err
	}
	expected, err := normalizeExpectedLabel(req.ExpectedLabel)
	if err != nil {
		return nil, err
	}
	filename := req.Filename
	if filename != "" {
		filename = filepath.Base(filename)
	}
	if utf8.RuneCountInString(filename) > MaxLabelLength {
		return nil, fmt.Errorf("%w: filename longer than %d characters", ErrInvalidInput, MaxLabelLength)
	}

	probs, err := s.classify(ctx, contentHash, img, labels)
	if err != nil {
		return nil, err
	}
	ranked := rankLabels(labels, probs)

	var (
		submission   *models.Submission
		deduplicated bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		images := s.images.WithTx(tx)
		labelRepo := s.labels.WithTx(tx)
		submissions := s.submissions.WithTx(tx)

		stored, created, err := images.GetOrCreate(ctx, contentHash, func() (*models.Image, error) {
			return s.buildImage(img)
		})
		if err != nil {
			return err
		}
		deduplicated = !created

		row := &models.Submission{
			ImageID:  stored.ID,
			UserID:   req.UserID,
			Filename: filename,
		}
		if expected != "" {
			label, err := labelRepo.GetOrCreate(ctx, expected)
			if err != nil {
				return err
			}
			row.ExpectedLabelID = &label.ID
		}
		if err := submissions.Create(ctx, row); err != nil {
			return err
		}

		scores := make([]models.Score, 0, len(ranked))
		for _, r := range ranked {
			label, err := labelRepo.GetOrCreate(ctx, r.label)
			if err != nil {
				return err
			}
			scores = append(scores, models.Score{SubmissionID: row.ID, LabelID: label.ID, Score: r.score})
		}
		if err := submissions.CreateScores(ctx, scores); err != nil {
			return err
		}

		submission, err = submissions.GetByID(ctx, row.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	if deduplicated {
		s.Metrics.IncImagesDeduplicated()
	}
	return submission, nil
}

func (s *SubmissionService) classify(ctx context.Context, contentHash string, img image.Image, labels []string) (map[string]float64, error) {
	key := cache.Key(contentHash, labels)
	if probs, ok := s.Cache.Get(ctx, key); ok && len(probs) == len(labels) {
		s.Metrics.IncPredictionCacheHits()
		return probs, nil
	}

	start := time.Now()
	probs, err := s.classifier.Predict(ctx, img, labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	s.Metrics.ObserveClassification(time.Since(start).Seconds())

	for _, label := range labels {
		if _, ok := probs[label]; !ok {
			return nil, fmt.Errorf("%w: no score for label %q", ErrClassification, label)
		}
	}
	s.Cache.Set(ctx, key, probs)
	return probs, nil
}

func (s *SubmissionService) buildImage(img image.Image) (*models.Image, error) {
	thumb, err := s.thumbnailer.Generate(img)
	if err != nil {
		return nil, err
	}
	phash, err := media.PerceptualHash(img)
	if err != nil {
		// informational only
		log.Printf("submission: perceptual hash failed: %v", err)
	}
	bounds := img.Bounds()
	return &models.Image{
		PerceptualHash: phash,
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		Thumbnail:      thumb,
	}, nil
}

type rankedLabel struct {
	label string
	score float64
}

// rankLabels orders labels by descending probability, keeping candidate order for ties.
func rankLabels(labels []string, probs map[string]float64) []rankedLabel {
	out := make([]rankedLabel, len(labels))
	for i, label := range labels {
		out[i] = rankedLabel{label: label, score: probs[label]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidImage), errors.Is(err, ErrInvalidInput):
		return metrics.ResultInvalid
	case errors.Is(err, ErrClassification):
		return metrics.ResultModelError
	default:
		return metrics.ResultStorageError
	}
}
