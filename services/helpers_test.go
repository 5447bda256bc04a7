package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/camden-git/pathclassifier/database"
	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/permissions"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeClassifier returns the configured scores, or a uniform distribution for labels it
// has no score for.
type fakeClassifier struct {
	mu     sync.Mutex
	calls  int
	err    error
	scores map[string]float64
}

func (f *fakeClassifier) Predict(_ context.Context, _ image.Image, labels []string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(labels))
	for _, label := range labels {
		if v, ok := f.scores[label]; ok {
			out[label] = v
		} else {
			out[label] = 1 / float64(len(labels))
		}
	}
	return out, nil
}

func (f *fakeClassifier) set(scores map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = scores
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(database.Options{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func newContributor(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Username: "contributor", PasswordHash: "x", IsActive: true}
	user.Grant(permissions.SubmissionCreate)
	require.NoError(t, db.Create(user).Error)
	return user
}

// pngBytes encodes a small patch whose bytes differ for every seed.
func pngBytes(t *testing.T, seed int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(seed), G: uint8(x * 8), B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
