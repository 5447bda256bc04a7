package services

import (
	"context"
	"testing"
	"time"

	"github.com/camden-git/pathclassifier/models"
	"github.com/camden-git/pathclassifier/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func ids(subs []models.Submission) []uint {
	out := make([]uint, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

func TestSearch_OrWithinLabels(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newContributor(t, db)
	clf := &fakeClassifier{}
	submitter := NewSubmissionService(db, clf, nil)

	submit := func(seed int, labels string, scores map[string]float64) *models.Submission {
		clf.set(scores)
		sub, err := submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, seed), Labels: labels, UserID: user.ID})
		require.NoError(t, err)
		return sub
	}
	first := submit(20, "A,C", map[string]float64{"A": 0.9, "C": 0.1})
	second := submit(21, "B,C", map[string]float64{"B": 0.8, "C": 0.2})
	submit(22, "A,B,C", map[string]float64{"A": 0.2, "B": 0.1, "C": 0.7})

	svc := NewSearchService(db, 10)
	res, err := svc.Search(ctx, query.Filters{Labels: []query.LabelFilter{
		{Label: "A", Min: ptr(0.5)},
		{Label: "B", Min: ptr(0.5)},
	}}, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Page.Count)
	assert.Equal(t, []uint{second.ID, first.ID}, ids(res.Submissions))
}

func TestSearch_NoFiltersReturnsEverything(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newContributor(t, db)
	submitter := NewSubmissionService(db, &fakeClassifier{}, nil)
	for i := 0; i < 3; i++ {
		_, err := submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, 30+i), Labels: "a", UserID: user.ID})
		require.NoError(t, err)
	}

	res, err := NewSearchService(db, 10).Search(ctx, query.Filters{Labels: []query.LabelFilter{{Label: " "}}}, 1)
	require.NoError(t, err)
	assert.Len(t, res.Submissions, 3, "blank clauses do not exclude rows")
}

func TestSearch_DistinctAcrossMatchingScores(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newContributor(t, db)
	submitter := NewSubmissionService(db, &fakeClassifier{}, nil)
	_, err := submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, 40), Labels: "tumor grade 1,tumor grade 2", UserID: user.ID})
	require.NoError(t, err)

	res, err := NewSearchService(db, 10).Search(ctx, query.Filters{Labels: []query.LabelFilter{
		{Label: "TUMOR"},
		{Label: "grade"},
	}}, 1)
	require.NoError(t, err)
	assert.Len(t, res.Submissions, 1)
	assert.Equal(t, int64(1), res.Page.Count)
}

func TestSearch_ScoreBounds(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newContributor(t, db)
	clf := &fakeClassifier{}
	submitter := NewSubmissionService(db, clf, nil)

	clf.set(map[string]float64{"tumor": 0.6, "stroma": 0.4})
	mid, err := submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, 50), Labels: "tumor,stroma", UserID: user.ID})
	require.NoError(t, err)
	clf.set(map[string]float64{"tumor": 0.95, "stroma": 0.05})
	_, err = submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, 51), Labels: "tumor,stroma", UserID: user.ID})
	require.NoError(t, err)

	res, err := NewSearchService(db, 10).Search(ctx, query.Filters{Labels: []query.LabelFilter{
		{Label: "tumor", Min: ptr(0.5), Max: ptr(0.9)},
	}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{mid.ID}, ids(res.Submissions))
}

func TestSearch_DatesAndExpectedLabel(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newContributor(t, db)
	submitter := NewSubmissionService(db, &fakeClassifier{}, nil)

	tagged, err := submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, 60), Labels: "a", ExpectedLabel: "Tumor", UserID: user.ID})
	require.NoError(t, err)
	_, err = submitter.Submit(ctx, SubmitRequest{Data: pngBytes(t, 61), Labels: "a", ExpectedLabel: "Stroma", UserID: user.ID})
	require.NoError(t, err)

	svc := NewSearchService(db, 10)
	res, err := svc.Search(ctx, query.Filters{ExpectedLabel: "tumor"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{tagged.ID}, ids(res.Submissions), "expected label matches case-insensitively")

	res, err = svc.Search(ctx, query.Filters{ExpectedLabel: "tum"}, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Submissions, "expected label is an exact match")

	today := time.Now().UTC().Format("2006-01-02")
	minDate, err := query.ParseDate(today, false)
	require.NoError(t, err)
	maxDate, err := query.ParseDate(today, true)
	require.NoError(t, err)
	res, err = svc.Search(ctx, query.Filters{MinDate: minDate, MaxDate: maxDate}, 1)
	require.NoError(t, err)
	assert.Len(t, res.Submissions, 2, "a date-only max covers the whole day")

	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	res, err = svc.Search(ctx, query.Filters{MinDate: &tomorrow}, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Submissions)
	assert.Equal(t, 1, res.Page.TotalPages)
}

func TestSearch_Pagination(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newContributor(t, db)
	submitter := NewSubmissionService(db, &fakeClassifier{}, nil)
	data := pngBytes(t, 70)
	for i := 0; i < 25; i++ {
		_, err := submitter.Submit(ctx, SubmitRequest{Data: data, Labels: "a", UserID: user.ID})
		require.NoError(t, err)
	}

	svc := NewSearchService(db, 10)
	var seen []uint
	for page, want := range map[int]int{1: 10, 2: 10, 3: 5} {
		res, err := svc.Search(ctx, query.Filters{}, page)
		require.NoError(t, err)
		assert.Len(t, res.Submissions, want, "page %d", page)
		assert.Equal(t, 3, res.Page.TotalPages)
		assert.Equal(t, int64(25), res.Page.Count)
		seen = append(seen, ids(res.Submissions)...)
	}
	assert.Len(t, seen, 25)
	unique := make(map[uint]struct{})
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 25, "pages do not overlap")

	first, err := svc.Search(ctx, query.Filters{}, 1)
	require.NoError(t, err)
	assert.True(t, first.Page.HasNext())
	assert.False(t, first.Page.HasPrevious())
	for i := 1; i < len(first.Submissions); i++ {
		assert.Greater(t, first.Submissions[i-1].ID, first.Submissions[i].ID)
	}

	_, err = svc.Search(ctx, query.Filters{}, 4)
	assert.ErrorIs(t, err, query.ErrInvalidPage)
}

func TestSearch_InvalidFilters(t *testing.T) {
	svc := NewSearchService(newTestDB(t), 10)
	_, err := svc.Search(context.Background(), query.Filters{Labels: []query.LabelFilter{{Label: "a", Min: ptr(2)}}}, 1)
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}
