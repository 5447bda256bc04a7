package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestBuild_Empty(t *testing.T) {
	node := Build(Filters{})
	assert.Equal(t, And{}, node)

	node = Build(Filters{Labels: []LabelFilter{{Label: "  "}, {Label: ""}}})
	assert.Equal(t, And{}, node, "blank label clauses never produce an OR group")
}

func TestBuild_Shape(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	node := Build(Filters{
		MinDate:       &from,
		ExpectedLabel: " Tumor ",
		Labels: []LabelFilter{
			{Label: "A", Min: ptr(0.5)},
			{Label: "B", Min: ptr(0.1), Max: ptr(0.9)},
		},
	})

	root, ok := node.(And)
	require.True(t, ok)
	require.Len(t, root, 3)
	assert.Equal(t, Compare{Field: FieldCreatedAt, Op: OpGte, Value: from}, root[0])
	assert.Equal(t, Compare{Field: FieldExpectedLabel, Op: OpEqualFold, Value: "Tumor"}, root[1])

	group, ok := root[2].(Or)
	require.True(t, ok)
	require.Len(t, group, 2)
	assert.Equal(t, AnyScore{Where: And{
		Compare{Field: FieldLabelText, Op: OpContainsFold, Value: "A"},
		Compare{Field: FieldScore, Op: OpGte, Value: 0.5},
	}}, group[0])
	assert.Equal(t, AnyScore{Where: And{
		Compare{Field: FieldLabelText, Op: OpContainsFold, Value: "B"},
		Compare{Field: FieldScore, Op: OpGte, Value: 0.1},
		Compare{Field: FieldScore, Op: OpLte, Value: 0.9},
	}}, group[1])
}

func TestToSql_LabelClauses(t *testing.T) {
	cond, err := ToSql(Build(Filters{Labels: []LabelFilter{
		{Label: "A", Min: ptr(0.5)},
		{Label: "B", Min: ptr(0.5)},
	}}))
	require.NoError(t, err)

	sql, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(sql, "EXISTS (SELECT 1 FROM scores JOIN labels ON labels.id = scores.label_id WHERE scores.submission_id = submissions.id"))
	assert.Contains(t, sql, " OR ")
	assert.Contains(t, sql, "LOWER(labels.text) LIKE ? ESCAPE '!'")
	assert.Contains(t, sql, "scores.score >= ?")
	assert.Equal(t, []any{"%a%", 0.5, "%b%", 0.5}, args)
}

func TestToSql_EscapesWildcards(t *testing.T) {
	cond, err := ToSql(Build(Filters{Labels: []LabelFilter{{Label: "100%_Tumor!"}}}))
	require.NoError(t, err)

	_, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, []any{"%100!%!_tumor!!%"}, args)
}

func TestToSql_DatesAndExpected(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cond, err := ToSql(Build(Filters{MinDate: &from, MaxDate: &to, ExpectedLabel: "Tumor"}))
	require.NoError(t, err)

	sql, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "submissions.created_at >= ?")
	assert.Contains(t, sql, "submissions.created_at <= ?")
	assert.Contains(t, sql, "LOWER(labels.text) = ?")
	assert.NotContains(t, sql, " OR ")
	assert.Equal(t, []any{from, to, "tumor"}, args)
}

func TestToSql_RejectsMalformedTrees(t *testing.T) {
	_, err := ToSql(Or{})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = ToSql(Compare{Field: FieldScore, Op: OpGte, Value: 0.5})
	assert.ErrorIs(t, err, ErrInvalidFilter, "score columns only exist inside AnyScore")

	_, err = ToSql(AnyScore{Where: AnyScore{}})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = ToSql(Compare{Field: FieldCreatedAt, Op: "~"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestFilters_Validate(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name    string
		filters Filters
		wantErr bool
	}{
		{"empty", Filters{}, false},
		{"date range", Filters{MinDate: &early, MaxDate: &late}, false},
		{"inverted dates", Filters{MinDate: &late, MaxDate: &early}, true},
		{"score bounds", Filters{Labels: []LabelFilter{{Label: "a", Min: ptr(0), Max: ptr(1)}}}, false},
		{"min above one", Filters{Labels: []LabelFilter{{Label: "a", Min: ptr(1.5)}}}, true},
		{"negative max", Filters{Labels: []LabelFilter{{Label: "a", Max: ptr(-0.1)}}}, true},
		{"min above max", Filters{Labels: []LabelFilter{{Label: "a", Min: ptr(0.8), Max: ptr(0.2)}}}, true},
		{"bounds on blank clause are ignored", Filters{Labels: []LabelFilter{{Label: " ", Min: ptr(5)}}}, false},
		{"too many clauses", Filters{Labels: []LabelFilter{{Label: "a"}, {Label: "b"}, {Label: "c"}, {Label: "d"}, {Label: "e"}, {Label: "f"}}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.filters.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseDate("2024-03-05", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseDate("2024-03-05", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC), *got)

	got, err = ParseDate("2024-03-05T10:00:00+02:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), *got)

	_, err = ParseDate("05/03/2024", false)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestNewPage(t *testing.T) {
	p, err := NewPage(1, 10, 25)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, p.Offset())
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrevious())

	p, err = NewPage(3, 10, 25)
	require.NoError(t, err)
	assert.Equal(t, 20, p.Offset())
	assert.False(t, p.HasNext())
	assert.True(t, p.HasPrevious())

	p, err = NewPage(1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalPages, "empty results still have one page")

	p, err = NewPage(1, 0, 11)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, p.Size)
	assert.Equal(t, 2, p.TotalPages)

	_, err = NewPage(4, 10, 25)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = NewPage(0, 10, 25)
	assert.ErrorIs(t, err, ErrInvalidPage)
}
