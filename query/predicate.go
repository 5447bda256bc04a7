package query

import "strings"

// Field is a column a Compare node can constrain.
type Field string

const (
	FieldCreatedAt     Field = "submissions.created_at"
	FieldExpectedLabel Field = "expected_label"
	FieldLabelText     Field = "labels.text"
	FieldScore         Field = "scores.score"
)

// Op is a comparison operator.
type Op string

const (
	OpGte          Op = ">="
	OpLte          Op = "<="
	OpEqualFold    Op = "eq_fold"
	OpContainsFold Op = "contains_fold"
)

// Node is an element of the predicate tree.
type Node interface {
	node()
}

// And matches when every child matches. An empty And matches everything.
type And []Node

// Or matches when any child matches.
type Or []Node

// Compare is a leaf comparison.
type Compare struct {
	Field Field
	Op    Op
	Value any
}

// AnyScore matches a submission when at least one of its scores satisfies Where.
// Inside Where, FieldLabelText and FieldScore refer to that score.
type AnyScore struct {
	Where Node
}

func (And) node()      {}
func (Or) node()       {}
func (Compare) node()  {}
func (AnyScore) node() {}

// Build converts filters into a predicate tree. Date and expected-label conditions are
// AND-ed. Label clauses are OR-ed among themselves, and the OR group only exists when at
// least one non-blank clause was given.
func Build(f Filters) Node {
	root := And{}
	if f.MinDate != nil {
		root = append(root, Compare{Field: FieldCreatedAt, Op: OpGte, Value: *f.MinDate})
	}
	if f.MaxDate != nil {
		root = append(root, Compare{Field: FieldCreatedAt, Op: OpLte, Value: *f.MaxDate})
	}
	if expected := strings.TrimSpace(f.ExpectedLabel); expected != "" {
		root = append(root, Compare{Field: FieldExpectedLabel, Op: OpEqualFold, Value: expected})
	}

	var group Or
	for _, lf := range f.ActiveLabels() {
		clause := And{Compare{Field: FieldLabelText, Op: OpContainsFold, Value: lf.Label}}
		if lf.Min != nil {
			clause = append(clause, Compare{Field: FieldScore, Op: OpGte, Value: *lf.Min})
		}
		if lf.Max != nil {
			clause = append(clause, Compare{Field: FieldScore, Op: OpLte, Value: *lf.Max})
		}
		group = append(group, AnyScore{Where: clause})
	}
	if len(group) > 0 {
		root = append(root, group)
	}
	return root
}
