package query

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ToSql translates a predicate tree into a squirrel condition over the submissions table.
// AnyScore becomes a correlated EXISTS subquery, so matching rows never repeat.
func ToSql(n Node) (sq.Sqlizer, error) {
	return translate(n, false)
}

func translate(n Node, inScore bool) (sq.Sqlizer, error) {
	switch v := n.(type) {
	case And:
		out := sq.And{}
		for _, child := range v {
			s, err := translate(child, inScore)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case Or:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty OR group", ErrInvalidFilter)
		}
		out := sq.Or{}
		for _, child := range v {
			s, err := translate(child, inScore)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case Compare:
		return compare(v, inScore)
	case AnyScore:
		if inScore {
			return nil, fmt.Errorf("%w: nested score predicate", ErrInvalidFilter)
		}
		sub := psql.Select("1").
			From("scores").
			Join("labels ON labels.id = scores.label_id").
			Where("scores.submission_id = submissions.id")
		if v.Where != nil {
			inner, err := translate(v.Where, true)
			if err != nil {
				return nil, err
			}
			sub = sub.Where(inner)
		}
		subSQL, args, err := sub.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build score subquery: %w", err)
		}
		return sq.Expr("EXISTS ("+subSQL+")", args...), nil
	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrInvalidFilter, n)
	}
}

func compare(c Compare, inScore bool) (sq.Sqlizer, error) {
	switch c.Field {
	case FieldLabelText, FieldScore:
		if !inScore {
			return nil, fmt.Errorf("%w: %s outside a score predicate", ErrInvalidFilter, c.Field)
		}
	}

	col := string(c.Field)
	switch c.Op {
	case OpGte:
		return sq.GtOrEq{col: c.Value}, nil
	case OpLte:
		return sq.LtOrEq{col: c.Value}, nil
	case OpContainsFold:
		text, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a string", ErrInvalidFilter, c.Op)
		}
		return sq.Expr("LOWER("+col+") LIKE ? ESCAPE '!'", "%"+likeEscaper.Replace(strings.ToLower(text))+"%"), nil
	case OpEqualFold:
		text, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a string", ErrInvalidFilter, c.Op)
		}
		if c.Field == FieldExpectedLabel {
			return sq.Expr("submissions.expected_label_id IN (SELECT labels.id FROM labels WHERE LOWER(labels.text) = ?)", strings.ToLower(text)), nil
		}
		return sq.Expr("LOWER("+col+") = ?", strings.ToLower(text)), nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
	}
}
