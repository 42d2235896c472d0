// internal/adapters/db/predicates.go
package db

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"warebridge/internal/core/query"
)

// columnMap binds the native field names a repository accepts to concrete
// SQL column expressions of its base query. Fields outside the map are a
// programming error, not user input: the service layer translates and
// rewrites client filters before they reach the adapter.
type columnMap map[string]string

// renderPredicates converts a prefix-notation predicate list into a
// squirrel expression. Terms not consumed by an explicit combinator are
// ANDed, matching the native encoding.
func renderPredicates(pred query.Predicates, cols columnMap) (squirrel.Sqlizer, error) {
	if len(pred) == 0 {
		return squirrel.Expr("TRUE"), nil
	}

	var conj squirrel.And
	i := 0
	for i < len(pred) {
		expr, next, err := renderTerm(pred, i, cols)
		if err != nil {
			return nil, err
		}
		conj = append(conj, expr)
		i = next
	}

	if len(conj) == 1 {
		return conj[0], nil
	}
	return conj, nil
}

func renderTerm(pred query.Predicates, i int, cols columnMap) (squirrel.Sqlizer, int, error) {
	if i >= len(pred) {
		return nil, 0, fmt.Errorf("truncated predicate list %s", pred)
	}

	switch t := pred[i].(type) {
	case query.Logic:
		switch t {
		case query.LogicNot:
			operand, next, err := renderTerm(pred, i+1, cols)
			if err != nil {
				return nil, 0, err
			}
			return notExpr{operand}, next, nil
		case query.LogicAnd, query.LogicOr:
			left, m, err := renderTerm(pred, i+1, cols)
			if err != nil {
				return nil, 0, err
			}
			right, next, err := renderTerm(pred, m, cols)
			if err != nil {
				return nil, 0, err
			}
			if t == query.LogicAnd {
				return squirrel.And{left, right}, next, nil
			}
			return squirrel.Or{left, right}, next, nil
		}
		return nil, 0, fmt.Errorf("unknown combinator %q", t)
	case query.Condition:
		expr, err := renderCondition(t, cols)
		if err != nil {
			return nil, 0, err
		}
		return expr, i + 1, nil
	}
	return nil, 0, fmt.Errorf("unknown predicate term %T", pred[i])
}

func renderCondition(c query.Condition, cols columnMap) (squirrel.Sqlizer, error) {
	if c.IsNever() {
		return squirrel.Expr("FALSE"), nil
	}
	if c.IsAlways() {
		return squirrel.Expr("TRUE"), nil
	}

	col, ok := cols[c.Field]
	if !ok {
		return nil, fmt.Errorf("field %q is not queryable here", c.Field)
	}

	switch c.Op {
	case query.OpEqual:
		return squirrel.Eq{col: c.Value}, nil
	case query.OpNotEqual:
		return squirrel.NotEq{col: c.Value}, nil
	case query.OpLess:
		return squirrel.Lt{col: c.Value}, nil
	case query.OpGreater:
		return squirrel.Gt{col: c.Value}, nil
	case query.OpLessEq:
		return squirrel.LtOrEq{col: c.Value}, nil
	case query.OpGreaterEq:
		return squirrel.GtOrEq{col: c.Value}, nil
	case query.OpLike:
		return squirrel.ILike{col: "%" + fmt.Sprint(c.Value) + "%"}, nil
	case query.OpPrefixLike:
		// The pattern arrives ready-made, wildcards included.
		return squirrel.Like{col: c.Value}, nil
	case query.OpIn:
		ids, ok := c.Value.([]int64)
		if !ok {
			return nil, fmt.Errorf("in condition on %q requires an id list, got %T", c.Field, c.Value)
		}
		if len(ids) == 0 {
			return squirrel.Expr("FALSE"), nil
		}
		return squirrel.Eq{col: ids}, nil
	}
	return nil, fmt.Errorf("unknown operator %q on field %q", c.Op, c.Field)
}

// notExpr negates a rendered expression. squirrel has no built-in NOT.
type notExpr struct {
	inner squirrel.Sqlizer
}

func (n notExpr) ToSql() (string, []interface{}, error) {
	sql, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}
