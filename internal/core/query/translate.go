// internal/core/query/translate.go
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
)

// FieldKind is the native type a translated value must be coerced into.
type FieldKind int

const (
	KindAny FieldKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

// FieldInfo maps one client field onto its native column.
type FieldInfo struct {
	// APIName is the client-facing field name (matched case-insensitively).
	APIName string
	// NativeName is the store column (possibly a dotted relation path).
	NativeName string
	// Kind coerces the comparison value to the native column type.
	Kind FieldKind
	// NullEquivalent substitutes a typed stand-in when the client compares
	// against null but the native column cannot hold one (e.g. integer ids
	// compared with "null" become -1).
	NullEquivalent any
}

// FieldMap is the active field map of a table, keyed by lowercase API name.
type FieldMap map[string]FieldInfo

// NewFieldMap builds a FieldMap from a field list.
func NewFieldMap(fields ...FieldInfo) FieldMap {
	m := make(FieldMap, len(fields))
	for _, f := range fields {
		m[strings.ToLower(f.APIName)] = f
	}
	return m
}

// comparisonOps maps client comparison node types to native operators.
var comparisonOps = map[NodeType]Operator{
	NodeEqual:          OpEqual,
	NodeNotEqual:       OpNotEqual,
	NodeLess:           OpLess,
	NodeGreater:        OpGreater,
	NodeLessOrEqual:    OpLessEq,
	NodeGreaterOrEqual: OpGreaterEq,
	NodeContains:       OpLike,
	NodeStartsWith:     OpLike,
}

// Translate converts a client where-expression tree into the store's
// native predicate list. A comparison whose field is absent from the field
// map fails closed: it becomes a condition no row satisfies, so enclosing
// AND/OR combinators keep correct boolean semantics instead of silently
// widening the result.
func Translate(root *FilterNode, fields FieldMap) (Predicates, error) {
	if root == nil {
		return nil, nil
	}

	switch root.NodeType {
	case NodeNot:
		if len(root.Operands) != 1 {
			return nil, fmt.Errorf("%w: Not node requires one operand", domain.ErrValidation)
		}
		child, err := Translate(root.Operands[0], fields)
		if err != nil {
			return nil, err
		}
		return append(Predicates{LogicNot}, child...), nil

	case NodeAnd, NodeOr:
		if len(root.Operands) != 2 {
			return nil, fmt.Errorf("%w: %s node requires two operands", domain.ErrValidation, root.NodeType)
		}
		left, err := Translate(root.Operands[0], fields)
		if err != nil {
			return nil, err
		}
		right, err := Translate(root.Operands[1], fields)
		if err != nil {
			return nil, err
		}
		logic := LogicAnd
		if root.NodeType == NodeOr {
			logic = LogicOr
		}
		out := append(Predicates{logic}, left...)
		return append(out, right...), nil
	}

	op, ok := comparisonOps[root.NodeType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown where-expression node type %q", domain.ErrValidation, root.NodeType)
	}
	return translateComparison(root, op, fields)
}

func translateComparison(node *FilterNode, op Operator, fields FieldMap) (Predicates, error) {
	if len(node.Operands) != 2 {
		return nil, fmt.Errorf("%w: comparison requires two operands", domain.ErrValidation)
	}
	fieldNode, valueNode := node.Operands[0], node.Operands[1]
	if fieldNode.NodeType != NodeField || fieldNode.Value == nil {
		return nil, fmt.Errorf("%w: comparison expects a field on the left side", domain.ErrValidation)
	}
	if valueNode.NodeType != NodeValue {
		return nil, fmt.Errorf("%w: comparison expects a literal on the right side", domain.ErrValidation)
	}

	info, known := fields[strings.ToLower(fieldNode.Value.Value)]
	if !known {
		// Fail closed rather than erroring out or dropping the clause.
		return Predicates{Never()}, nil
	}

	value, err := convertLiteral(valueNode.Value)
	if err != nil {
		return nil, err
	}
	value, err = coerceToKind(value, info)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %s", domain.ErrValidation, info.APIName, err)
	}

	return Predicates{Cond(info.NativeName, op, value)}, nil
}

// convertLiteral converts a literal leaf into its Go value.
func convertLiteral(l *Literal) (any, error) {
	if l == nil || l.ValueType == ValueDBNull {
		return nil, nil
	}
	switch {
	case l.ValueType == ValueString:
		return l.Value, nil
	case l.ValueType == ValueDateTime:
		ts, err := time.Parse(time.RFC3339, l.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed datetime literal %q", domain.ErrValidation, l.Value)
		}
		return ts, nil
	case l.ValueType.IsInteger():
		n, err := strconv.ParseInt(l.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed integer literal %q", domain.ErrValidation, l.Value)
		}
		return n, nil
	case l.ValueType == ValueBoolean:
		return strings.EqualFold(l.Value, "true"), nil
	case l.ValueType == ValueSingle || l.ValueType == ValueDouble || l.ValueType == ValueDecimal:
		d, err := decimal.NewFromString(l.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed numeric literal %q", domain.ErrValidation, l.Value)
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: unknown literal value type %q", domain.ErrValidation, l.ValueType)
}

// coerceToKind aligns the literal with the native column type so the store
// sees a comparable value.
func coerceToKind(value any, info FieldInfo) (any, error) {
	if isNullish(value) && info.NullEquivalent != nil {
		value = info.NullEquivalent
	}

	switch info.Kind {
	case KindAny:
		return value, nil
	case KindString:
		if value == nil {
			return "", nil
		}
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	case KindInt:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to integer", v)
			}
			return n, nil
		case decimal.Decimal:
			return v.IntPart(), nil
		}
		return nil, fmt.Errorf("cannot coerce %T to integer", value)
	case KindFloat:
		switch v := value.(type) {
		case decimal.Decimal:
			return v, nil
		case int64:
			return decimal.NewFromInt(v), nil
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to decimal", v)
			}
			return d, nil
		}
		return nil, fmt.Errorf("cannot coerce %T to decimal", value)
	case KindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			return strings.EqualFold(v, "true"), nil
		}
		return nil, fmt.Errorf("cannot coerce %T to boolean", value)
	}
	return value, nil
}

func isNullish(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && (s == "" || s == "None" || strings.EqualFold(s, "null"))
}
