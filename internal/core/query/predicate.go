// internal/core/query/predicate.go
package query

import "fmt"

// Operator is a native comparison operator understood by the store.
type Operator string

const (
	OpEqual      Operator = "="
	OpNotEqual   Operator = "!="
	OpLess       Operator = "<"
	OpGreater    Operator = ">"
	OpLessEq     Operator = "<="
	OpGreaterEq  Operator = ">="
	OpLike       Operator = "ilike"
	OpPrefixLike Operator = "=like"
	OpIn         Operator = "in"
)

// Logic is a native prefix-notation combinator token.
type Logic string

const (
	LogicAnd Logic = "&"
	LogicOr  Logic = "|"
	LogicNot Logic = "!"
)

// Term is one element of a native predicate list: either a Logic token or
// a Condition triple.
type Term interface {
	isTerm()
}

func (Logic) isTerm()     {}
func (Condition) isTerm() {}

// Condition is a (field, operator, value) leaf of a native predicate list.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Cond is shorthand for building a Condition term.
func Cond(field string, op Operator, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// Never is a condition no row can satisfy. Unknown or unsupported fields
// translate to it so enclosing combinators keep correct boolean semantics.
func Never() Condition {
	return Condition{Field: "id", Op: OpEqual, Value: false}
}

// Always is a condition every row satisfies.
func Always() Condition {
	return Condition{Field: "id", Op: OpNotEqual, Value: false}
}

// IsNever reports whether the condition is the always-false marker.
func (c Condition) IsNever() bool {
	v, ok := c.Value.(bool)
	return ok && !v && c.Field == "id" && c.Op == OpEqual
}

// IsAlways reports whether the condition is the always-true marker.
func (c Condition) IsAlways() bool {
	v, ok := c.Value.(bool)
	return ok && !v && c.Field == "id" && c.Op == OpNotEqual
}

// Predicates is a native filter: a flat prefix sequence of combinator
// tokens and condition triples, mirroring the store's domain encoding.
// Terms not consumed by an explicit combinator are implicitly ANDed.
type Predicates []Term

// Append joins further terms onto the predicate list.
func (p Predicates) Append(terms ...Term) Predicates {
	return append(p, terms...)
}

// MapConditions returns a copy of the list with every condition replaced by
// fn's result; Logic tokens pass through untouched. Table-specific rewrite
// hooks are built on it.
func (p Predicates) MapConditions(fn func(Condition) Term) Predicates {
	out := make(Predicates, 0, len(p))
	for _, term := range p {
		if cond, ok := term.(Condition); ok {
			out = append(out, fn(cond))
			continue
		}
		out = append(out, term)
	}
	return out
}

// String renders the list for logs and error messages.
func (p Predicates) String() string {
	s := ""
	for i, term := range p {
		if i > 0 {
			s += " "
		}
		switch t := term.(type) {
		case Logic:
			s += string(t)
		case Condition:
			s += fmt.Sprintf("(%s %s %v)", t.Field, t.Op, t.Value)
		}
	}
	return "[" + s + "]"
}
