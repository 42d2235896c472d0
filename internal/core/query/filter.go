// internal/core/query/filter.go

// Package query implements the client where-expression model and its
// translation into the store's native predicate encoding.
package query

// NodeType discriminates where-expression tree nodes.
type NodeType string

// Node types of the client filter grammar. Comparison nodes carry exactly
// two operands (field, value); And/Or carry two subtrees; Not carries one.
const (
	NodeField NodeType = "Field"
	NodeValue NodeType = "Value"

	NodeAnd NodeType = "And"
	NodeOr  NodeType = "Or"
	NodeNot NodeType = "Not"

	NodeEqual          NodeType = "Equal"
	NodeNotEqual       NodeType = "NotEqual"
	NodeLess           NodeType = "Less"
	NodeGreater        NodeType = "Greater"
	NodeLessOrEqual    NodeType = "LessOrEqual"
	NodeGreaterOrEqual NodeType = "GreaterOrEqual"
	NodeContains       NodeType = "Contains"
	// StartsWith is mapped like Contains for now.
	NodeStartsWith NodeType = "StartsWith"
)

// ValueType is the declared primitive type of a literal leaf.
type ValueType string

const (
	ValueString   ValueType = "String"
	ValueDateTime ValueType = "DateTime"
	ValueBoolean  ValueType = "Boolean"
	ValueDecimal  ValueType = "Decimal"
	ValueDouble   ValueType = "Double"
	ValueSingle   ValueType = "Single"
	ValueDBNull   ValueType = "DBNull"
)

// integerValueTypes lists every integer-mapped literal type of the client.
var integerValueTypes = map[ValueType]bool{
	"Char": true, "SByte": true, "Byte": true,
	"Int16": true, "UInt16": true, "Int32": true, "UInt32": true,
	"Int64": true, "UInt64": true,
}

// IsInteger reports whether the value type maps to an integer.
func (v ValueType) IsInteger() bool { return integerValueTypes[v] }

// Literal is the payload of a Field or Value leaf.
type Literal struct {
	Value     string    `json:"value"`
	ValueType ValueType `json:"valueType,omitempty"`
}

// FilterNode is one node of the client's generic boolean filter tree:
// either a leaf (field reference or literal value) or a combinator over
// child nodes.
type FilterNode struct {
	NodeType NodeType      `json:"nodeType"`
	Value    *Literal      `json:"value,omitempty"`
	Operands []*FilterNode `json:"operands,omitempty"`
}

// Field builds a field-reference leaf.
func Field(name string) *FilterNode {
	return &FilterNode{NodeType: NodeField, Value: &Literal{Value: name}}
}

// Value builds a literal leaf.
func Value(v string, vt ValueType) *FilterNode {
	return &FilterNode{NodeType: NodeValue, Value: &Literal{Value: v, ValueType: vt}}
}

// Compare builds a comparison node over a field and a literal.
func Compare(op NodeType, field string, v string, vt ValueType) *FilterNode {
	return &FilterNode{NodeType: op, Operands: []*FilterNode{Field(field), Value(v, vt)}}
}

// And combines two subtrees conjunctively.
func And(left, right *FilterNode) *FilterNode {
	return &FilterNode{NodeType: NodeAnd, Operands: []*FilterNode{left, right}}
}

// Or combines two subtrees disjunctively.
func Or(left, right *FilterNode) *FilterNode {
	return &FilterNode{NodeType: NodeOr, Operands: []*FilterNode{left, right}}
}

// Not negates a subtree.
func Not(child *FilterNode) *FilterNode {
	return &FilterNode{NodeType: NodeNot, Operands: []*FilterNode{child}}
}
