package rules

import (
	"encoding/json"
	"fmt"
)

// Kind tags a rule node
type Kind string

const (
	KindLiteral Kind = "literal"
	KindRef     Kind = "ref"
	KindCompare Kind = "compare"
	KindLogical Kind = "logical"
	KindIf      Kind = "if"
)

// Node is one element of a rule tree. Any type can be a node as long as a
// handler for its kind is registered.
type Node interface {
	Kind() Kind
}

// Parent is implemented by nodes with sub-nodes
type Parent interface {
	Children() []Node
}

// Checker is implemented by nodes that can validate their own shape
type Checker interface {
	Check() error
}

// Comparison operators
const (
	OpGT = ">"
	OpLT = "<"
	OpGE = ">="
	OpLE = "<="
	OpEQ = "=="
)

// Logical operators
const (
	OpAnd = "AND"
	OpOr  = "OR"
)

// Literal returns a stored value unchanged
type Literal struct {
	Value Value
}

func (*Literal) Kind() Kind { return KindLiteral }

func (n *Literal) Check() error {
	if n.Value.Type() == TypeInvalid {
		return fmt.Errorf("literal has no value")
	}
	return nil
}

func (n *Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  Kind  `json:"type"`
		Value Value `json:"value"`
	}{KindLiteral, n.Value})
}

// Ref resolves a named key against the evaluation context
type Ref struct {
	Key string
}

func (*Ref) Kind() Kind { return KindRef }

func (n *Ref) Check() error {
	if n.Key == "" {
		return fmt.Errorf("ref has empty key")
	}
	return nil
}

func (n *Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Kind   `json:"type"`
		Key  string `json:"key"`
	}{KindRef, n.Key})
}

// Compare evaluates both operands and compares them
type Compare struct {
	Op    string
	Left  Node
	Right Node
}

func (*Compare) Kind() Kind { return KindCompare }

func (n *Compare) Children() []Node { return []Node{n.Left, n.Right} }

func (n *Compare) Check() error {
	switch n.Op {
	case OpGT, OpLT, OpGE, OpLE, OpEQ:
		return nil
	default:
		return fmt.Errorf("unsupported comparison operator %q", n.Op)
	}
}

func (n *Compare) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  Kind   `json:"type"`
		Op    string `json:"op"`
		Left  Node   `json:"left"`
		Right Node   `json:"right"`
	}{KindCompare, n.Op, n.Left, n.Right})
}

// Logical combines boolean operands with AND or OR, short-circuiting left to right
type Logical struct {
	Op       string
	Operands []Node
}

func (*Logical) Kind() Kind { return KindLogical }

func (n *Logical) Children() []Node { return n.Operands }

func (n *Logical) Check() error {
	if n.Op != OpAnd && n.Op != OpOr {
		return fmt.Errorf("unsupported logical operator %q", n.Op)
	}
	return nil
}

func (n *Logical) MarshalJSON() ([]byte, error) {
	operands := n.Operands
	if operands == nil {
		operands = []Node{}
	}
	return json.Marshal(struct {
		Type     Kind   `json:"type"`
		Op       string `json:"op"`
		Operands []Node `json:"operands"`
	}{KindLogical, n.Op, operands})
}

// If evaluates only the branch selected by its condition
type If struct {
	Condition Node
	Then      Node
	Else      Node
}

func (*If) Kind() Kind { return KindIf }

func (n *If) Children() []Node { return []Node{n.Condition, n.Then, n.Else} }

func (n *If) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind `json:"type"`
		Condition Node `json:"condition"`
		Then      Node `json:"then"`
		Else      Node `json:"else"`
	}{KindIf, n.Condition, n.Then, n.Else})
}

// Lit builds a literal node
func Lit(v Value) *Literal { return &Literal{Value: v} }

// RefTo builds a reference node
func RefTo(key string) *Ref { return &Ref{Key: key} }

// Cmp builds a comparison node
func Cmp(op string, left, right Node) *Compare { return &Compare{Op: op, Left: left, Right: right} }

// And builds a conjunction
func And(operands ...Node) *Logical { return &Logical{Op: OpAnd, Operands: operands} }

// Or builds a disjunction
func Or(operands ...Node) *Logical { return &Logical{Op: OpOr, Operands: operands} }

// IfThen builds a conditional node
func IfThen(cond, then, otherwise Node) *If { return &If{Condition: cond, Then: then, Else: otherwise} }
