package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tree limits enforced by Validate, Decode and the evaluator
const (
	MaxDepth = 32
	MaxNodes = 512
)

// Evaluator walks a tree once. It is not safe for concurrent use; create one per evaluation.
type Evaluator struct {
	registry *Registry
	steps    int
	depth    int
}

// Steps returns the number of nodes visited so far
func (e *Evaluator) Steps() int {
	return e.steps
}

// Eval dispatches node to the handler registered for its kind
func (e *Evaluator) Eval(node Node, ctx Context) (Value, error) {
	if node == nil {
		return Value{}, &MalformedRuleError{Reason: "missing node"}
	}
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > MaxDepth {
		return Value{}, &MalformedRuleError{Reason: fmt.Sprintf("tree exceeds depth %d", MaxDepth)}
	}
	e.steps++

	h, ok := e.registry.handlers[node.Kind()]
	if !ok {
		return Value{}, &UnknownNodeKindError{Kind: node.Kind()}
	}
	return h(e, node, ctx)
}

func wrongNode(kind Kind, node Node) error {
	return &MalformedRuleError{Reason: fmt.Sprintf("%s handler received %T", kind, node)}
}

func evalLiteral(_ *Evaluator, node Node, _ Context) (Value, error) {
	n, ok := node.(*Literal)
	if !ok {
		return Value{}, wrongNode(KindLiteral, node)
	}
	return n.Value, nil
}

func evalRef(_ *Evaluator, node Node, ctx Context) (Value, error) {
	n, ok := node.(*Ref)
	if !ok {
		return Value{}, wrongNode(KindRef, node)
	}
	v, found := ctx.Lookup(n.Key)
	if !found {
		return Value{}, &UnknownContextKeyError{Key: n.Key}
	}
	return v, nil
}

func evalCompare(ev *Evaluator, node Node, ctx Context) (Value, error) {
	n, ok := node.(*Compare)
	if !ok {
		return Value{}, wrongNode(KindCompare, node)
	}
	left, err := ev.Eval(n.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := ev.Eval(n.Right, ctx)
	if err != nil {
		return Value{}, err
	}
	result, err := compareValues(n.Op, left, right)
	if err != nil {
		return Value{}, err
	}
	return Bool(result), nil
}

func compareValues(op string, left, right Value) (bool, error) {
	mismatch := &TypeMismatchError{Op: op, Left: left.Type(), Right: right.Type()}

	switch {
	case left.typ == TypeNumber && right.typ == TypeNumber:
		return ordered(op, left.num.Cmp(right.num))
	case left.typ == TypeNumber && right.typ == TypeString:
		r, err := parseNumeric(right.str)
		if err != nil {
			return false, mismatch
		}
		return ordered(op, left.num.Cmp(r))
	case left.typ == TypeString && right.typ == TypeNumber:
		l, err := parseNumeric(left.str)
		if err != nil {
			return false, mismatch
		}
		return ordered(op, l.Cmp(right.num))
	case left.typ == TypeString && right.typ == TypeString:
		return ordered(op, strings.Compare(left.str, right.str))
	case left.typ == TypeBool && right.typ == TypeBool:
		if op != OpEQ {
			return false, mismatch
		}
		return left.b == right.b, nil
	default:
		return false, mismatch
	}
}

func parseNumeric(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

func ordered(op string, cmp int) (bool, error) {
	switch op {
	case OpGT:
		return cmp > 0, nil
	case OpLT:
		return cmp < 0, nil
	case OpGE:
		return cmp >= 0, nil
	case OpLE:
		return cmp <= 0, nil
	case OpEQ:
		return cmp == 0, nil
	default:
		return false, &MalformedRuleError{Reason: fmt.Sprintf("unsupported comparison operator %q", op)}
	}
}

func evalLogical(ev *Evaluator, node Node, ctx Context) (Value, error) {
	n, ok := node.(*Logical)
	if !ok {
		return Value{}, wrongNode(KindLogical, node)
	}
	if n.Op != OpAnd && n.Op != OpOr {
		return Value{}, &MalformedRuleError{Reason: fmt.Sprintf("unsupported logical operator %q", n.Op)}
	}

	for _, operand := range n.Operands {
		v, err := ev.Eval(operand, ctx)
		if err != nil {
			return Value{}, err
		}
		b, isBool := v.AsBool()
		if !isBool {
			return Value{}, &TypeMismatchError{Op: n.Op, Expected: "bool", Left: v.Type()}
		}
		if n.Op == OpAnd && !b {
			return Bool(false), nil
		}
		if n.Op == OpOr && b {
			return Bool(true), nil
		}
	}
	// AND of nothing is true, OR of nothing is false
	return Bool(n.Op == OpAnd), nil
}

func evalIf(ev *Evaluator, node Node, ctx Context) (Value, error) {
	n, ok := node.(*If)
	if !ok {
		return Value{}, wrongNode(KindIf, node)
	}
	cond, err := ev.Eval(n.Condition, ctx)
	if err != nil {
		return Value{}, err
	}
	b, isBool := cond.AsBool()
	if !isBool {
		return Value{}, &TypeMismatchError{Op: "if", Expected: "bool", Left: cond.Type()}
	}
	if b {
		return ev.Eval(n.Then, ctx)
	}
	return ev.Eval(n.Else, ctx)
}
