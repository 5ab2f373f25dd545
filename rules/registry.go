package rules

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Handler evaluates one node kind. Sub-nodes are evaluated through ev.
type Handler func(ev *Evaluator, node Node, ctx Context) (Value, error)

// DecodeFunc builds one node kind from its JSON object fields. Sub-nodes are decoded through d.
type DecodeFunc func(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error)

// Registry maps node kinds to their handlers and decoders.
// Register must not be called concurrently with evaluation.
type Registry struct {
	handlers map[Kind]Handler
	decoders map[Kind]DecodeFunc
}

// builtin is never mutated after initialisation
var builtin = NewRegistry()

// NewRegistry returns a registry with the built-in node kinds
func NewRegistry() *Registry {
	r := &Registry{
		handlers: make(map[Kind]Handler),
		decoders: make(map[Kind]DecodeFunc),
	}
	r.mustRegister(KindLiteral, evalLiteral, decodeLiteral)
	r.mustRegister(KindRef, evalRef, decodeRef)
	r.mustRegister(KindCompare, evalCompare, decodeCompare)
	r.mustRegister(KindLogical, evalLogical, decodeLogical)
	r.mustRegister(KindIf, evalIf, decodeIf)
	return r
}

// Register adds a node kind. The decoder may be nil for kinds only built in code.
func (r *Registry) Register(kind Kind, h Handler, dec DecodeFunc) error {
	if kind == "" {
		return fmt.Errorf("node kind is required")
	}
	if h == nil {
		return fmt.Errorf("handler for %q is required", kind)
	}
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("node kind %q already registered", kind)
	}
	r.handlers[kind] = h
	if dec != nil {
		r.decoders[kind] = dec
	}
	return nil
}

func (r *Registry) mustRegister(kind Kind, h Handler, dec DecodeFunc) {
	if err := r.Register(kind, h, dec); err != nil {
		panic(err)
	}
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// NewEvaluator returns an evaluator bound to the registry
func (r *Registry) NewEvaluator() *Evaluator {
	return &Evaluator{registry: r}
}

// Evaluate validates and evaluates node against ctx
func (r *Registry) Evaluate(node Node, ctx Context) (Value, error) {
	if err := r.Validate(node); err != nil {
		return Value{}, err
	}
	return r.NewEvaluator().Eval(node, ctx)
}

// Validate checks tree size, depth, per-node shape and that every kind is registered
func (r *Registry) Validate(node Node) error {
	count := 0
	return r.validate(node, "$", 1, &count)
}

func (r *Registry) validate(node Node, path string, depth int, count *int) error {
	if node == nil {
		return &MalformedRuleError{Path: path, Reason: "missing node"}
	}
	*count++
	if *count > MaxNodes {
		return &MalformedRuleError{Path: path, Reason: fmt.Sprintf("tree exceeds %d nodes", MaxNodes)}
	}
	if depth > MaxDepth {
		return &MalformedRuleError{Path: path, Reason: fmt.Sprintf("tree exceeds depth %d", MaxDepth)}
	}
	if _, ok := r.handlers[node.Kind()]; !ok {
		return &UnknownNodeKindError{Kind: node.Kind()}
	}
	if c, ok := node.(Checker); ok {
		if err := c.Check(); err != nil {
			return &MalformedRuleError{Path: path, Reason: err.Error()}
		}
	}
	if p, ok := node.(Parent); ok {
		for i, child := range p.Children() {
			if err := r.validate(child, fmt.Sprintf("%s[%d]", path, i), depth+1, count); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate validates and evaluates node with the built-in kinds
func Evaluate(node Node, ctx Context) (Value, error) {
	return builtin.Evaluate(node, ctx)
}

// Validate checks node against the built-in kinds
func Validate(node Node) error {
	return builtin.Validate(node)
}

// Decode parses a JSON rule tree with the built-in kinds
func Decode(data []byte) (Node, error) {
	return builtin.Decode(data)
}

// RefKeys returns the distinct context keys referenced anywhere in the tree, sorted
func RefKeys(node Node) []string {
	seen := make(map[string]struct{})
	var walk func(Node, int)
	walk = func(n Node, depth int) {
		if n == nil || depth > MaxDepth {
			return
		}
		if ref, ok := n.(*Ref); ok {
			seen[ref.Key] = struct{}{}
		}
		if p, ok := n.(Parent); ok {
			for _, child := range p.Children() {
				walk(child, depth+1)
			}
		}
	}
	walk(node, 1)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
