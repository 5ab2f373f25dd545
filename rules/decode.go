package rules

import (
	"encoding/json"
	"fmt"
)

// Decoder tracks size and depth while a JSON tree is decoded
type Decoder struct {
	registry *Registry
	nodes    int
	depth    int
}

// Decode parses a JSON rule tree using the registry's decoders and validates the result
func (r *Registry) Decode(data []byte) (Node, error) {
	d := &Decoder{registry: r}
	node, err := d.Node(json.RawMessage(data), "$")
	if err != nil {
		return nil, err
	}
	if err := r.Validate(node); err != nil {
		return nil, err
	}
	return node, nil
}

// Node decodes one tagged object
func (d *Decoder) Node(raw json.RawMessage, path string) (Node, error) {
	d.nodes++
	if d.nodes > MaxNodes {
		return nil, &MalformedRuleError{Path: path, Reason: fmt.Sprintf("tree exceeds %d nodes", MaxNodes)}
	}
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > MaxDepth {
		return nil, &MalformedRuleError{Path: path, Reason: fmt.Sprintf("tree exceeds depth %d", MaxDepth)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &MalformedRuleError{Path: path, Reason: "expected a JSON object"}
	}

	var kind Kind
	if err := d.Field(fields, "type", path, &kind); err != nil {
		return nil, err
	}
	dec, ok := d.registry.decoders[kind]
	if !ok {
		return nil, &UnknownNodeKindError{Kind: kind}
	}
	return dec(d, path, fields)
}

// Field decodes a required scalar field into out
func (d *Decoder) Field(fields map[string]json.RawMessage, name, path string, out any) error {
	raw, ok := fields[name]
	if !ok {
		return &MalformedRuleError{Path: path, Reason: fmt.Sprintf("missing field %q", name)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedRuleError{Path: path + "." + name, Reason: err.Error()}
	}
	return nil
}

// Child decodes a required sub-node field
func (d *Decoder) Child(fields map[string]json.RawMessage, name, path string) (Node, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, &MalformedRuleError{Path: path, Reason: fmt.Sprintf("missing field %q", name)}
	}
	return d.Node(raw, path+"."+name)
}

func decodeLiteral(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error) {
	var v Value
	if err := d.Field(fields, "value", path, &v); err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

func decodeRef(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error) {
	var key string
	if err := d.Field(fields, "key", path, &key); err != nil {
		return nil, err
	}
	return &Ref{Key: key}, nil
}

func decodeCompare(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error) {
	n := &Compare{}
	if err := d.Field(fields, "op", path, &n.Op); err != nil {
		return nil, err
	}
	var err error
	if n.Left, err = d.Child(fields, "left", path); err != nil {
		return nil, err
	}
	if n.Right, err = d.Child(fields, "right", path); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeLogical(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error) {
	n := &Logical{}
	if err := d.Field(fields, "op", path, &n.Op); err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := d.Field(fields, "operands", path, &raws); err != nil {
		return nil, err
	}
	n.Operands = make([]Node, 0, len(raws))
	for i, raw := range raws {
		child, err := d.Node(raw, fmt.Sprintf("%s.operands[%d]", path, i))
		if err != nil {
			return nil, err
		}
		n.Operands = append(n.Operands, child)
	}
	return n, nil
}

func decodeIf(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error) {
	n := &If{}
	var err error
	if n.Condition, err = d.Child(fields, "condition", path); err != nil {
		return nil, err
	}
	if n.Then, err = d.Child(fields, "then", path); err != nil {
		return nil, err
	}
	if n.Else, err = d.Child(fields, "else", path); err != nil {
		return nil, err
	}
	return n, nil
}
