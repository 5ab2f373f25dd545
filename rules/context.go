package rules

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Context is an immutable mapping of named inputs available to a rule
type Context struct {
	values map[string]Value
}

// NewContext copies values into a new context
func NewContext(values map[string]Value) Context {
	return Context{values: maps.Clone(values)}
}

// ParseContext decodes a JSON object of named values
func ParseContext(data []byte) (Context, error) {
	var values map[string]Value
	if err := json.Unmarshal(data, &values); err != nil {
		return Context{}, fmt.Errorf("invalid rule context: %w", err)
	}
	return Context{values: values}, nil
}

// Lookup returns the value bound to key
func (c Context) Lookup(key string) (Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

// With returns a copy of the context with key bound to v
func (c Context) With(key string, v Value) Context {
	next := make(map[string]Value, len(c.values)+1)
	maps.Copy(next, c.values)
	next[key] = v
	return Context{values: next}
}

// Keys returns the bound keys in sorted order
func (c Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Len returns the number of bound keys
func (c Context) Len() int {
	return len(c.values)
}

func (c Context) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}
