package models

import (
	"fmt"
	"strconv"
)

// Kind tags the type of a parameter value.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	}
	return "invalid"
}

// Value is a flat parameter value: a string or a number, never nested.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
}

func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Float returns the numeric value when the parameter is a number.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Any returns the value as a plain Go value (string or float64).
func (v Value) Any() any {
	if v.Kind == KindNumber {
		return v.Num
	}
	return v.Str
}

func (v Value) GoString() string {
	if v.Kind == KindNumber {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return strconv.Quote(v.Str)
}

// ValueOf converts a decoded JSON scalar into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case interface{ Float64() (float64, error) }:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	}
	return Value{}, fmt.Errorf("unsupported parameter type %T", x)
}

type Param struct {
	Name  string
	Value Value
}

// ActionDescriptor names an action and its flat parameters. Param order is
// irrelevant: the canonical form sorts by name.
type ActionDescriptor struct {
	Name   string
	Params []Param
}

// NewAction builds a descriptor from a plain map of scalars.
func NewAction(name string, params map[string]any) (ActionDescriptor, error) {
	a := ActionDescriptor{Name: name, Params: make([]Param, 0, len(params))}
	for k, raw := range params {
		v, err := ValueOf(raw)
		if err != nil {
			return ActionDescriptor{}, fmt.Errorf("param %q: %w", k, err)
		}
		a.Params = append(a.Params, Param{Name: k, Value: v})
	}
	return a, nil
}

// Param looks a parameter up by name.
func (a ActionDescriptor) Param(name string) (Value, bool) {
	for _, p := range a.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}

// ParamMap returns the parameters as plain Go values.
func (a ActionDescriptor) ParamMap() map[string]any {
	out := make(map[string]any, len(a.Params))
	for _, p := range a.Params {
		out[p.Name] = p.Value.Any()
	}
	return out
}
