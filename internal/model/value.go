package model

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindMap
	KindList
)

// Value is an opaque structured payload: a string, number, bool, map of
// Values, or list of Values. The coordination core carries these
// through the store without interpreting them (pending calls, event
// payloads). It replaces untyped field maps so the wire representation
// stays inside the marshal methods.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    map[string]Value
	list []Value
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: m}
}
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// Interface converts the Value to plain Go types for marshaling.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, elem := range v.m {
			out[k] = elem.Interface()
		}
		return out
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, elem := range v.list {
			out[i] = elem.Interface()
		}
		return out
	}
	return nil
}

// FromInterface builds a Value from decoded JSON or BSON data.
func FromInterface(data interface{}) (Value, error) {
	switch d := data.(type) {
	case string:
		return String(d), nil
	case float64:
		return Number(d), nil
	case int:
		return Number(float64(d)), nil
	case int32:
		return Number(float64(d)), nil
	case int64:
		return Number(float64(d)), nil
	case bool:
		return Bool(d), nil
	case map[string]interface{}:
		return mapFromInterface(d)
	case primitive.M:
		return mapFromInterface(d)
	case primitive.D:
		m := make(map[string]Value, len(d))
		for _, e := range d {
			elem, err := FromInterface(e.Value)
			if err != nil {
				return Value{}, err
			}
			m[e.Key] = elem
		}
		return Map(m), nil
	case []interface{}:
		return listFromInterface(d)
	case primitive.A:
		return listFromInterface(d)
	}
	return Value{}, fmt.Errorf("unsupported value type %T", data)
}

func mapFromInterface(d map[string]interface{}) (Value, error) {
	m := make(map[string]Value, len(d))
	for k, raw := range d {
		elem, err := FromInterface(raw)
		if err != nil {
			return Value{}, err
		}
		m[k] = elem
	}
	return Map(m), nil
}

func listFromInterface(d []interface{}) (Value, error) {
	list := make([]Value, len(d))
	for i, raw := range d {
		elem, err := FromInterface(raw)
		if err != nil {
			return Value{}, err
		}
		list[i] = elem
	}
	return List(list...), nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(v.Interface())
}

func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	var decoded interface{}
	if err := raw.Unmarshal(&decoded); err != nil {
		return err
	}
	parsed, err := FromInterface(decoded)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
