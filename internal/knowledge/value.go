package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Field is one key of a map Value. Maps keep document order.
type Field struct {
	Key   string
	Value Value
}

// Value is a JSON document node: null, bool, number, string, list or ordered map.
// The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	raw    string
	str    string
	list   []Value
	fields []Field
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f, raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List wraps items.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map builds an ordered map.
func Map(fields ...Field) Value { return Value{kind: KindMap, fields: fields} }

// F is shorthand for a map field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.b }

func (v Value) Num() float64 { return v.num }

func (v Value) Str() string { return v.str }

// Items returns a list's elements.
func (v Value) Items() []Value { return v.list }

// Fields returns a map's entries in document order.
func (v Value) Fields() []Field { return v.fields }

// IsLeaf reports whether v is a scalar or null.
func (v Value) IsLeaf() bool { return v.kind != KindList && v.kind != KindMap }

func (v Value) IsComposite() bool { return !v.IsLeaf() }

// Get returns the value stored under key in a map.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len is the number of items or fields; zero for leaves.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.fields)
	default:
		return 0
	}
}

// Text renders a leaf for search and display. Numbers keep their source
// spelling; composites render compactly.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.raw
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return ""
	default:
		return v.Compact(0)
	}
}

// Compact renders v on one line. When limit > 0 every list shows at most limit
// items at every depth.
func (v Value) Compact(limit int) string {
	var b strings.Builder
	v.writeCompact(&b, limit)
	return b.String()
}

func (v Value) writeCompact(b *strings.Builder, limit int) {
	switch v.kind {
	case KindList:
		items := v.list
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				b.WriteString(", ")
			}
			item.writeCompact(b, limit)
		}
		b.WriteByte(']')
	case KindMap:
		b.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Key)
			b.WriteString(": ")
			f.Value.writeCompact(b, limit)
		}
		b.WriteByte('}')
	default:
		b.WriteString(v.Text())
	}
}

// UnmarshalJSON decodes any JSON document, keeping object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("knowledge: trailing data after JSON value")
	}
	*v = parsed
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("knowledge: number %q: %w", t, err)
		}
		return Value{kind: KindNumber, num: f, raw: t.String()}, nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			list := Value{kind: KindList}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				list.list = append(list.list, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return list, nil
		case '{':
			m := Value{kind: KindMap}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("knowledge: object key %v is not a string", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.fields = append(m.fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return m, nil
		}
	}
	return Value{}, fmt.Errorf("knowledge: unexpected token %v", tok)
}

// MarshalJSON encodes v with map keys in their stored order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.raw)
	case KindString:
		enc, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// FromAny converts decoded Go values (maps, slices, scalars) into a Value. Map
// keys are sorted since Go maps carry no order.
func FromAny(x any) (Value, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("knowledge: converting %T: %w", x, err)
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}
