package variant

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Kind is the top-level JSON kind of a payload.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid JSON"
	}
}

// KindOf classifies data without decoding it.
func KindOf(data []byte) Kind {
	if !gjson.ValidBytes(data) {
		return KindInvalid
	}
	res := gjson.ParseBytes(data)
	switch res.Type {
	case gjson.Null:
		return KindNull
	case gjson.True, gjson.False:
		return KindBool
	case gjson.Number:
		return KindNumber
	case gjson.String:
		return KindString
	case gjson.JSON:
		if res.IsArray() {
			return KindArray
		}
		return KindObject
	}
	return KindInvalid
}

// Shape is one candidate member of a union.
type Shape[T any] struct {
	// Name identifies the shape in errors. Defaults to Tag.
	Name string

	// Tag is the discriminator value selecting this shape. Required for
	// discriminated unions, must be empty for trial unions.
	Tag string

	// Filter, when set, lists the JSON kinds this shape can decode. Payloads of
	// any other kind are rejected without calling Decode.
	Filter []Kind

	// Decode parses the payload into the shape.
	Decode func(data []byte) (T, error)
}

func (s Shape[T]) accepts(kind Kind) bool {
	if len(s.Filter) == 0 || kind == KindInvalid {
		return true
	}
	for _, k := range s.Filter {
		if k == kind {
			return true
		}
	}
	return false
}

// Struct returns a shape that decodes the payload into struct S.
// S must implement the union interface T.
func Struct[S, T any](tag string) Shape[T] {
	return structShape[S, T](tag, false)
}

// StrictStruct is like Struct but rejects payloads carrying fields S does not
// declare. Trial unions use it to tell object shapes apart.
func StrictStruct[S, T any](name string) Shape[T] {
	return structShape[S, T](name, true)
}

func structShape[S, T any](tag string, strict bool) Shape[T] {
	var zero S
	if _, ok := any(zero).(T); !ok {
		panic(fmt.Sprintf("variant: %T does not implement %s", zero, typeName[T]()))
	}
	name := tag
	if name == "" {
		name = fmt.Sprintf("%T", zero)
	}
	return Shape[T]{
		Name:   name,
		Tag:    tag,
		Filter: []Kind{KindObject},
		Decode: func(data []byte) (T, error) {
			var s S
			if err := unmarshal(data, &s, strict); err != nil {
				var t T
				return t, err
			}
			return any(s).(T), nil
		},
	}
}

// Value returns a shape for a named scalar or slice type S whose JSON form is
// a single kind, e.g. `type TextContent string` with KindString.
func Value[S, T any](name string, kind Kind) Shape[T] {
	var zero S
	if _, ok := any(zero).(T); !ok {
		panic(fmt.Sprintf("variant: %T does not implement %s", zero, typeName[T]()))
	}
	return Shape[T]{
		Name:   name,
		Filter: []Kind{kind},
		Decode: func(data []byte) (T, error) {
			var s S
			if err := json.Unmarshal(data, &s); err != nil {
				var t T
				return t, err
			}
			return any(s).(T), nil
		},
	}
}

func unmarshal(data []byte, v any, strict bool) error {
	if !strict {
		return json.Unmarshal(data, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))[1:]
}
