package variant

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/petal-labs/iris-messages/core"
)

// Union is a static definition of a closed set of shapes for the interface
// type T. It is immutable after construction and safe for concurrent use.
type Union[T any] struct {
	name   string
	field  string
	wrap   func(Unknown) T
	tags   map[string]Shape[T]
	shapes []Shape[T]
}

// Discriminated defines a closed union selected by the string property field.
// Unmapped tags are errors.
func Discriminated[T any](name, field string, shapes ...Shape[T]) *Union[T] {
	return newTagged(name, field, nil, shapes)
}

// Extensible defines a discriminated union that tolerates tags added by the
// server after this client was built: wrap turns the raw payload into the
// union's unknown member.
func Extensible[T any](name, field string, wrap func(Unknown) T, shapes ...Shape[T]) *Union[T] {
	if wrap == nil {
		panic(fmt.Sprintf("variant: extensible union %s needs an unknown wrapper", name))
	}
	return newTagged(name, field, wrap, shapes)
}

// Trial defines an untagged union. Candidates are tried in the given order,
// which is part of the union's contract: the first shape that decodes wins.
func Trial[T any](name string, shapes ...Shape[T]) *Union[T] {
	if len(shapes) < 2 {
		panic(fmt.Sprintf("variant: union %s needs at least two shapes", name))
	}
	for i, s := range shapes {
		if s.Decode == nil {
			panic(fmt.Sprintf("variant: union %s shape %d has no decoder", name, i))
		}
		if s.Tag != "" {
			panic(fmt.Sprintf("variant: trial union %s shape %q must not carry a tag", name, s.Tag))
		}
		if s.Name == "" {
			shapes[i].Name = fmt.Sprintf("candidate %d", i+1)
		}
	}
	return &Union[T]{name: name, shapes: shapes}
}

func newTagged[T any](name, field string, wrap func(Unknown) T, shapes []Shape[T]) *Union[T] {
	if field == "" {
		panic(fmt.Sprintf("variant: union %s needs a discriminator field", name))
	}
	if len(shapes) == 0 {
		panic(fmt.Sprintf("variant: union %s has no shapes", name))
	}
	u := &Union[T]{
		name:   name,
		field:  field,
		wrap:   wrap,
		tags:   make(map[string]Shape[T], len(shapes)),
		shapes: shapes,
	}
	for _, s := range shapes {
		if s.Tag == "" {
			panic(fmt.Sprintf("variant: union %s has a shape without a tag", name))
		}
		if s.Decode == nil {
			panic(fmt.Sprintf("variant: union %s shape %q has no decoder", name, s.Tag))
		}
		if _, dup := u.tags[s.Tag]; dup {
			panic(fmt.Sprintf("variant: union %s registers tag %q twice", name, s.Tag))
		}
		u.tags[s.Tag] = s
	}
	return u
}

// Name returns the union's diagnostic name.
func (u *Union[T]) Name() string { return u.name }

// Discriminator returns the tag property name, or "" for trial unions.
func (u *Union[T]) Discriminator() string { return u.field }

// IsExtensible reports whether unmapped tags decode to an unknown member.
func (u *Union[T]) IsExtensible() bool { return u.wrap != nil }

// Decode turns data into exactly one member of the union.
func (u *Union[T]) Decode(data []byte) (T, error) {
	if u.field == "" {
		return u.decodeTrial(data)
	}
	return u.decodeTagged(data)
}

// Tag reads the discriminator from data without decoding the rest.
// It fails with core.ErrMissingDiscriminator when data is not an object or the
// property is absent or not a string.
func (u *Union[T]) Tag(data []byte) (string, error) {
	if u.field == "" {
		return "", fmt.Errorf("variant: union %s has no discriminator", u.name)
	}
	if !gjson.ValidBytes(data) {
		return "", u.missing("payload is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return "", u.missing(fmt.Sprintf("payload is %s, not an object", KindOf(data)))
	}

	var tag gjson.Result
	found := false
	root.ForEach(func(key, value gjson.Result) bool {
		if key.String() == u.field {
			tag, found = value, true
			return false
		}
		return true
	})
	if !found {
		return "", u.missing(fmt.Sprintf("property %q is absent", u.field))
	}
	if tag.Type != gjson.String {
		return "", u.missing(fmt.Sprintf("property %q is %s, not a string", u.field, KindOf([]byte(tag.Raw))))
	}
	return tag.String(), nil
}

func (u *Union[T]) decodeTagged(data []byte) (T, error) {
	var zero T

	tag, err := u.Tag(data)
	if err != nil {
		return zero, err
	}

	shape, ok := u.tags[tag]
	if !ok {
		if u.wrap != nil {
			return u.wrap(Unknown{Tag: tag, Raw: clone(data)}), nil
		}
		return zero, &core.WireError{
			Kind:   core.ErrUnrecognizedDiscriminator,
			Union:  u.name,
			Shape:  tag,
			Reason: fmt.Sprintf("no shape registered for %s=%q", u.field, tag),
		}
	}

	v, err := shape.Decode(data)
	if err != nil {
		return zero, &core.WireError{
			Kind:  core.ErrShapeDecode,
			Union: u.name,
			Shape: tag,
			Cause: err,
		}
	}
	return v, nil
}

func (u *Union[T]) decodeTrial(data []byte) (T, error) {
	kind := KindOf(data)
	causes := make([]error, 0, len(u.shapes))

	for _, shape := range u.shapes {
		if !shape.accepts(kind) {
			causes = append(causes, &core.WireError{
				Kind:   core.ErrShapeDecode,
				Union:  u.name,
				Shape:  shape.Name,
				Reason: fmt.Sprintf("cannot decode %s", kind),
			})
			continue
		}
		v, err := shape.Decode(data)
		if err == nil {
			return v, nil
		}
		causes = append(causes, &core.WireError{
			Kind:  core.ErrShapeDecode,
			Union: u.name,
			Shape: shape.Name,
			Cause: err,
		})
	}

	var zero T
	return zero, &core.WireError{
		Kind:   core.ErrAllCandidatesFailed,
		Union:  u.name,
		Reason: fmt.Sprintf("%d candidates rejected %s", len(u.shapes), kind),
		Causes: causes,
	}
}

// Encode emits the member held by v exactly as its own shape encodes it. An
// unknown member re-emits its original bytes.
func (u *Union[T]) Encode(v T) ([]byte, error) {
	if any(v) == nil {
		return nil, fmt.Errorf("variant: cannot encode empty %s", u.name)
	}
	if r, ok := any(v).(rawer); ok {
		return clone(r.RawJSON()), nil
	}
	return json.Marshal(v)
}

func (u *Union[T]) missing(reason string) error {
	return &core.WireError{
		Kind:   core.ErrMissingDiscriminator,
		Union:  u.name,
		Reason: reason,
	}
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
