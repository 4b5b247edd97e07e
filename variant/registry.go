package variant

import (
	"fmt"
	"reflect"
	"sync"
)

var registry = struct {
	sync.RWMutex
	unions map[reflect.Type]any
}{unions: make(map[reflect.Type]any)}

// Register makes u the union used for every Field[T]. Call it once per union
// type from a package-level var or init; registering a type twice panics.
func Register[T any](u *Union[T]) *Union[T] {
	key := reflect.TypeFor[T]()

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.unions[key]; dup {
		panic(fmt.Sprintf("variant: union for %s registered twice", key))
	}
	registry.unions[key] = u
	return u
}

// Lookup returns the union registered for T.
func Lookup[T any]() (*Union[T], bool) {
	registry.RLock()
	defer registry.RUnlock()
	u, ok := registry.unions[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return u.(*Union[T]), true
}

func mustLookup[T any]() (*Union[T], error) {
	u, ok := Lookup[T]()
	if !ok {
		return nil, fmt.Errorf("variant: no union registered for %s", typeName[T]())
	}
	return u, nil
}

// Field holds one union member inside an enclosing struct. Use a pointer
// (*Field[T]) for optional properties so absent and null stay nil.
type Field[T any] struct {
	Value T
}

// Of wraps v for assignment to a Field.
func Of[T any](v T) Field[T] {
	return Field[T]{Value: v}
}

// MarshalJSON encodes the held member through the registered union.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	u, err := mustLookup[T]()
	if err != nil {
		return nil, err
	}
	return u.Encode(f.Value)
}

// UnmarshalJSON decodes data through the registered union.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	u, err := mustLookup[T]()
	if err != nil {
		return err
	}
	v, err := u.Decode(data)
	if err != nil {
		return err
	}
	f.Value = v
	return nil
}

// Validate validates the held member.
func (f Field[T]) Validate() error {
	return Validate(f.Value)
}
