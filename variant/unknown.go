package variant

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/petal-labs/iris-messages/core"
)

// Unknown is the payload of an extensible union member whose tag this client
// does not know. Raw holds the payload exactly as received.
//
// Unions embed it in their own unknown type so it satisfies the union's
// sealed interface:
//
//	type UnknownDelta struct{ variant.Unknown }
//
//	func (UnknownDelta) isDelta() {}
type Unknown struct {
	Tag string
	Raw json.RawMessage
}

type rawer interface {
	RawJSON() json.RawMessage
}

// RawJSON returns the original payload bytes.
func (u Unknown) RawJSON() json.RawMessage {
	return u.Raw
}

// MarshalJSON re-emits the original payload.
func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

// Validate always fails: an unknown member decodes fine but a caller that
// insists on a known kind must reject it.
func (u Unknown) Validate() error {
	return &core.WireError{
		Kind:   core.ErrValidation,
		Shape:  u.Tag,
		Reason: fmt.Sprintf("unknown variant %q", u.Tag),
	}
}
