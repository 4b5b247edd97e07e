package messages

import "github.com/petal-labs/iris-messages/variant"

// BlockDelta is an incremental update to the content block at an index.
//
// Members: TextDelta, InputJSONDelta, ThinkingDelta, SignatureDelta,
// CitationsDelta, UnknownDelta.
type BlockDelta interface {
	isBlockDelta()
}

// BlockDeltas is the union for BlockDelta.
var BlockDeltas = variant.Register(variant.Extensible("BlockDelta", "type",
	func(u variant.Unknown) BlockDelta { return UnknownDelta{u} },
	variant.Struct[TextDelta, BlockDelta]("text_delta"),
	variant.Struct[InputJSONDelta, BlockDelta]("input_json_delta"),
	variant.Struct[ThinkingDelta, BlockDelta]("thinking_delta"),
	variant.Struct[SignatureDelta, BlockDelta]("signature_delta"),
	variant.Struct[CitationsDelta, BlockDelta]("citations_delta"),
))

// TextDelta appends text to a TextBlock.
type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextDelta) isBlockDelta() {}

func (d TextDelta) Validate() error {
	return variant.OneOf("type", d.Type, "text_delta")
}

// InputJSONDelta appends a fragment of a ToolUseBlock's input. Fragments are
// not valid JSON on their own.
type InputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

func (InputJSONDelta) isBlockDelta() {}

func (d InputJSONDelta) Validate() error {
	return variant.OneOf("type", d.Type, "input_json_delta")
}

// ThinkingDelta appends to a ThinkingBlock.
type ThinkingDelta struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

func (ThinkingDelta) isBlockDelta() {}

func (d ThinkingDelta) Validate() error {
	return variant.OneOf("type", d.Type, "thinking_delta")
}

// SignatureDelta sets the signature of a ThinkingBlock.
type SignatureDelta struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

func (SignatureDelta) isBlockDelta() {}

func (d SignatureDelta) Validate() error {
	return variant.First(
		variant.OneOf("type", d.Type, "signature_delta"),
		variant.Required("signature", d.Signature != ""),
	)
}

// CitationsDelta adds one citation to a TextBlock.
type CitationsDelta struct {
	Type     string                  `json:"type"`
	Citation variant.Field[Citation] `json:"citation"`
}

func (CitationsDelta) isBlockDelta() {}

func (d CitationsDelta) Validate() error {
	return variant.First(
		variant.OneOf("type", d.Type, "citations_delta"),
		variant.Nested("citation", d.Citation),
	)
}

// UnknownDelta is a delta type this client does not know.
type UnknownDelta struct{ variant.Unknown }

func (UnknownDelta) isBlockDelta() {}
