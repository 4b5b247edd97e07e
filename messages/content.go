package messages

import (
	"github.com/goccy/go-json"

	"github.com/petal-labs/iris-messages/variant"
)

// ContentBlock is one block of assistant output.
//
// Members: TextBlock, ToolUseBlock, ThinkingBlock, RedactedThinkingBlock,
// UnknownContentBlock.
type ContentBlock interface {
	isContentBlock()
}

// ContentBlocks is the union for ContentBlock.
var ContentBlocks = variant.Register(variant.Extensible("ContentBlock", "type",
	func(u variant.Unknown) ContentBlock { return UnknownContentBlock{u} },
	variant.Struct[TextBlock, ContentBlock]("text"),
	variant.Struct[ToolUseBlock, ContentBlock]("tool_use"),
	variant.Struct[ThinkingBlock, ContentBlock]("thinking"),
	variant.Struct[RedactedThinkingBlock, ContentBlock]("redacted_thinking"),
))

// TextBlock is generated text, optionally with the citations supporting it.
type TextBlock struct {
	Type      string                    `json:"type"`
	Text      string                    `json:"text"`
	Citations []variant.Field[Citation] `json:"citations,omitempty"`
}

func (TextBlock) isContentBlock() {}

func (b TextBlock) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "text"),
		variant.Each("citations", b.Citations),
	)
}

// ToolUseBlock is a request from the model to call a tool.
type ToolUseBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func (ToolUseBlock) isContentBlock() {}

func (b ToolUseBlock) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "tool_use"),
		variant.Required("id", b.ID != ""),
		variant.Required("name", b.Name != ""),
		variant.Required("input", len(b.Input) > 0),
	)
}

// ThinkingBlock carries extended thinking output and its signature.
type ThinkingBlock struct {
	Type      string `json:"type"`
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

func (ThinkingBlock) isContentBlock() {}

func (b ThinkingBlock) Validate() error {
	return variant.OneOf("type", b.Type, "thinking")
}

// RedactedThinkingBlock is thinking output withheld by the server.
type RedactedThinkingBlock struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func (RedactedThinkingBlock) isContentBlock() {}

func (b RedactedThinkingBlock) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "redacted_thinking"),
		variant.Required("data", b.Data != ""),
	)
}

// UnknownContentBlock is a block type this client does not know.
type UnknownContentBlock struct{ variant.Unknown }

func (UnknownContentBlock) isContentBlock() {}

// Citation locates supporting material for a span of text.
//
// Members: CharLocation, PageLocation, ContentBlockLocation,
// WebSearchResultLocation, UnknownCitation.
type Citation interface {
	isCitation()
}

// Citations is the union for Citation.
var Citations = variant.Register(variant.Extensible("Citation", "type",
	func(u variant.Unknown) Citation { return UnknownCitation{u} },
	variant.Struct[CharLocation, Citation]("char_location"),
	variant.Struct[PageLocation, Citation]("page_location"),
	variant.Struct[ContentBlockLocation, Citation]("content_block_location"),
	variant.Struct[WebSearchResultLocation, Citation]("web_search_result_location"),
))

// CharLocation cites a character range of a plain text document.
type CharLocation struct {
	Type           string `json:"type"`
	CitedText      string `json:"cited_text"`
	DocumentIndex  int    `json:"document_index"`
	DocumentTitle  string `json:"document_title,omitempty"`
	StartCharIndex int    `json:"start_char_index"`
	EndCharIndex   int    `json:"end_char_index"`
}

func (CharLocation) isCitation() {}

func (c CharLocation) Validate() error {
	return variant.First(
		variant.OneOf("type", c.Type, "char_location"),
		rangeCheck("end_char_index", c.StartCharIndex, c.EndCharIndex),
	)
}

// PageLocation cites a page range of a PDF document.
type PageLocation struct {
	Type            string `json:"type"`
	CitedText       string `json:"cited_text"`
	DocumentIndex   int    `json:"document_index"`
	DocumentTitle   string `json:"document_title,omitempty"`
	StartPageNumber int    `json:"start_page_number"`
	EndPageNumber   int    `json:"end_page_number"`
}

func (PageLocation) isCitation() {}

func (c PageLocation) Validate() error {
	return variant.First(
		variant.OneOf("type", c.Type, "page_location"),
		rangeCheck("end_page_number", c.StartPageNumber, c.EndPageNumber),
	)
}

// ContentBlockLocation cites a range of blocks of a custom content document.
type ContentBlockLocation struct {
	Type            string `json:"type"`
	CitedText       string `json:"cited_text"`
	DocumentIndex   int    `json:"document_index"`
	DocumentTitle   string `json:"document_title,omitempty"`
	StartBlockIndex int    `json:"start_block_index"`
	EndBlockIndex   int    `json:"end_block_index"`
}

func (ContentBlockLocation) isCitation() {}

func (c ContentBlockLocation) Validate() error {
	return variant.First(
		variant.OneOf("type", c.Type, "content_block_location"),
		rangeCheck("end_block_index", c.StartBlockIndex, c.EndBlockIndex),
	)
}

// WebSearchResultLocation cites a web search result.
type WebSearchResultLocation struct {
	Type           string `json:"type"`
	CitedText      string `json:"cited_text"`
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	EncryptedIndex string `json:"encrypted_index"`
}

func (WebSearchResultLocation) isCitation() {}

func (c WebSearchResultLocation) Validate() error {
	return variant.First(
		variant.OneOf("type", c.Type, "web_search_result_location"),
		variant.Required("url", c.URL != ""),
	)
}

// UnknownCitation is a citation type this client does not know.
type UnknownCitation struct{ variant.Unknown }

func (UnknownCitation) isCitation() {}

func rangeCheck(field string, start, end int) error {
	if start < 0 {
		return variant.Invalid(field, "range starts below zero")
	}
	if end < start {
		return variant.Invalid(field, "range ends before it starts")
	}
	return nil
}
