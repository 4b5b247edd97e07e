package messages

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/variant"
)

// ContentBlockParam is one block of request content.
//
// Members: TextBlockParam, ImageBlockParam, DocumentBlockParam,
// ToolUseBlockParam, ToolResultBlockParam.
type ContentBlockParam interface {
	isContentBlockParam()
}

// ContentBlockParams is the union for ContentBlockParam.
var ContentBlockParams = variant.Register(variant.Discriminated("ContentBlockParam", "type",
	variant.Struct[TextBlockParam, ContentBlockParam]("text"),
	variant.Struct[ImageBlockParam, ContentBlockParam]("image"),
	variant.Struct[DocumentBlockParam, ContentBlockParam]("document"),
	variant.Struct[ToolUseBlockParam, ContentBlockParam]("tool_use"),
	variant.Struct[ToolResultBlockParam, ContentBlockParam]("tool_result"),
))

// CacheControl marks a prompt caching breakpoint.
type CacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

func (c CacheControl) Validate() error {
	return variant.First(
		variant.OneOf("type", c.Type, "ephemeral"),
		variant.OneOf("ttl", c.TTL, "", "5m", "1h"),
	)
}

// Ephemeral returns the only cache control type the API accepts.
func Ephemeral() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// TextBlockParam is request text.
type TextBlockParam struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

func (TextBlockParam) isContentBlockParam() {}

func (b TextBlockParam) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "text"),
		variant.Required("text", b.Text != ""),
		optional("cache_control", b.CacheControl),
	)
}

// NewTextBlock returns a text block.
func NewTextBlock(text string) TextBlockParam {
	return TextBlockParam{Type: "text", Text: text}
}

// ImageBlockParam is an image input.
type ImageBlockParam struct {
	Type         string                     `json:"type"`
	Source       variant.Field[ImageSource] `json:"source"`
	CacheControl *CacheControl              `json:"cache_control,omitempty"`
}

func (ImageBlockParam) isContentBlockParam() {}

func (b ImageBlockParam) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "image"),
		variant.Nested("source", b.Source),
		optional("cache_control", b.CacheControl),
	)
}

// NewImageBlock returns an image block reading from src.
func NewImageBlock(src ImageSource) ImageBlockParam {
	return ImageBlockParam{Type: "image", Source: variant.Of(src)}
}

// DocumentBlockParam is a document input. Its source shares the image source
// union; base64 sources carry application/pdf or text/plain.
type DocumentBlockParam struct {
	Type      string                     `json:"type"`
	Source    variant.Field[ImageSource] `json:"source"`
	Title     string                     `json:"title,omitempty"`
	Context   string                     `json:"context,omitempty"`
	Citations *CitationsConfig           `json:"citations,omitempty"`
}

func (DocumentBlockParam) isContentBlockParam() {}

func (b DocumentBlockParam) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "document"),
		variant.Nested("source", b.Source),
	)
}

// CitationsConfig enables citations for a document.
type CitationsConfig struct {
	Enabled bool `json:"enabled"`
}

// ToolUseBlockParam replays an earlier assistant tool call.
type ToolUseBlockParam struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func (ToolUseBlockParam) isContentBlockParam() {}

func (b ToolUseBlockParam) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "tool_use"),
		variant.Required("id", b.ID != ""),
		variant.Required("name", b.Name != ""),
		validJSON("input", b.Input),
	)
}

// ToolResultBlockParam returns the result of a tool call to the model.
// Content may be a string or a list of text and image blocks.
type ToolResultBlockParam struct {
	Type      string                         `json:"type"`
	ToolUseID string                         `json:"tool_use_id"`
	Content   *variant.Field[MessageContent] `json:"content,omitempty"`
	IsError   bool                           `json:"is_error,omitempty"`
}

func (ToolResultBlockParam) isContentBlockParam() {}

func (b ToolResultBlockParam) Validate() error {
	return variant.First(
		variant.OneOf("type", b.Type, "tool_result"),
		variant.Required("tool_use_id", b.ToolUseID != ""),
		optional("content", b.Content),
	)
}

// NewToolResult returns a tool result carrying text.
func NewToolResult(toolUseID, content string, isError bool) ToolResultBlockParam {
	c := variant.Of[MessageContent](TextContent(content))
	return ToolResultBlockParam{Type: "tool_result", ToolUseID: toolUseID, Content: &c, IsError: isError}
}

// ImageSource locates image or document bytes.
//
// Members: Base64Source, URLSource.
type ImageSource interface {
	isImageSource()
}

// ImageSources is the union for ImageSource.
var ImageSources = variant.Register(variant.Discriminated("ImageSource", "type",
	variant.Struct[Base64Source, ImageSource]("base64"),
	variant.Struct[URLSource, ImageSource]("url"),
))

// Base64Source is inline data.
type Base64Source struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func (Base64Source) isImageSource() {}

func (s Base64Source) Validate() error {
	return variant.First(
		variant.OneOf("type", s.Type, "base64"),
		variant.OneOf("media_type", s.MediaType,
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"application/pdf", "text/plain",
		),
		variant.Required("data", s.Data != ""),
	)
}

// URLSource is data fetched by the server.
type URLSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (URLSource) isImageSource() {}

func (s URLSource) Validate() error {
	return variant.First(
		variant.OneOf("type", s.Type, "url"),
		variant.Required("url", s.URL != ""),
	)
}

// ToolChoice controls how the model uses tools.
//
// Members: ToolChoiceAuto, ToolChoiceAny, ToolChoiceTool, ToolChoiceNone.
type ToolChoice interface {
	isToolChoice()
}

// ToolChoices is the union for ToolChoice.
var ToolChoices = variant.Register(variant.Discriminated("ToolChoice", "type",
	variant.Struct[ToolChoiceAuto, ToolChoice]("auto"),
	variant.Struct[ToolChoiceAny, ToolChoice]("any"),
	variant.Struct[ToolChoiceTool, ToolChoice]("tool"),
	variant.Struct[ToolChoiceNone, ToolChoice]("none"),
))

// ToolChoiceAuto lets the model decide.
type ToolChoiceAuto struct {
	Type                   string `json:"type"`
	DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
}

func (ToolChoiceAuto) isToolChoice() {}

func (c ToolChoiceAuto) Validate() error { return variant.OneOf("type", c.Type, "auto") }

// ToolChoiceAny forces the model to use some tool.
type ToolChoiceAny struct {
	Type                   string `json:"type"`
	DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
}

func (ToolChoiceAny) isToolChoice() {}

func (c ToolChoiceAny) Validate() error { return variant.OneOf("type", c.Type, "any") }

// ToolChoiceTool forces the named tool.
type ToolChoiceTool struct {
	Type                   string `json:"type"`
	Name                   string `json:"name"`
	DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
}

func (ToolChoiceTool) isToolChoice() {}

func (c ToolChoiceTool) Validate() error {
	return variant.First(
		variant.OneOf("type", c.Type, "tool"),
		variant.Required("name", c.Name != ""),
	)
}

// ToolChoiceNone forbids tool use.
type ToolChoiceNone struct {
	Type string `json:"type"`
}

func (ToolChoiceNone) isToolChoice() {}

func (c ToolChoiceNone) Validate() error { return variant.OneOf("type", c.Type, "none") }

// MessageContent is a message body: a plain string or a list of blocks.
//
// Members: TextContent, BlockContent.
type MessageContent interface {
	isMessageContent()
}

// MessageContents is the union for MessageContent. A string is tried before
// a block list.
var MessageContents = variant.Register(variant.Trial("MessageContent",
	variant.Value[TextContent, MessageContent]("string", variant.KindString),
	variant.Value[BlockContent, MessageContent]("blocks", variant.KindArray),
))

// TextContent is shorthand for a single text block.
type TextContent string

func (TextContent) isMessageContent() {}

func (c TextContent) Validate() error {
	return variant.Required("", c != "")
}

// BlockContent is a list of content blocks.
type BlockContent []variant.Field[ContentBlockParam]

func (BlockContent) isMessageContent() {}

func (c BlockContent) Validate() error {
	if len(c) == 0 {
		return variant.Invalid("", "at least one block required")
	}
	return variant.Each("", c)
}

// Blocks builds BlockContent from concrete blocks.
func Blocks(blocks ...ContentBlockParam) BlockContent {
	out := make(BlockContent, len(blocks))
	for i, b := range blocks {
		out[i] = variant.Of(b)
	}
	return out
}

// SystemPrompt is the system prompt: a plain string or a list of text blocks.
//
// Members: SystemText, SystemBlocks.
type SystemPrompt interface {
	isSystemPrompt()
}

// SystemPrompts is the union for SystemPrompt.
var SystemPrompts = variant.Register(variant.Trial("SystemPrompt",
	variant.Value[SystemText, SystemPrompt]("string", variant.KindString),
	variant.Value[SystemBlocks, SystemPrompt]("blocks", variant.KindArray),
))

// SystemText is a plain system prompt.
type SystemText string

func (SystemText) isSystemPrompt() {}

func (s SystemText) Validate() error {
	return variant.Required("", s != "")
}

// SystemBlocks is a system prompt split into blocks, e.g. to place cache
// breakpoints.
type SystemBlocks []TextBlockParam

func (SystemBlocks) isSystemPrompt() {}

func (s SystemBlocks) Validate() error {
	return variant.Each("", s)
}

// MessageParam is one conversation turn.
type MessageParam struct {
	Role    core.Role                     `json:"role"`
	Content variant.Field[MessageContent] `json:"content"`
}

func (m MessageParam) Validate() error {
	return variant.First(
		variant.OneOf("role", m.Role, core.RoleUser, core.RoleAssistant),
		variant.Nested("content", m.Content),
	)
}

// UserMessage returns a user turn with the given blocks.
func UserMessage(blocks ...ContentBlockParam) MessageParam {
	return MessageParam{Role: core.RoleUser, Content: variant.Of[MessageContent](Blocks(blocks...))}
}

// UserText returns a user turn with plain text content.
func UserText(text string) MessageParam {
	return MessageParam{Role: core.RoleUser, Content: variant.Of[MessageContent](TextContent(text))}
}

// AssistantText returns an assistant turn with plain text content.
func AssistantText(text string) MessageParam {
	return MessageParam{Role: core.RoleAssistant, Content: variant.Of[MessageContent](TextContent(text))}
}

// Tool declares a tool the model may call.
type Tool struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

func (t Tool) Validate() error {
	return variant.First(
		variant.Required("name", t.Name != ""),
		validJSON("input_schema", t.InputSchema),
		optional("cache_control", t.CacheControl),
	)
}

// Metadata is per-request metadata.
type Metadata struct {
	UserID string `json:"user_id,omitempty"`
}

// ThinkingConfig enables extended thinking.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

func (c ThinkingConfig) Validate() error {
	if err := variant.OneOf("type", c.Type, "enabled", "disabled"); err != nil {
		return err
	}
	if c.Type == "enabled" && c.BudgetTokens < 1024 {
		return variant.Invalid("budget_tokens", "must be at least 1024 when thinking is enabled")
	}
	return nil
}

// MessageNewParams is the body of a create message request.
type MessageNewParams struct {
	Model         core.ModelID                 `json:"model"`
	MaxTokens     int                          `json:"max_tokens"`
	Messages      []MessageParam               `json:"messages"`
	System        *variant.Field[SystemPrompt] `json:"system,omitempty"`
	Tools         []Tool                       `json:"tools,omitempty"`
	ToolChoice    *variant.Field[ToolChoice]   `json:"tool_choice,omitempty"`
	Temperature   *float64                     `json:"temperature,omitempty"`
	TopP          *float64                     `json:"top_p,omitempty"`
	TopK          *int                         `json:"top_k,omitempty"`
	StopSequences []string                     `json:"stop_sequences,omitempty"`
	Thinking      *ThinkingConfig              `json:"thinking,omitempty"`
	Metadata      *Metadata                    `json:"metadata,omitempty"`
	Stream        bool                         `json:"stream,omitempty"`
}

// Validate checks the request before it is sent. The basic requirements
// return the core sentinels so callers can match them with errors.Is.
func (p MessageNewParams) Validate() error {
	if p.Model == "" {
		return core.ErrModelRequired
	}
	if p.MaxTokens <= 0 {
		return core.ErrMaxTokensRequired
	}
	if len(p.Messages) == 0 {
		return core.ErrNoMessages
	}
	var temp error
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 1) {
		temp = variant.Invalid("temperature", fmt.Sprintf("%v outside [0, 1]", *p.Temperature))
	}
	return variant.First(
		variant.Each("messages", p.Messages),
		optional("system", p.System),
		variant.Each("tools", p.Tools),
		optional("tool_choice", p.ToolChoice),
		temp,
		optional("thinking", p.Thinking),
	)
}

// WithSystem sets a plain system prompt.
func (p MessageNewParams) WithSystem(text string) MessageNewParams {
	s := variant.Of[SystemPrompt](SystemText(text))
	p.System = &s
	return p
}

// WithToolChoice sets the tool choice.
func (p MessageNewParams) WithToolChoice(c ToolChoice) MessageNewParams {
	f := variant.Of(c)
	p.ToolChoice = &f
	return p
}

// optional validates a pointer-held value only when it is set.
func optional[V any](field string, v *V) error {
	if v == nil {
		return nil
	}
	return variant.Nested(field, *v)
}

func validJSON(field string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return variant.Invalid(field, "required")
	}
	if !json.Valid(raw) {
		return variant.Invalid(field, "not valid JSON")
	}
	return nil
}
