// Package model defines the provider-agnostic message and streaming types
// used by the prompt assembler, tier router, and provider adapters. It
// models messages as typed parts (thinking, text, tool use/results) plus
// conversation roles, independent of any single LLM vendor's wire format.
package model

import (
	"context"
	"encoding/json"
	"errors"
)

// ConversationRole is the role for a message in a conversation.
type ConversationRole string

type (
	// Part is a marker interface implemented by all message parts. Concrete
	// implementations capture user-visible text, provider-issued thinking, and
	// tool call/result content in a strongly typed form.
	Part interface {
		isPart()
	}

	// ImageFormat identifies the on-wire format of an image part.
	//
	// Provider adapters may support only a subset of formats. Callers should
	// normalize uploads to one of the supported formats before constructing an
	// ImagePart.
	ImageFormat string

	// DocumentFormat identifies the on-wire format (extension) of a document part.
	//
	// Provider adapters may support only a subset of formats. Callers should
	// normalize uploads to one of the supported formats before constructing a
	// DocumentPart.
	DocumentFormat string

	// TextPart is a plain text content block in a message.
	TextPart struct {
		// Text is the human-readable content for this part.
		Text string
	}

	// ImagePart carries image bytes attached to a user message. Used by the
	// file-handler tier (SPEC_FULL §3) when a tool result requires vision.
	ImagePart struct {
		// Format identifies the encoding of Bytes (e.g., "png").
		Format ImageFormat

		// Bytes contains the raw image bytes for the declared format.
		Bytes []byte
	}

	// DocumentPart carries document content attached to a user message.
	//
	// Exactly one of Bytes, Text, Chunks, or URI must be provided.
	DocumentPart struct {
		// Name is a short neutral identifier for the document (for example, "spec").
		Name string

		// Format identifies the document format/extension (for example, "pdf", "txt", "md").
		Format DocumentFormat

		// Bytes carries the raw document bytes when the document is provided as an upload.
		Bytes []byte

		// Text carries the document content when the document is provided as a single text blob.
		Text string

		// Chunks carries the document content split into logical chunks when citations
		// should reference chunk indices rather than character spans.
		Chunks []string

		// URI locates the document externally when the document should not be
		// embedded in the request payload (for example, "s3://bucket/key.pdf").
		URI string

		// Context is optional contextual information about how the document should be
		// interpreted by the model when generating citations.
		Context string

		// Cite requests provider-native citations when supported.
		Cite bool
	}

	// CitationsPart is a generated content block paired with citation metadata.
	CitationsPart struct {
		// Text is the generated content supported by Citations.
		Text string

		// Citations reference the source documents that informed Text.
		Citations []Citation
	}

	// Citation links generated content back to a specific location in a source document.
	Citation struct {
		Title         string
		Source        string
		Location      CitationLocation
		SourceContent []string
	}

	// CitationLocation identifies where cited content can be found within a document.
	//
	// Exactly one of DocumentChar, DocumentChunk, or DocumentPage should be set when present.
	CitationLocation struct {
		DocumentChar  *DocumentCharLocation
		DocumentChunk *DocumentChunkLocation
		DocumentPage  *DocumentPageLocation
	}

	DocumentCharLocation struct {
		DocumentIndex int
		Start         int
		End           int
	}

	DocumentChunkLocation struct {
		DocumentIndex int
		Start         int
		End           int
	}

	DocumentPageLocation struct {
		DocumentIndex int
		Start         int
	}

	// ThinkingPart represents provider-issued reasoning content. Callers
	// treat this as opaque metadata; the event loop persists it as the
	// Step's reasoning text (spec §3 Step, §4.1 step 3a-c).
	ThinkingPart struct {
		Text      string
		Signature string
		Redacted  []byte
		Index     int
		Final     bool
	}

	// ToolUsePart declares a tool invocation by the assistant. The event
	// loop turns these into ToolCall records, dispatched in the order the
	// model declared them (spec §4.1 step 3d, §5 ordering guarantee).
	ToolUsePart struct {
		// ID uniquely identifies this tool call within the step.
		ID string

		// Name is the tool identifier requested by the model.
		Name string

		// Input is the JSON-compatible arguments object provided by the model.
		Input any
	}

	// ToolResultPart carries a tool result provided by the user side so the
	// model can read it in the next iteration (spec §4.1 step 3d).
	ToolResultPart struct {
		ToolUseID string
		Content   any
		IsError   bool
	}

	// CacheCheckpointPart marks a cache boundary in a message; provider
	// adapters translate it to provider-specific caching directives (e.g.
	// Bedrock cachePoint, Anthropic cache_control).
	CacheCheckpointPart struct{}

	// Message is a single chat message. Messages are ordered and grouped
	// into a transcript passed to model clients; parts preserve structure
	// rather than flattening to plain strings.
	Message struct {
		Role  ConversationRole
		Parts []Part
		Meta  map[string]any
	}

	// ToolDefinition describes a tool exposed to the model, derived from a
	// registered tools.Tool's JSON schema (spec §4.3, §6).
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema any
	}

	// ToolCall is a requested tool invocation from the model.
	ToolCall struct {
		// Name is the tool identifier requested by the model.
		Name string

		// Payload is the canonical JSON arguments supplied by the model.
		//
		// Provider adapters MUST populate this as canonical json.RawMessage;
		// the tool dispatcher treats it as opaque JSON.
		Payload json.RawMessage

		// ID is an optional provider-issued identifier for the tool call.
		ID string
	}

	// ToolCallDelta is an incremental tool-call payload fragment streamed by
	// providers while still constructing the full tool input JSON.
	//
	// This is a best-effort UX signal; the canonical payload remains
	// ToolCall.Payload on the final ChunkTypeToolCall.
	ToolCallDelta struct {
		Name  string
		ID    string
		Delta string
	}

	// ToolChoiceMode controls how the model uses tools for a request. Not
	// all providers support all modes. Adapters drop ToolChoice when the
	// endpoint's SupportsToolChoice flag is false (spec §4.2 capability
	// flags); the anthropic and openai adapters reject an unknown mode.
	ToolChoiceMode string

	// ToolChoice configures optional tool-use behavior for a Request.
	ToolChoice struct {
		Mode ToolChoiceMode
		Name string
	}

	// TokenUsage tracks token counts for a model call, the basis for the
	// tier router's credit accounting (spec §4.2, §4.1 daily credit
	// accounting).
	TokenUsage struct {
		InputTokens      int
		OutputTokens     int
		TotalTokens      int
		CacheReadTokens  int
		CacheWriteTokens int
	}

	// Request captures inputs for a model invocation.
	Request struct {
		// RunID identifies the logical step for this request when available.
		RunID string

		// Model is the provider-specific model identifier resolved by the
		// tier router (spec §4.2).
		Model string

		// ModelClass selects a model family when Model is not specified.
		ModelClass ModelClass

		Messages []*Message

		// Temperature is omitted from the wire request when the endpoint's
		// SupportsTemperature capability flag is false (spec §4.2).
		Temperature float32

		Tools []*ToolDefinition

		// ToolChoice is omitted when the endpoint's SupportsToolChoice
		// capability flag is false (spec §4.2).
		ToolChoice *ToolChoice

		MaxTokens int
		Stream    bool
		Thinking  *ThinkingOptions
		Cache     *CacheOptions
	}

	// Response is the result of a non-streaming invocation.
	Response struct {
		Content    []Message
		ToolCalls  []ToolCall
		Usage      TokenUsage
		StopReason string
	}

	// Chunk is a streaming event from the model, classified by Type.
	Chunk struct {
		Type          string
		Message       *Message
		Thinking      string
		ToolCall      *ToolCall
		ToolCallDelta *ToolCallDelta
		UsageDelta    *TokenUsage
		StopReason    string
	}

	// ThinkingOptions configures provider reasoning behavior.
	ThinkingOptions struct {
		Enable       bool
		Interleaved  bool
		BudgetTokens int
	}

	// CacheOptions configures prompt caching behavior for a request.
	// Providers that do not support caching ignore these flags.
	CacheOptions struct {
		AfterSystem bool
		AfterTools  bool
	}

	// ModelClass identifies the model family within an endpoint; distinct
	// from the tier key (standard/premium/max) which selects *which*
	// endpoint routes the request (spec §4.2).
	ModelClass string

	// Client is the provider-agnostic model client implemented by each
	// llm/provider adapter.
	Client interface {
		Complete(ctx context.Context, req *Request) (*Response, error)
		Stream(ctx context.Context, req *Request) (Streamer, error)
	}

	// Streamer delivers incremental model output. Callers must drain the
	// stream until Recv returns io.EOF or another terminal error, then call
	// Close.
	Streamer interface {
		Recv() (Chunk, error)
		Close() error
		Metadata() map[string]any
	}
)

const (
	ConversationRoleSystem    ConversationRole = "system"
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

const (
	// ToolChoiceModeAuto lets the provider decide whether to call tools or
	// respond with text. This is the default when ToolChoice is nil.
	ToolChoiceModeAuto ToolChoiceMode = "auto"

	// ToolChoiceModeNone disables tool use for the request when supported.
	ToolChoiceModeNone ToolChoiceMode = "none"

	// ToolChoiceModeAny forces the model to request at least one tool.
	ToolChoiceModeAny ToolChoiceMode = "any"

	// ToolChoiceModeTool forces the specific tool named in ToolChoice.Name.
	ToolChoiceModeTool ToolChoiceMode = "tool"
)

const (
	ChunkTypeText          = "text"
	ChunkTypeToolCall      = "tool_call"
	ChunkTypeToolCallDelta = "tool_call_delta"
	ChunkTypeThinking      = "thinking"
	ChunkTypeUsage         = "usage"
	ChunkTypeStop          = "stop"
)

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatGIF  ImageFormat = "gif"
	ImageFormatWEBP ImageFormat = "webp"
)

const (
	DocumentFormatPDF  DocumentFormat = "pdf"
	DocumentFormatCSV  DocumentFormat = "csv"
	DocumentFormatDOC  DocumentFormat = "doc"
	DocumentFormatDOCX DocumentFormat = "docx"
	DocumentFormatXLS  DocumentFormat = "xls"
	DocumentFormatXLSX DocumentFormat = "xlsx"
	DocumentFormatHTML DocumentFormat = "html"
	DocumentFormatTXT  DocumentFormat = "txt"
	DocumentFormatMD   DocumentFormat = "md"
)

const (
	ModelClassHighReasoning ModelClass = "high-reasoning"
	ModelClassDefault       ModelClass = "default"
	ModelClassSmall         ModelClass = "small"
)

// ErrStreamingUnsupported indicates the provider does not support streaming.
var ErrStreamingUnsupported = errors.New("model: streaming not supported")

// ErrRateLimited indicates the provider rejected the request due to rate
// limiting after exhausting any configured retries. The tier router treats
// this as a transient error and falls back to the next weighted endpoint
// (spec §4.2 step 4).
var ErrRateLimited = errors.New("model: rate limited")

func (TextPart) isPart()            {}
func (ImagePart) isPart()           {}
func (DocumentPart) isPart()        {}
func (CitationsPart) isPart()       {}
func (ThinkingPart) isPart()        {}
func (ToolUsePart) isPart()         {}
func (ToolResultPart) isPart()      {}
func (CacheCheckpointPart) isPart() {}
