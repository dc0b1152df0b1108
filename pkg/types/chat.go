package types

// ChatRequest is a single user message addressed to a personality.
type ChatRequest struct {
	Message     string `json:"message" validate:"required,notblank"`
	Personality string `json:"personality" validate:"required"`
	Mood        int    `json:"mood" validate:"min=0,max=100"`
	SessionID   string `json:"sessionId,omitempty"`
	// History is caller-supplied context, used only when SessionID is empty.
	History []Turn `json:"history,omitempty"`
}

// ChatResponse is the result of a non-streaming chat request.
type ChatResponse struct {
	Message     string  `json:"message"`
	Personality string  `json:"personality"`
	Confidence  float64 `json:"confidence"`
	// ResponseTime is the elapsed handling time in milliseconds.
	ResponseTime int64 `json:"responseTime"`
}

// StreamChunkType discriminates stream events.
type StreamChunkType string

const (
	ChunkStart StreamChunkType = "start"
	ChunkText  StreamChunkType = "chunk"
	ChunkEnd   StreamChunkType = "end"
	ChunkError StreamChunkType = "error"
)

// StreamChunk is one event of a streaming chat response.
type StreamChunk struct {
	Type     StreamChunkType `json:"type"`
	Content  string          `json:"content,omitempty"`
	Metadata *ChunkMetadata  `json:"metadata,omitempty"`
}

// ChunkMetadata accompanies start and end events.
type ChunkMetadata struct {
	Personality  string  `json:"personality,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	ResponseTime int64   `json:"responseTime,omitempty"`
	Method       string  `json:"method,omitempty"`
	// Revision marks a chunk that replaces everything streamed so far.
	Revision bool `json:"revision,omitempty"`
}

// IsTerminal reports whether the chunk ends a stream.
func (c StreamChunk) IsTerminal() bool {
	return c.Type == ChunkEnd || c.Type == ChunkError
}

// PersonalityInfo is the public view of a personality descriptor.
type PersonalityInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
