package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/pkg/types"
)

func TestStreamMessage_DirectCommitsConcatenation(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, call int, bound bool, input []*schema.Message) reply {
		return say("Hel", "lo ", "there", "!")
	})

	var c collector
	err := f.orch.StreamMessage(context.Background(), request("hi", "s"), c.emit)
	require.NoError(t, err)

	kinds := c.kinds()
	assert.Equal(t, types.ChunkStart, kinds[0])
	assert.Equal(t, types.ChunkEnd, kinds[len(kinds)-1])
	assert.Equal(t, "Hello there!", c.text())

	history := f.orch.History("s")
	require.Len(t, history, 2, "committed exactly once")
	assert.Equal(t, c.text(), history[1].Content)

	end := c.chunks[len(c.chunks)-1].Metadata
	require.NotNil(t, end)
	assert.Equal(t, "default", end.Personality)
	assert.Equal(t, "direct", end.Method)
	assert.GreaterOrEqual(t, end.Confidence, 0.85)
}

func TestStreamMessage_AgentEmitsSuffixes(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, call int, bound bool, input []*schema.Message) reply {
		return say("Hi", " there", "!")
	}, &stubTool{id: "web_search"})

	var c collector
	require.NoError(t, f.orch.StreamMessage(context.Background(), request("hi", "s"), c.emit))

	var texts []string
	for _, ch := range c.chunks {
		if ch.Type == types.ChunkText {
			texts = append(texts, ch.Content)
		}
	}
	assert.Equal(t, []string{"Hi", " there", "!"}, texts)
	assert.Equal(t, "Hi there!", f.orch.History("s")[1].Content)
	assert.Equal(t, "agent", c.chunks[0].Metadata.Method)
}

func TestStreamMessage_AgentRevisionFlagged(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, call int, bound bool, input []*schema.Message) reply {
		if call == 0 {
			r := callTool("web_search", "weather")
			r.chunks = append([]*schema.Message{{Role: schema.Assistant, Content: "Let me check"}}, r.chunks...)
			return r
		}
		return say("It will rain.")
	}, &stubTool{id: "web_search", result: "rain"})

	var c collector
	require.NoError(t, f.orch.StreamMessage(context.Background(), request("weather?", "s"), c.emit))

	var last types.StreamChunk
	for _, ch := range c.chunks {
		if ch.Type == types.ChunkText {
			last = ch
		}
	}
	assert.Equal(t, "It will rain.", last.Content)
	require.NotNil(t, last.Metadata)
	assert.True(t, last.Metadata.Revision)
	assert.Equal(t, "It will rain.", f.orch.History("s")[1].Content)
}

func TestStreamMessage_ValidationBeforeAnyEvent(t *testing.T) {
	f := newFixture(t, alwaysSay("never"))

	var c collector
	err := f.orch.StreamMessage(context.Background(), &types.ChatRequest{Message: "hi", Personality: "ghost"}, c.emit)
	assert.True(t, orchestrator.IsValidationError(err))
	assert.Empty(t, c.chunks)
	assert.Equal(t, 0, f.model.Calls())
}

func TestStreamMessage_MidStreamErrorNoCommit(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, call int, bound bool, input []*schema.Message) reply {
		r := say("partial ")
		r.streamErr = errors.New("connection reset")
		return r
	})

	var c collector
	require.NoError(t, f.orch.StreamMessage(context.Background(), request("hi", "s"), c.emit))

	kinds := c.kinds()
	assert.Equal(t, []types.StreamChunkType{types.ChunkStart, types.ChunkText, types.ChunkError}, kinds)
	assert.Equal(t, orchestrator.Apology, c.chunks[len(c.chunks)-1].Content)
	assert.Equal(t, 0, f.store.Count())
}

func TestStreamMessage_AgentLimitEmitsError(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, call int, bound bool, input []*schema.Message) reply {
		return callTool("web_search", "again")
	}, &stubTool{id: "web_search", result: "nothing"})

	var c collector
	require.NoError(t, f.orch.StreamMessage(context.Background(), request("loop", "s"), c.emit))

	kinds := c.kinds()
	assert.Equal(t, types.ChunkError, kinds[len(kinds)-1])
	assert.Equal(t, 0, f.store.Count())
}

func TestStreamMessage_TransportErrorReturned(t *testing.T) {
	f := newFixture(t, alwaysSay("hello"))
	gone := errors.New("client gone")

	calls := 0
	err := f.orch.StreamMessage(context.Background(), request("hi", "s"), func(chunk types.StreamChunk) error {
		calls++
		if chunk.Type == types.ChunkText {
			return gone
		}
		return nil
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 2, calls, "no events after a transport failure")
	assert.Equal(t, 0, f.store.Count())
}

func TestStreamMessage_EmptyReplyNotCommitted(t *testing.T) {
	f := newFixture(t, alwaysSay(""))

	var c collector
	require.NoError(t, f.orch.StreamMessage(context.Background(), request("hi", "s"), c.emit))
	assert.Equal(t, types.ChunkEnd, c.kinds()[len(c.chunks)-1])
	assert.NotEmpty(t, c.text())
	assert.Equal(t, 0, f.store.Count())
}
