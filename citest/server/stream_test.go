package server_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/companion/citest/testutil"
	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/pkg/types"
)

var _ = Describe("Streaming chat", func() {
	Describe("POST /api/chat/stream", func() {
		It("should frame the reply with start and end chunks", func() {
			chunks, resp, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "hello",
				Personality: "default",
				Mood:        60,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			Expect(len(chunks)).To(BeNumerically(">=", 3))
			Expect(chunks[0].Type).To(Equal(types.ChunkStart))
			last := chunks[len(chunks)-1]
			Expect(last.Type).To(Equal(types.ChunkEnd))
			Expect(last.Metadata).NotTo(BeNil())
			Expect(last.Metadata.Personality).To(Equal("default"))
			Expect(testutil.StreamText(chunks)).NotTo(BeEmpty())
		})

		It("should stream the scripted reply word by word", func() {
			requireMockLLM()

			chunks, _, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "hello",
				Personality: "default",
				Mood:        60,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(testutil.StreamText(chunks)).To(Equal("Hello! How can I help you today?"))

			var textChunks int
			for _, c := range chunks {
				if c.Type == types.ChunkText {
					textChunks++
				}
			}
			Expect(textChunks).To(BeNumerically(">", 1))
		})

		It("should end with an error chunk when the model fails", func() {
			requireMockLLM()

			chunks, _, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "outage",
				Personality: "default",
				Mood:        60,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).NotTo(BeEmpty())

			last := chunks[len(chunks)-1]
			Expect(last.Type).To(Equal(types.ChunkError))
			Expect(last.Content).To(Equal(orchestrator.Apology))
		})

		It("should reject invalid requests before streaming", func() {
			chunks, resp, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "hello",
				Personality: "nobody",
				Mood:        60,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("application/json"))
			Expect(chunks).To(BeEmpty())
		})

		It("should commit the streamed turn to the session", func() {
			sessionID := newSessionID()
			DeferCleanup(func() {
				client.Delete(ctx, "/api/sessions/"+sessionID)
			})

			chunks, _, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "hello",
				Personality: "default",
				Mood:        60,
				SessionID:   sessionID,
			})
			Expect(err).NotTo(HaveOccurred())

			history, err := client.SessionHistory(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Content).To(Equal("hello"))
			Expect(history[1].Content).To(Equal(testutil.StreamText(chunks)))
		})
	})
})
