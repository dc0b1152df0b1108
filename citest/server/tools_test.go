package server_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/companion/citest/testutil"
	"github.com/opencode-ai/companion/pkg/types"
)

var _ = Describe("Tools", func() {
	BeforeEach(func() {
		requireMockLLM()
	})

	ask := func(message string) string {
		resp, _, err := client.Chat(ctx, types.ChatRequest{
			Message:     message,
			Personality: "default",
			Mood:        50,
		})
		Expect(err).NotTo(HaveOccurred())
		return resp.Message
	}

	Describe("agent tool calls", func() {
		It("should play a requested song", func() {
			before := len(testServer.Music.Played())

			Expect(ask("play Bohemian Rhapsody by Queen")).To(Equal("Done! Now playing Bohemian Rhapsody by Queen."))

			played := testServer.Music.Played()
			Expect(played).To(HaveLen(before + 1))
			Expect(played[len(played)-1]).To(Equal("spotify:track:bohemian-rhapsody"))
		})

		It("should control playback", func() {
			Expect(ask("please pause the music")).To(Equal("Done! Paused."))
			Expect(testServer.Music.Actions()).To(ContainElement("pause"))
		})

		It("should offer every enabled tool to the model", func() {
			ask("hello")

			reqs := testServer.MockLLM.GetRequests()
			Expect(reqs[len(reqs)-1].Tools).To(ContainElements("play_music", "control_music", "schedule_reprompt"))
		})

		It("should stream the reply after a tool call", func() {
			chunks, _, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "play Yesterday",
				Personality: "default",
				Mood:        50,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks[len(chunks)-1].Type).To(Equal(types.ChunkEnd))
			Expect(testutil.StreamText(chunks)).To(ContainSubstring("Now playing Yesterday"))
		})
	})

	Describe("malformed tool call recovery", func() {
		It("should run the tool the model wrote out as text", func() {
			before := len(testServer.Music.Played())

			Expect(ask("send a malformed call")).To(Equal("Now playing Yesterday by The Beatles."))
			Expect(testServer.Music.Played()).To(HaveLen(before + 1))
		})

		It("should revise a streamed reply", func() {
			chunks, _, err := client.StreamChat(ctx, types.ChatRequest{
				Message:     "send a malformed call",
				Personality: "default",
				Mood:        50,
			})
			Expect(err).NotTo(HaveOccurred())

			var revised bool
			for _, c := range chunks {
				if c.Metadata != nil && c.Metadata.Revision {
					revised = true
				}
			}
			Expect(revised).To(BeTrue())
			Expect(testutil.StreamText(chunks)).To(Equal("Now playing Yesterday by The Beatles."))
		})
	})
})
