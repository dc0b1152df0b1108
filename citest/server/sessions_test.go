package server_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/companion/pkg/types"
)

var _ = Describe("Sessions", func() {
	var sessionID string

	BeforeEach(func() {
		sessionID = newSessionID()
	})

	AfterEach(func() {
		client.Delete(ctx, "/api/sessions/"+sessionID)
	})

	chat := func(message string) *types.ChatResponse {
		resp, raw, err := client.Chat(ctx, types.ChatRequest{
			Message:     message,
			Personality: "default",
			Mood:        50,
			SessionID:   sessionID,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.StatusCode).To(Equal(http.StatusOK))
		return resp
	}

	It("should remember earlier turns within a session", func() {
		requireMockLLM()

		Expect(chat("My name is Alice").Message).To(Equal("Nice to meet you, Alice!"))
		Expect(chat("What's my name?").Message).To(Equal("Your name is Alice."))

		reqs := testServer.MockLLM.GetRequests()
		messages := reqs[len(reqs)-1].Body["messages"].([]any)
		// system, two remembered turns, new message
		Expect(messages).To(HaveLen(4))
	})

	It("should expose the stored history", func() {
		chat("hello")

		history, err := client.SessionHistory(ctx, sessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[0].Role).To(Equal(types.RoleUser))
		Expect(history[1].Role).To(Equal(types.RoleAssistant))
	})

	It("should not store turns that failed", func() {
		requireMockLLM()

		chat("outage")

		history, err := client.SessionHistory(ctx, sessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(BeEmpty())
	})

	It("should keep sessions isolated", func() {
		chat("hello")

		other, err := client.SessionHistory(ctx, newSessionID())
		Expect(err).NotTo(HaveOccurred())
		Expect(other).To(BeEmpty())
	})

	It("should clear a single session", func() {
		chat("hello")

		resp, err := client.Delete(ctx, "/api/sessions/"+sessionID)
		Expect(err).NotTo(HaveOccurred())
		var out struct {
			Cleared bool `json:"cleared"`
		}
		Expect(resp.JSON(&out)).To(Succeed())
		Expect(out.Cleared).To(BeTrue())

		history, err := client.SessionHistory(ctx, sessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(BeEmpty())

		resp, err = client.Delete(ctx, "/api/sessions/"+sessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.JSON(&out)).To(Succeed())
		Expect(out.Cleared).To(BeFalse())
	})

	It("should count sessions", func() {
		chat("hello")

		resp, err := client.Get(ctx, "/api/sessions")
		Expect(err).NotTo(HaveOccurred())
		var out struct {
			Count int `json:"count"`
		}
		Expect(resp.JSON(&out)).To(Succeed())
		Expect(out.Count).To(BeNumerically(">=", 1))
	})
})
