package server_test

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/companion/citest/testutil"
	"github.com/opencode-ai/companion/pkg/types"
)

var _ = Describe("Event stream", func() {
	var (
		sessionID string
		sse       *testutil.SSEClient
	)

	BeforeEach(func() {
		sessionID = newSessionID()
		sse = testServer.SSEClient()
		Expect(sse.Connect(ctx, "/api/events?sessionID="+sessionID)).To(Succeed())

		_, err := sse.WaitForEvent("server.connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		sse.Close()
		client.Delete(ctx, "/api/sessions/"+sessionID)
	})

	It("should set SSE headers", func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, testServer.BaseURL+"/api/events", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
	})

	It("should publish a committed turn", func() {
		_, _, err := client.Chat(ctx, types.ChatRequest{
			Message:     "hello",
			Personality: "pirate",
			Mood:        40,
			SessionID:   sessionID,
		})
		Expect(err).NotTo(HaveOccurred())

		evt, err := sse.WaitForEvent("turn.committed", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		data, err := evt.ParseTurnEvent()
		Expect(err).NotTo(HaveOccurred())
		Expect(data.SessionID).To(Equal(sessionID))
		Expect(data.Personality).To(Equal("pirate"))
		Expect(data.Mode).To(Equal("process"))
		Expect(data.Turns).To(Equal(2))
	})

	It("should publish a cleared session", func() {
		_, _, err := client.Chat(ctx, types.ChatRequest{
			Message:     "hello",
			Personality: "default",
			Mood:        40,
			SessionID:   sessionID,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = client.Delete(ctx, "/api/sessions/"+sessionID)
		Expect(err).NotTo(HaveOccurred())

		evt, err := sse.WaitForEvent("session.cleared", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		data, err := evt.ParseSessionClearedEvent()
		Expect(err).NotTo(HaveOccurred())
		Expect(data.SessionID).To(Equal(sessionID))
		Expect(data.Existed).To(BeTrue())
	})

	It("should filter out other sessions", func() {
		other := newSessionID()
		DeferCleanup(func() {
			client.Delete(ctx, "/api/sessions/"+other)
		})

		_, _, err := client.Chat(ctx, types.ChatRequest{
			Message:     "hello",
			Personality: "default",
			Mood:        40,
			SessionID:   other,
		})
		Expect(err).NotTo(HaveOccurred())

		Consistently(func() bool {
			return sse.HasEventType("turn.committed")
		}, 500*time.Millisecond, 50*time.Millisecond).Should(BeFalse())
	})

	It("should publish failures", func() {
		requireMockLLM()

		_, _, err := client.Chat(ctx, types.ChatRequest{
			Message:     "outage",
			Personality: "default",
			Mood:        40,
			SessionID:   sessionID,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = sse.WaitForEvent("response.failed", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})
})
