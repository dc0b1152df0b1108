package server_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/companion/internal/orchestrator"
	"github.com/opencode-ai/companion/pkg/types"
)

var _ = Describe("Chat", func() {
	Describe("GET /health", func() {
		It("should report status and agent mode", func() {
			resp, err := client.Get(ctx, "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]any
			Expect(resp.JSON(&body)).To(Succeed())
			Expect(body["status"]).To(Equal("ok"))
			Expect(body).To(HaveKey("sessions"))
			Expect(body["agent"]).To(BeTrue())
		})
	})

	Describe("POST /api/chat", func() {
		It("should answer a greeting", func() {
			resp, raw, err := client.Chat(ctx, types.ChatRequest{
				Message:     "hello",
				Personality: "default",
				Mood:        70,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Message).NotTo(BeEmpty())
			Expect(resp.Personality).To(Equal("default"))
			Expect(resp.Confidence).To(BeNumerically(">", 0))
			Expect(resp.ResponseTime).To(BeNumerically(">=", 0))
		})

		It("should speak in the requested personality", func() {
			requireMockLLM()

			resp, _, err := client.Chat(ctx, types.ChatRequest{
				Message:     "hello",
				Personality: "pirate",
				Mood:        50,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message).To(Equal("Ahoy there, matey!"))

			reqs := testServer.MockLLM.GetRequests()
			Expect(reqs).NotTo(BeEmpty())
			Expect(reqs[len(reqs)-1].System).To(ContainSubstring("pirate"))
		})

		It("should use caller-supplied history without a session", func() {
			requireMockLLM()

			resp, _, err := client.Chat(ctx, types.ChatRequest{
				Message:     "What is my name?",
				Personality: "default",
				Mood:        50,
				History: []types.Turn{
					{Role: types.RoleUser, Content: "My name is Alice"},
					{Role: types.RoleAssistant, Content: "Nice to meet you, Alice!"},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message).To(Equal("Your name is Alice."))

			reqs := testServer.MockLLM.GetRequests()
			messages := reqs[len(reqs)-1].Body["messages"].([]any)
			Expect(len(messages)).To(BeNumerically(">=", 4))
		})

		It("should apologise when the model fails", func() {
			requireMockLLM()

			resp, raw, err := client.Chat(ctx, types.ChatRequest{
				Message:     "simulate an outage please",
				Personality: "default",
				Mood:        50,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Message).To(Equal(orchestrator.Apology))
		})

		DescribeTable("should reject invalid requests",
			func(body map[string]any, field string) {
				resp, err := client.Post(ctx, "/api/chat", body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var out struct {
					Error struct {
						Code    string `json:"code"`
						Details struct {
							Fields []struct {
								Field string `json:"field"`
							} `json:"fields"`
						} `json:"details"`
					} `json:"error"`
				}
				Expect(resp.JSON(&out)).To(Succeed())
				Expect(out.Error.Code).To(Equal("INVALID_REQUEST"))

				var fields []string
				for _, f := range out.Error.Details.Fields {
					fields = append(fields, f.Field)
				}
				Expect(fields).To(ContainElement(field))
			},
			Entry("missing message", map[string]any{"personality": "default", "mood": 50}, "message"),
			Entry("blank message", map[string]any{"message": "   ", "personality": "default", "mood": 50}, "message"),
			Entry("missing personality", map[string]any{"message": "hi", "mood": 50}, "personality"),
			Entry("unknown personality", map[string]any{"message": "hi", "personality": "wizard", "mood": 50}, "personality"),
			Entry("mood above range", map[string]any{"message": "hi", "personality": "default", "mood": 101}, "mood"),
			Entry("mood below range", map[string]any{"message": "hi", "personality": "default", "mood": -1}, "mood"),
		)

		It("should reject malformed JSON", func() {
			resp, err := client.Post(ctx, "/api/chat", "{not json")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/personalities", func() {
		It("should list the built-in personalities", func() {
			resp, err := client.Get(ctx, "/api/personalities")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var list []types.PersonalityInfo
			Expect(resp.JSON(&list)).To(Succeed())

			var ids []string
			for _, p := range list {
				ids = append(ids, p.ID)
			}
			Expect(ids).To(ContainElements("default", "pirate"))
		})
	})

	Describe("GET /api/tools", func() {
		It("should list the enabled tools", func() {
			resp, err := client.Get(ctx, "/api/tools")
			Expect(err).NotTo(HaveOccurred())

			var tools []struct {
				ID string `json:"id"`
			}
			Expect(resp.JSON(&tools)).To(Succeed())

			var ids []string
			for _, t := range tools {
				ids = append(ids, t.ID)
			}
			Expect(ids).To(ContainElements("play_music", "control_music", "web_search", "open_url", "schedule_reprompt"))
		})
	})
})
