package server_test

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/companion/citest/testutil"
)

var (
	testServer *testutil.TestServer
	client     *testutil.TestClient
	ctx        context.Context
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Suite")
}

var _ = BeforeSuite(func() {
	_ = godotenv.Load("../../.env")

	switch os.Getenv("TEST_PROVIDER") {
	case "anthropic":
		if testutil.SkipIfMissingEnv("ANTHROPIC_API_KEY") {
			Skip("ANTHROPIC_API_KEY not set")
		}
	case "openai":
		if testutil.SkipIfMissingEnv("OPENAI_API_KEY") {
			Skip("OPENAI_API_KEY not set")
		}
	case "ark":
		if testutil.SkipIfMissingEnv("ARK_API_KEY", "ARK_MODEL_ID") {
			Skip("ARK environment variables not set")
		}
	}

	var err error
	testServer, err = testutil.StartTestServer(testutil.WithMusicAPI(nil))
	Expect(err).NotTo(HaveOccurred(), "Failed to start test server")

	client = testServer.Client()
	ctx = context.Background()
})

var _ = AfterSuite(func() {
	if testServer != nil {
		testServer.Stop()
	}
})

// requireMockLLM skips specs that depend on scripted model replies.
func requireMockLLM() {
	if testServer.MockLLM == nil {
		Skip("scripted replies need the mock LLM")
	}
}

// newSessionID returns a session id unique to the running spec.
func newSessionID() string {
	return "citest-" + testutil.RandomID()
}
