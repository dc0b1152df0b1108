package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchTool_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "oslo weather", r.URL.Query().Get("q"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"results":[
			{"title":"Yr","url":"https://yr.no","content":"Rain all week"},
			{"title":"Met","url":"https://met.no","content":""},
			{"title":"Extra","url":"https://x","content":"cut"}]}`)
	}))
	defer srv.Close()

	tool := NewWebSearchTool(srv.URL+"/", 2)
	out, err := tool.Run(context.Background(), "oslo weather")
	require.NoError(t, err)
	assert.Equal(t, "1. Yr\n   https://yr.no\n   Rain all week\n\n2. Met\n   https://met.no", out)
}

func TestWebSearchTool_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWebSearchTool(srv.URL, 5).Run(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestWebSearchTool_Unconfigured(t *testing.T) {
	tool := NewWebSearchTool("", 0)

	out, err := tool.Run(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, "Web search is not configured.", out)

	out, err = tool.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "what to search")
}

func TestFormatResults_Empty(t *testing.T) {
	assert.Equal(t, "No results found.", FormatResults(nil))
}
