package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycall/internal/config"
	"pycall/internal/extract"
	"pycall/internal/observability"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(config.Default(), observability.NewLogger(observability.LogConfig{Level: "error"}))
	require.NoError(t, err)
	return s
}

func postExtract(t *testing.T, ts *httptest.Server, text string) (*http.Response, extract.Result) {
	t.Helper()
	body, err := json.Marshal(ExtractRequest{Text: text})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/v1/extract", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var res extract.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp, res
}

func TestExtractEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, res := postExtract(t, ts, `[get_weather(location="Oslo")]`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "get_weather", res.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"location":"Oslo"}`, res.ToolCalls[0].Function.Arguments)
	assert.True(t, res.ToolsCalled)
}

func TestExtractEndpointPlainContent(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	_, res := postExtract(t, ts, "no calls here")
	assert.False(t, res.ToolsCalled)
	assert.Equal(t, "no calls here", res.Content)
}

func TestExtractEndpointRejectsMissingText(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/extract", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStreamEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var name, args string
	read := func() StreamResponse {
		var sr StreamResponse
		require.NoError(t, conn.ReadJSON(&sr))
		if sr.Delta != nil {
			for _, tc := range sr.Delta.ToolCalls {
				name += tc.Function.Name
				args += tc.Function.Arguments
			}
		}
		return sr
	}

	require.NoError(t, conn.WriteJSON(StreamRequest{Chunk: `[get_weather(location="New`}))
	read()
	require.NoError(t, conn.WriteJSON(StreamRequest{Chunk: ` York")]`, Final: true}))
	for {
		if sr := read(); sr.Done {
			break
		}
	}

	assert.Equal(t, "get_weather", name)
	assert.Equal(t, `{"location":"New York"}`, args)
}
