package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"novascp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geminiStub answers generateContent calls with the given text
func geminiStub(t *testing.T, status int, text string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var body generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.Contents)

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []interface{}{map[string]string{"text": text}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testAssistant(endpoint, key string) AssistantGateway {
	return NewAssistantGateway(AssistantConfig{
		Endpoint: endpoint + "/",
		Model:    "test-model",
		APIKey:   key,
		RetryMax: 1,
		Timeout:  5 * time.Second,
	})
}

func TestAskReturnsModelAnswer(t *testing.T) {
	srv, calls := geminiStub(t, http.StatusOK, "Use `scp -P 2222 file host:`")
	assistant := testAssistant(srv.URL, "secret")

	answer := assistant.Ask(context.Background(), "How do I change the port?", "")
	assert.Equal(t, "Use `scp -P 2222 file host:`", answer)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestAskFallsBack(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, calls := geminiStub(t, http.StatusInternalServerError, "")
		answer := testAssistant(srv.URL, "secret").Ask(context.Background(), "hi", "General")
		assert.Equal(t, FallbackAnswer, answer)
		// the request is retried before giving up
		assert.EqualValues(t, 2, atomic.LoadInt32(calls))
	})

	t.Run("missing API key", func(t *testing.T) {
		srv, calls := geminiStub(t, http.StatusOK, "never")
		answer := testAssistant(srv.URL, "").Ask(context.Background(), "hi", "")
		assert.Equal(t, FallbackAnswer, answer)
		assert.EqualValues(t, 0, atomic.LoadInt32(calls))
	})

	t.Run("unreachable", func(t *testing.T) {
		answer := testAssistant("http://127.0.0.1:1", "secret").Ask(context.Background(), "hi", "")
		assert.Equal(t, FallbackAnswer, answer)
	})

	t.Run("blank answer", func(t *testing.T) {
		srv, _ := geminiStub(t, http.StatusOK, "   ")
		answer := testAssistant(srv.URL, "secret").Ask(context.Background(), "hi", "")
		assert.Equal(t, EmptyAnswer, answer)
	})
}

func TestGenerateSCPCommand(t *testing.T) {
	req := types.SCPCommandRequest{Source: "./site", Dest: "/var/www", Host: "web1", User: "deploy", Options: "recursive"}

	t.Run("structured answer", func(t *testing.T) {
		srv, _ := geminiStub(t, http.StatusOK, `{"command":"scp -r ./site deploy@web1:/var/www","explanation":"Copies the directory recursively","securityNote":"Verify the host key."}`)
		cmd := testAssistant(srv.URL, "secret").GenerateSCPCommand(context.Background(), req)
		assert.Equal(t, "scp -r ./site deploy@web1:/var/www", cmd.Command)
		assert.Equal(t, "Verify the host key.", cmd.SecurityNote)
	})

	t.Run("unparseable answer", func(t *testing.T) {
		srv, _ := geminiStub(t, http.StatusOK, "scp it yourself")
		cmd := testAssistant(srv.URL, "secret").GenerateSCPCommand(context.Background(), req)
		assert.Equal(t, FallbackSCPCommand(), cmd)
	})

	t.Run("server error", func(t *testing.T) {
		srv, _ := geminiStub(t, http.StatusBadGateway, "")
		cmd := testAssistant(srv.URL, "secret").GenerateSCPCommand(context.Background(), req)
		assert.Equal(t, FallbackSCPCommand(), cmd)
	})
}

// cannedAssistant echoes prompts back
type cannedAssistant struct{}

func (cannedAssistant) Ask(_ context.Context, prompt, _ string) string {
	return "echo: " + strings.ToUpper(prompt)
}

func (cannedAssistant) GenerateSCPCommand(context.Context, types.SCPCommandRequest) types.SCPCommand {
	return FallbackSCPCommand()
}

func TestConversation(t *testing.T) {
	conv := NewConversation(cannedAssistant{})

	messages := conv.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, types.ChatRoleAssistant, messages[0].Role)
	assert.Equal(t, Greeting, messages[0].Content)

	_, ok := conv.Send(context.Background(), "   ")
	assert.False(t, ok)
	assert.Len(t, conv.Messages(), 1)

	reply, ok := conv.Send(context.Background(), "list files")
	require.True(t, ok)
	assert.Equal(t, "echo: LIST FILES", reply.Content)

	messages = conv.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, types.ChatRoleUser, messages[1].Role)
	assert.Equal(t, "list files", messages[1].Content)
	assert.Equal(t, reply, messages[2])
}
