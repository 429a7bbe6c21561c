package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"novascp/cmd"
	"novascp/config"
	"novascp/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestHelper runs the full NovaSCP router against a throwaway storage directory
type TestHelper struct {
	Server      *httptest.Server
	TestDataDir string
	App         *cmd.App
	Router      *gin.Engine
}

// NewTestHelper creates a new test helper with fast timers
func NewTestHelper(t *testing.T) *TestHelper {
	testDir := t.TempDir()

	// Setup gin in test mode
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		CORSOrigins: "http://localhost:5173",
	}
	cfg.Log.Level = "error"
	cfg.Transfer.TickInterval = 20 * time.Millisecond
	cfg.Transfer.SweepInterval = time.Minute
	cfg.Storage.Driver = "file"
	cfg.Storage.Path = filepath.Join(testDir, "storage.json")
	cfg.Session.ConnectDelay = 50 * time.Millisecond
	cfg.Assistant.Endpoint = "http://127.0.0.1:1"
	cfg.Assistant.Model = "test-model"
	config.SetupLogging(cfg)

	app, err := cmd.NewApp(cfg)
	require.NoError(t, err)

	router := cmd.SetupRouter(app)

	helper := &TestHelper{
		Server:      httptest.NewServer(router),
		TestDataDir: testDir,
		App:         app,
		Router:      router,
	}
	t.Cleanup(helper.Cleanup)
	return helper
}

// Cleanup stops the server and every background service
func (h *TestHelper) Cleanup() {
	if h.Server != nil {
		h.Server.Close()
		h.Server = nil
	}
	if h.App != nil {
		h.App.Close()
		h.App = nil
	}
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

// DoJSON makes a request and unmarshals the JSON response into target
func (h *TestHelper) DoJSON(t *testing.T, method, path string, requestBody interface{}, target interface{}) *http.Response {
	resp := h.MakeRequest(t, method, path, requestBody)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), "body: %s", body)
	}

	return resp
}

// GetJSON makes a GET request and unmarshals JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	return h.DoJSON(t, http.MethodGet, path, nil, target)
}

// PostJSON makes a POST request with JSON body and unmarshals JSON response
func (h *TestHelper) PostJSON(t *testing.T, path string, requestBody interface{}, target interface{}) *http.Response {
	return h.DoJSON(t, http.MethodPost, path, requestBody, target)
}

// StartTransfer starts a transfer through the API and returns the created job
func (h *TestHelper) StartTransfer(t *testing.T, fileName string, direction types.Direction) types.TransferJob {
	var response struct {
		Job types.TransferJob `json:"job"`
	}
	resp := h.PostJSON(t, "/api/transfers", map[string]string{
		"fileName":  fileName,
		"direction": string(direction),
	}, &response)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, response.Job.ID)
	return response.Job
}

// WaitForJobCompletion waits for a transfer to reach a terminal status
func (h *TestHelper) WaitForJobCompletion(t *testing.T, jobID string, timeout time.Duration) types.TransferJob {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		var response struct {
			Job types.TransferJob `json:"job"`
		}

		resp := h.GetJSON(t, "/api/transfers/"+jobID, &response)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		if response.Job.Status.Terminal() {
			return response.Job
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("Transfer %s did not finish within timeout", jobID)
	return types.TransferJob{}
}

// ConnectWebSocket connects to a WebSocket endpoint
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	wsURL := "ws" + h.Server.URL[4:] + path // Replace http:// with ws://

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn
}

// ReadProgress reads the next progress message from conn
func ReadProgress(t *testing.T, conn *websocket.Conn, timeout time.Duration) types.ProgressMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))

	var msg types.ProgressMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}
