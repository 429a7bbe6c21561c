package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"novascp/types"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const (
	// FallbackAnswer replaces any answer the model could not give
	FallbackAnswer = "I'm sorry, I'm having trouble connecting to my brain right now. Please check your network."
	// EmptyAnswer replaces an answer that came back blank
	EmptyAnswer = "I am sorry, something went wrong."
	// Greeting opens every conversation
	Greeting = "Hi! I am your NovaSCP assistant. How can I help you manage your remote servers today?"

	systemInstruction = "You are a professional CLI and server management expert. Provide concise, accurate technical help. Use markdown for code snippets."
	temperature       = 0.7
)

// FallbackSCPCommand is returned when no command could be generated
func FallbackSCPCommand() types.SCPCommand {
	return types.SCPCommand{
		Command:      "scp source user@host:dest",
		Explanation:  "Default fallback command",
		SecurityNote: "Always check host keys.",
	}
}

// AssistantGateway answers free-text questions. Failures never surface as
// errors; callers always get text back.
type AssistantGateway interface {
	Ask(ctx context.Context, prompt, userContext string) string
	GenerateSCPCommand(ctx context.Context, req types.SCPCommandRequest) types.SCPCommand
}

// AssistantConfig configures the Gemini backed gateway
type AssistantConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	RetryMax int
	Timeout  time.Duration
}

// geminiAssistant calls the generateContent REST endpoint
type geminiAssistant struct {
	httpClient *retryablehttp.Client
	endpoint   string
	model      string
	apiKey     string
}

// retryLogger routes retryablehttp logging through logrus
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	logrus.WithField("details", keysAndValues).Error(msg)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logrus.WithField("details", keysAndValues).Warn(msg)
}

// NewAssistantGateway creates a gateway for the configured model
func NewAssistantGateway(cfg AssistantConfig) AssistantGateway {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	if cfg.Timeout > 0 {
		c.HTTPClient.Timeout = cfg.Timeout
	}
	c.Logger = retryLogger{}

	return &geminiAssistant{
		httpClient: c,
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

var scpCommandSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"command": {"type": "STRING"},
		"explanation": {"type": "STRING"},
		"securityNote": {"type": "STRING"}
	}
}`)

// Ask answers prompt in the role of a Linux administration assistant
func (a *geminiAssistant) Ask(ctx context.Context, prompt, userContext string) string {
	if userContext == "" {
		userContext = "General"
	}

	contents := fmt.Sprintf(`Context: You are a senior Linux System Administrator assistant. Help the user with SCP, SSH, and server management.
User Context: %s
Question: %s`, userContext, prompt)

	text, err := a.generate(ctx, generateRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: contents}}}},
		GenerationConfig:  generationConfig{Temperature: temperature},
	})
	if err != nil {
		logrus.WithError(err).Warn("Assistant request failed")
		return FallbackAnswer
	}
	if strings.TrimSpace(text) == "" {
		return EmptyAnswer
	}
	return text
}

// GenerateSCPCommand asks the model for an scp invocation matching req
func (a *geminiAssistant) GenerateSCPCommand(ctx context.Context, req types.SCPCommandRequest) types.SCPCommand {
	options := req.Options
	if options == "" {
		options = "standard"
	}

	contents := fmt.Sprintf(`Generate an SCP command for the following:
Source: %s
Destination: %s
Host: %s
User: %s
Options: %s`, req.Source, req.Dest, req.Host, req.User, options)

	text, err := a.generate(ctx, generateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: contents}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   scpCommandSchema,
		},
	})
	if err != nil {
		logrus.WithError(err).Warn("SCP command generation failed")
		return FallbackSCPCommand()
	}

	var cmd types.SCPCommand
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &cmd); err != nil || cmd.Command == "" {
		logrus.WithError(err).Warn("SCP command generation returned an unusable answer")
		return FallbackSCPCommand()
	}
	return cmd
}

func (a *geminiAssistant) generate(ctx context.Context, body generateRequest) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("assistant API key is not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.endpoint, a.model)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}

// Conversation is the chat history of the assistant panel
type Conversation struct {
	gateway AssistantGateway

	mu       sync.Mutex
	messages []types.ChatMessage
}

// NewConversation starts a conversation with the greeting
func NewConversation(gateway AssistantGateway) *Conversation {
	return &Conversation{
		gateway:  gateway,
		messages: []types.ChatMessage{{Role: types.ChatRoleAssistant, Content: Greeting}},
	}
}

// Messages returns the history so far
func (c *Conversation) Messages() []types.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send records prompt, asks the assistant and records its answer. Blank
// prompts are ignored.
func (c *Conversation) Send(ctx context.Context, prompt string) (types.ChatMessage, bool) {
	if strings.TrimSpace(prompt) == "" {
		return types.ChatMessage{}, false
	}

	c.mu.Lock()
	c.messages = append(c.messages, types.ChatMessage{Role: types.ChatRoleUser, Content: prompt})
	c.mu.Unlock()

	answer := types.ChatMessage{Role: types.ChatRoleAssistant, Content: c.gateway.Ask(ctx, prompt, "")}

	c.mu.Lock()
	c.messages = append(c.messages, answer)
	c.mu.Unlock()

	return answer, true
}
