package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"pryd/internal/transcript"
)

// ErrNotConfigured means no API key is available for the provider.
var ErrNotConfigured = errors.New("brain: provider not configured")

// Config selects and tunes the LLM provider.
type Config struct {
	// Provider is "doubao" or "deepseek".
	Provider string

	// Model overrides the provider default. Doubao calls this the
	// endpoint ID.
	Model string

	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string

	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

type providerDefaults struct {
	baseURL  string
	keyEnv   string
	modelEnv string
	model    string
}

var providers = map[string]providerDefaults{
	"doubao": {
		baseURL:  "https://ark.cn-beijing.volces.com/api/v3",
		keyEnv:   "DOUBAO_API_KEY",
		modelEnv: "DOUBAO_ENDPOINT_ID",
	},
	"deepseek": {
		baseURL: "https://api.deepseek.com",
		keyEnv:  "DEEPSEEK_API_KEY",
		model:   "deepseek-chat",
	},
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg     Config
	apiKey  string
	baseURL string
	model   string
	persona *Personality
	http    *http.Client
	log     *slog.Logger
}

var _ Backend = (*Client)(nil)

// NewClient resolves provider defaults and environment credentials.
// API keys are environment-only and never read from config files.
func NewClient(cfg Config, persona *Personality, logger *slog.Logger) (*Client, error) {
	def, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("brain: unknown provider %q", cfg.Provider)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = def.baseURL
	}
	model := cfg.Model
	if model == "" && def.modelEnv != "" {
		model = os.Getenv(def.modelEnv)
	}
	if model == "" {
		model = def.model
	}
	if model == "" {
		return nil, fmt.Errorf("brain: no model configured for %s", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:     cfg,
		apiKey:  os.Getenv(def.keyEnv),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		persona: persona,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}, nil
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Evaluate sends the transcript window to the model and parses its
// decision.
func (c *Client) Evaluate(ctx context.Context, req Request) (ActionResult, error) {
	if c.apiKey == "" {
		return ActionResult{}, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.persona.SystemPrompt(req)},
			{Role: "user", Content: renderWindow(req)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return ActionResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ActionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ActionResult{}, fmt.Errorf("brain: %s: %w", c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ActionResult{}, fmt.Errorf("brain: %s returned %s", c.cfg.Provider, resp.Status)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ActionResult{}, fmt.Errorf("brain: decode response: %w", err)
	}
	if parsed.Error != nil {
		return ActionResult{}, fmt.Errorf("brain: %s: %s", c.cfg.Provider, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return ActionResult{}, fmt.Errorf("brain: empty response from %s", c.cfg.Provider)
	}

	result, err := parseReply(parsed.Choices[0].Message.Content)
	if err != nil {
		return ActionResult{}, fmt.Errorf("brain: %w", err)
	}

	c.log.Debug("evaluated delta",
		"provider", c.cfg.Provider,
		"contact", req.Contact,
		"action", result.Kind,
		"latency", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// renderWindow formats the context and delta for the user message.
func renderWindow(req Request) string {
	var b strings.Builder

	if len(req.Context) > 0 {
		b.WriteString("此前的聊天记录:\n")
		for _, m := range req.Context {
			writeLine(&b, m)
		}
		b.WriteString("\n")
	}

	b.WriteString("刚刚出现的新消息:\n")
	for _, m := range req.Delta {
		writeLine(&b, m)
	}
	return b.String()
}

func writeLine(b *strings.Builder, m transcript.Message) {
	label := "?"
	switch m.Sender {
	case transcript.SenderOther:
		label = "对方"
	case transcript.SenderSelf:
		label = "我"
	case transcript.SenderSystem:
		label = "系统"
	}
	fmt.Fprintf(b, "[%s] %s\n", label, strings.ReplaceAll(m.Text, "\n", " "))
}
