// Package gemini implements the model.Model contract against Google's
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/lumoracare/lumora/pkg/model"
	"github.com/lumoracare/lumora/pkg/telemetry"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultAPIVersion selects the generateContent surface.
	DefaultAPIVersion = "v1beta"
	// DefaultModel matches the model the companion was tuned against.
	DefaultModel = "gemini-1.5-pro"

	defaultHTTPTimeout = 60 * time.Second
)

// Ensure Client satisfies the Model interface.
var _ modelpkg.Model = (*Client)(nil)

// Client is a Gemini-backed model. The zero value is not usable; construct
// with New.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithModel overrides the generation model.
func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Gemini client. The API key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate performs a single blocking generateContent call.
func (c *Client) Generate(ctx context.Context, messages []modelpkg.Message) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.gemini.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", "gemini"),
			attribute.String("llm.model", c.model),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	httpReq, err := c.buildRequest(ctx, messages)
	if err != nil {
		return modelpkg.Message{}, modelpkg.NewGenerationError("gemini", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return modelpkg.Message{}, modelpkg.NewGenerationError("gemini", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return modelpkg.Message{}, modelpkg.NewGenerationError("gemini", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return modelpkg.Message{}, modelpkg.NewGenerationError("gemini",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 256)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return modelpkg.Message{}, modelpkg.NewGenerationError("gemini", fmt.Errorf("unmarshal response: %w", err))
	}
	if len(parsed.Candidates) == 0 {
		return modelpkg.Message{}, modelpkg.NewGenerationError("gemini", fmt.Errorf("response contained no candidates"))
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return modelpkg.Message{Role: modelpkg.RoleAssistant, Content: text.String()}, nil
}

func (c *Client) buildRequest(ctx context.Context, messages []modelpkg.Message) (*http.Request, error) {
	payload := transformRequest(messages)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	base, err := url.Parse(strings.TrimSuffix(c.baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	base.Path = base.Path + "/" + c.apiVersion + "/models/" + url.PathEscape(c.model) + ":generateContent"
	q := base.Query()
	q.Set("key", c.apiKey)
	base.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func transformRequest(messages []modelpkg.Message) *geminiRequest {
	req := &geminiRequest{}
	for _, msg := range messages {
		if msg.Role == modelpkg.RoleSystem {
			// Gemini carries the system prompt out of band.
			if req.SystemInstruction == nil {
				req.SystemInstruction = &geminiContent{}
			}
			req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, geminiPart{Text: msg.Content})
			continue
		}
		role := msg.Role
		if role == modelpkg.RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return req
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}
