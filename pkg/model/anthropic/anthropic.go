// Package anthropic wraps the official Anthropic SDK behind the model.Model
// contract.
package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/lumoracare/lumora/pkg/model"
	"github.com/lumoracare/lumora/pkg/telemetry"
)

const defaultMaxTokens = 4096

// Ensure SDKModel implements the Model interface.
var _ modelpkg.Model = (*SDKModel)(nil)

// SDKModel wraps the official Anthropic SDK to implement our Model interface.
type SDKModel struct {
	client    *anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int
}

// NewSDKModel creates a model backed by the official Anthropic SDK.
func NewSDKModel(apiKey, model string, maxTokens int) *SDKModel {
	return NewSDKModelWithBaseURL(apiKey, model, "", maxTokens)
}

// NewSDKModelWithBaseURL creates a model with custom base URL support.
func NewSDKModelWithBaseURL(apiKey, model, baseURL string, maxTokens int) *SDKModel {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	return &SDKModel{
		client:    &client,
		model:     anthropicsdk.Model(model),
		maxTokens: maxTokens,
	}
}

// Generate performs a blocking messages call.
func (m *SDKModel) Generate(ctx context.Context, messages []modelpkg.Message) (_ modelpkg.Message, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.sdk.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(m.model)),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	systemBlocks, messageParams := convertMessages(messages)
	maxTokens := m.maxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     m.model,
		MaxTokens: int64(maxTokens),
		Messages:  messageParams,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return modelpkg.Message{}, modelpkg.NewGenerationError("anthropic", err)
	}

	var textParts []string
	for _, block := range message.Content {
		if content, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			textParts = append(textParts, content.Text)
		}
	}
	return modelpkg.Message{Role: modelpkg.RoleAssistant, Content: strings.Join(textParts, "\n")}, nil
}

func convertMessages(messages []modelpkg.Message) ([]anthropicsdk.TextBlockParam, []anthropicsdk.MessageParam) {
	var systemBlocks []anthropicsdk.TextBlockParam
	messageParams := make([]anthropicsdk.MessageParam, 0, len(messages))

	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == modelpkg.RoleSystem {
			if strings.TrimSpace(msg.Content) != "" {
				systemBlocks = append(systemBlocks, anthropicsdk.TextBlockParam{Text: msg.Content})
			}
			continue
		}

		content := msg.Content
		if content == "" {
			// Anthropic API requires non-empty content, use placeholder
			content = "."
		}
		messageParams = append(messageParams, anthropicsdk.MessageParam{
			Role:    normalizeRole(role),
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(content)},
		})
	}

	if len(messageParams) == 0 {
		messageParams = append(messageParams, anthropicsdk.MessageParam{
			Role:    anthropicsdk.MessageParamRoleUser,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(".")},
		})
	}
	return systemBlocks, messageParams
}

func normalizeRole(role string) anthropicsdk.MessageParamRole {
	if role == modelpkg.RoleAssistant {
		return anthropicsdk.MessageParamRoleAssistant
	}
	return anthropicsdk.MessageParamRoleUser
}
