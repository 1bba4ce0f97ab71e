package ai

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/tracing"
)

// cloudClient wraps one OpenAI-compatible provider. All supported providers
// speak the chat completions protocol, so a single client covers the table
// in provider.go.
type cloudClient struct {
	provider enum.AIProvider
	model    string
	client   *openai.Client
}

func newCloudClient(provider, apiKey, model string) (*cloudClient, error) {
	p, endpoint, err := ResolveProvider(provider)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, errors.Errorf("no API key configured for provider %s", provider)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = endpoint.BaseURL

	return &cloudClient{
		provider: p,
		model:    modelOrDefault(model, endpoint),
		client:   openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Attribution identifies this backend in stored classification rows.
func (c *cloudClient) Attribution() string {
	return fmt.Sprintf("api:%s/%s", c.provider, c.model)
}

func (c *cloudClient) Classify(ctx context.Context, prompt string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cloudClient.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("provider", c.provider.String())
	span.SetTag("model", c.model)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		err = errors.New("chat completion returned no choices")
		tracing.TraceErr(span, err)
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

// ListModels verifies credentials by listing the provider's model catalog.
func (c *cloudClient) ListModels(ctx context.Context) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "cloudClient.ListModels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("provider", c.provider.String())

	list, err := c.client.ListModels(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list models")
	}

	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	return models, nil
}
