package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spacesedan/ddscraper/internal/summary"
)

const (
	openAIRequestTimeout = 60 * time.Second
	OPENAI_DEFAULT_MODEL = "gpt-4o-mini"
)

const summaryPrompt = `You write TL;DR summaries of stock market due diligence posts.
Summarize the user's text in plain prose between %d and %d words.
Keep ticker symbols, numbers and the author's thesis. Do not add advice or commentary.
Return only the summary.`

type OpenAIClient struct {
	Client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("[OpenAIClient] missing OPENAI_API_KEY")
	}
	if model == "" {
		model = OPENAI_DEFAULT_MODEL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(openAIRequestTimeout),
	)
	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", model),
		slog.Duration("timeout", openAIRequestTimeout))

	return &OpenAIClient{Client: client, model: model}, nil
}

func (o *OpenAIClient) Summarize(ctx context.Context, input string, opts summary.Options) (string, error) {
	temperature := 0.0
	if opts.DoSample {
		temperature = 0.7
	}

	chatCompletion, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(summaryPrompt, opts.MinLength, opts.MaxLength)),
			openai.UserMessage(input),
		}),
		Model:       openai.F(openai.ChatModel(o.model)),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(opts.MaxLength) * 2),
	})
	if err != nil {
		return "", fmt.Errorf("[OpenAIClient] chat completion failed: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("[OpenAIClient] empty response")
	}
	return strings.TrimSpace(chatCompletion.Choices[0].Message.Content), nil
}
