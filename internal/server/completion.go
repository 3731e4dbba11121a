package server

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the Groq model replies are generated with
	DefaultModel = "llama-3.3-70b-versatile"
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	temperature    = 0.7
	topP           = 0.9
	replyMaxTokens = 512
	shortMaxTokens = 200
	minReplyTokens = 20
)

var stopSequences = []string{"User:", "Astral:"}

// ErrNoChoices is returned when the model answers with no completion
var ErrNoChoices = errors.New("completion returned no choices")

// Completer turns a prompt into a reply
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// GroqCompleter calls an OpenAI-compatible chat completions API
type GroqCompleter struct {
	client openai.Client
	model  string
}

// NewGroqCompleter creates a completer for apiKey. Empty baseURL and model
// fall back to the Groq defaults.
func NewGroqCompleter(apiKey, baseURL, model string, opts ...option.RequestOption) *GroqCompleter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithBaseURL(baseURL)}
	reqOpts = append(reqOpts, opts...)
	return &GroqCompleter{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// Model returns the configured model name
func (g *GroqCompleter) Model() string {
	return g.model
}

// Complete requests one reply and returns its trimmed text
func (g *GroqCompleter) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(int64(max(minReplyTokens, maxTokens))),
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(topP),
		Stop: openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: stopSequences,
		},
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// maxTokensFor picks the reply budget: longer when web findings are present
func maxTokensFor(haveFindings bool) int {
	if haveFindings {
		return replyMaxTokens
	}
	return shortMaxTokens
}
