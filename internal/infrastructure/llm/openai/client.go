package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avoronov/bookqa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	chatModel  string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	ChatModel  string
	Executor   *resilience.Executor
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	embedModel := opts.EmbedModel
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	chatModel := opts.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		embedModel: embedModel,
		chatModel:  chatModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   opts.Executor,
	}
}

// Embedder generates one vector per input text through /v1/embeddings.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := e.client.call(ctx, "embeddings", "/v1/embeddings", request, &response); err != nil {
		return nil, err
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings count mismatch: got %d for %d inputs", len(response.Data), len(texts))
	}

	// The API reports an index per item; place by index so the i-th vector
	// always matches the i-th input.
	vectors := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index out of range: %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator answers a composed prompt through /v1/chat/completions.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model": g.client.chatModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := g.client.call(ctx, "chat", "/v1/chat/completions", request, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("empty completion result")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	doCall := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai."+operation, doCall, classifyOpenAIError)
	} else {
		err = doCall(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
