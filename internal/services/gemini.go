package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"candidate-evaluator/internal/evalerr"
)

// Embedder maps text to fixed-dimension vectors. The model is opaque; both
// methods fail with a Service kind when it is unavailable.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type GeminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, model, embedModel string, timeout time.Duration, logger *zap.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GeminiService{
		client:     client,
		modelName:  model,
		embedModel: embedModel,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

func (g *GeminiService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, nil)
	if err != nil {
		return nil, classifyModelError(fmt.Errorf("failed to generate embeddings: %w", err))
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, evalerr.New(evalerr.KindService, "embedding batch returned %d vectors for %d texts",
			embeddingCount(result), len(texts))
	}

	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, emb := range result.Embeddings {
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

func (g *GeminiService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CompleteJSON sends one prompt and returns the response body as raw JSON.
// Markdown code fences are stripped before a second parse attempt; anything
// still unparseable is a fatal error for this call.
func (g *GeminiService) CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
		SystemInstruction: genai.NewContentFromText(
			"You are a strict evaluator that returns JSON only.", genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return nil, classifyModelError(fmt.Errorf("failed to generate text: %w", err))
	}
	if resp == nil || resp.Text() == "" {
		return nil, evalerr.New(evalerr.KindService, "empty model response")
	}

	text := resp.Text()
	g.logger.Debug("model response received", zap.Int("chars", len(text)))

	raw, err := SanitizeJSON(text)
	if err != nil {
		return nil, evalerr.New(evalerr.KindService, "model returned unparseable JSON: %v", err)
	}
	return raw, nil
}

// SanitizeJSON validates text as JSON, stripping markdown code-fence
// wrapping and surrounding prose on a second attempt.
func SanitizeJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	stripped := trimmed
	stripped = strings.ReplaceAll(stripped, "```json", "")
	stripped = strings.ReplaceAll(stripped, "```", "")
	stripped = strings.TrimSpace(stripped)

	if start, end := strings.Index(stripped, "{"), strings.LastIndex(stripped, "}"); start != -1 && end > start {
		stripped = stripped[start : end+1]
	}

	if json.Valid([]byte(stripped)) {
		return json.RawMessage(stripped), nil
	}
	return nil, fmt.Errorf("no valid JSON object in %d chars of output", len(text))
}

func classifyModelError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 408, apiErr.Code == 429, apiErr.Code >= 500:
			return evalerr.Wrap(evalerr.KindTransient, err)
		default:
			return evalerr.Wrap(evalerr.KindService, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return evalerr.Wrap(evalerr.KindTransient, err)
	}
	return evalerr.Wrap(evalerr.KindService, err)
}

func embeddingCount(result *genai.EmbedContentResponse) int {
	if result == nil {
		return 0
	}
	return len(result.Embeddings)
}
