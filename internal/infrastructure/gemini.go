package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiClient implements both embedding and answer generation against the
// Gemini API. One client serves both because they share credentials and
// transport. Transient API failures are retried before the error reaches
// the caller.
type GeminiClient struct {
	client         *genai.Client
	generateModel  string
	embeddingModel string
	logger         *logrus.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, generateModel, embeddingModel string, logger *logrus.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{
		client:         client,
		generateModel:  generateModel,
		embeddingModel: embeddingModel,
		logger:         logger,
	}, nil
}

// EmbedQuery embeds a user question for retrieval.
func (g *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, "RETRIEVAL_QUERY")
}

// EmbedDocument embeds FAQ content for indexing.
func (g *GeminiClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, "RETRIEVAL_DOCUMENT")
}

func (g *GeminiClient) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	dim := int32(EmbeddingDim)
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	var values []float32
	err := withRetry(ctx, g.logger, "gemini embed", func() error {
		result, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, &genai.EmbedContentConfig{
			TaskType:             taskType,
			OutputDimensionality: &dim,
		})
		if err != nil {
			return err
		}
		if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
			return fmt.Errorf("empty embedding returned")
		}
		values = result.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Generate runs a single-turn completion and returns the trimmed text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := withRetry(ctx, g.logger, "gemini generate", func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.generateModel, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.2),
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text())
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
