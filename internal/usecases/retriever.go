package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
	"linecs/internal/interfaces"
)

// ErrNoRelevantContext signals that nothing in the FAQ store was similar
// enough to the question. The generator must treat this deterministically:
// decline, never guess.
var ErrNoRelevantContext = errors.New("no relevant context found")

// FAQSearcher is the slice of the FAQ repository the retriever needs.
type FAQSearcher interface {
	Search(ctx context.Context, queryVec []float32, topK int, metric string) ([]entities.RetrievedPassage, error)
}

// Retriever embeds a question and finds the most similar FAQ documents.
type Retriever struct {
	embedder interfaces.Embedder
	faqs     FAQSearcher
	topK     int
	metric   string
	minScore float64
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewRetriever(embedder interfaces.Embedder, faqs FAQSearcher, topK int, metric string, minScore float64, logger *logrus.Logger) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		embedder: embedder,
		faqs:     faqs,
		topK:     topK,
		metric:   metric,
		minScore: minScore,
		timeout:  10 * time.Second,
		logger:   logger,
	}
}

// Retrieve returns the top-K passages above the similarity threshold,
// best first. All candidates below threshold → ErrNoRelevantContext.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]entities.RetrievedPassage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	candidates, err := r.faqs.Search(ctx, vec, r.topK, r.metric)
	if err != nil {
		return nil, fmt.Errorf("search faq store: %w", err)
	}

	passages := candidates[:0]
	for _, c := range candidates {
		if c.Similarity >= r.minScore {
			passages = append(passages, c)
		}
	}
	if len(passages) == 0 {
		r.logger.WithFields(logrus.Fields{
			"candidates": len(candidates),
			"min_score":  r.minScore,
		}).Debug("no FAQ passage above threshold")
		return nil, ErrNoRelevantContext
	}
	return passages, nil
}
