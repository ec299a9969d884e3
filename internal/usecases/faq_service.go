package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
	"linecs/internal/interfaces"
)

var ErrFAQNotFound = errors.New("faq document not found")

// FAQStore is the slice of the FAQ repository the service needs.
type FAQStore interface {
	Upsert(ctx context.Context, doc *entities.FAQDocument, embedding []float32) error
	GetByID(ctx context.Context, id string) (*entities.FAQDocument, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]entities.FAQDocument, error)
}

// FAQService manages the knowledge base. Every write embeds the current
// question/answer text first, so a document's vector can never lag behind
// its text.
type FAQService struct {
	faqs     FAQStore
	embedder interfaces.Embedder
	logger   *logrus.Logger
}

func NewFAQService(faqs FAQStore, embedder interfaces.Embedder, logger *logrus.Logger) *FAQService {
	return &FAQService{faqs: faqs, embedder: embedder, logger: logger}
}

func (s *FAQService) Create(ctx context.Context, question, answer, category string) (*entities.FAQDocument, error) {
	doc := &entities.FAQDocument{
		ID:       uuid.NewString(),
		Question: question,
		Answer:   answer,
		Category: category,
	}
	if err := s.embedAndStore(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.WithField("faq_id", doc.ID).Info("faq document created")
	return doc, nil
}

func (s *FAQService) Update(ctx context.Context, id, question, answer, category string) (*entities.FAQDocument, error) {
	doc, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrFAQNotFound
	}
	doc.Question = question
	doc.Answer = answer
	doc.Category = category
	if err := s.embedAndStore(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reembed regenerates the embedding for an existing document, e.g. after
// switching embedding models.
func (s *FAQService) Reembed(ctx context.Context, id string) error {
	doc, err := s.faqs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrFAQNotFound
	}
	return s.embedAndStore(ctx, doc)
}

func (s *FAQService) Delete(ctx context.Context, id string) error {
	return s.faqs.Delete(ctx, id)
}

func (s *FAQService) List(ctx context.Context) ([]entities.FAQDocument, error) {
	return s.faqs.List(ctx)
}

func (s *FAQService) Get(ctx context.Context, id string) (*entities.FAQDocument, error) {
	return s.faqs.GetByID(ctx, id)
}

func (s *FAQService) embedAndStore(ctx context.Context, doc *entities.FAQDocument) error {
	embedding, err := s.embedder.EmbedDocument(ctx, doc.Question+"\n"+doc.Answer)
	if err != nil {
		return fmt.Errorf("embed faq document: %w", err)
	}
	if err := s.faqs.Upsert(ctx, doc, embedding); err != nil {
		return fmt.Errorf("store faq document: %w", err)
	}
	return nil
}
