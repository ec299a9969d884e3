package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
	"linecs/internal/interfaces"
)

// declineMarker is the token the model is instructed to emit when the
// provided context cannot answer the question. Checked verbatim, so the
// decline decision never depends on fuzzy parsing of model prose.
const declineMarker = "[無法回答]"

// AnswerResult is the outcome of one auto-answer attempt.
type AnswerResult struct {
	Text     string
	Declined bool
}

// AnswerService composes a grounded prompt from retrieved passages and
// asks the language model for an answer.
type AnswerService struct {
	generator interfaces.Generator
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewAnswerService(generator interfaces.Generator, logger *logrus.Logger) *AnswerService {
	return &AnswerService{
		generator: generator,
		timeout:   15 * time.Second,
		logger:    logger,
	}
}

// Answer produces an answer grounded in the given passages. With zero
// passages it declines deterministically without calling the model — an
// unknown topic must never produce a fabricated answer. Upstream failures
// and timeouts also land on the decline path; err is returned for logging
// but Declined is already set.
func (s *AnswerService) Answer(ctx context.Context, question string, passages []entities.RetrievedPassage) (AnswerResult, error) {
	if len(passages) == 0 {
		return AnswerResult{Declined: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.generator.Generate(ctx, buildPrompt(question, passages))
	if err != nil {
		return AnswerResult{Declined: true}, fmt.Errorf("generate answer: %w", err)
	}

	output = strings.TrimSpace(output)
	if output == "" || strings.Contains(output, declineMarker) {
		return AnswerResult{Declined: true}, nil
	}
	return AnswerResult{Text: output}, nil
}

// buildPrompt assembles the zh-TW customer-service prompt. The model only
// sees the retrieved passages as knowledge and must emit the decline marker
// when they do not cover the question.
func buildPrompt(question string, passages []entities.RetrievedPassage) string {
	var sb strings.Builder
	sb.WriteString("你是品牌的線上客服助理。請僅根據下方「參考資料」回答顧客問題，")
	sb.WriteString("以禮貌、簡潔的繁體中文回覆。")
	sb.WriteString("如果參考資料不足以回答，請只輸出 " + declineMarker + "，不要編造答案。\n\n")
	sb.WriteString("參考資料：\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("%d. 問：%s\n   答：%s\n", i+1, p.Question, p.Answer))
	}
	sb.WriteString("\n顧客問題：")
	sb.WriteString(question)
	return sb.String()
}
