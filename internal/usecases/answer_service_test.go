package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecs/internal/entities"
)

func TestAnswerDeclinesWithoutContext(t *testing.T) {
	gen := &fakeGenerator{output: "should never be used"}
	s := NewAnswerService(gen, testLogger())

	result, err := s.Answer(context.Background(), "你們有實體店面嗎？", nil)
	require.NoError(t, err)
	assert.True(t, result.Declined)
	assert.Empty(t, result.Text)
	// No context means no model call at all.
	assert.Equal(t, 0, gen.calls)
}

func TestAnswerReturnsGroundedText(t *testing.T) {
	gen := &fakeGenerator{output: "  我們提供 7 天鑑賞期退貨服務。  "}
	s := NewAnswerService(gen, testLogger())

	passages := []entities.RetrievedPassage{passage("refund", 0.9)}
	result, err := s.Answer(context.Background(), "可以退貨嗎？", passages)
	require.NoError(t, err)
	assert.False(t, result.Declined)
	assert.Equal(t, "我們提供 7 天鑑賞期退貨服務。", result.Text)
	assert.Contains(t, gen.prompt, "可以退貨嗎？")
	assert.Contains(t, gen.prompt, "答案 refund")
}

func TestAnswerDeclineMarker(t *testing.T) {
	gen := &fakeGenerator{output: "[無法回答]"}
	s := NewAnswerService(gen, testLogger())

	result, err := s.Answer(context.Background(), "比特幣會漲嗎？", []entities.RetrievedPassage{passage("a", 0.8)})
	require.NoError(t, err)
	assert.True(t, result.Declined)
}

func TestAnswerEmptyOutputDeclines(t *testing.T) {
	gen := &fakeGenerator{output: "   \n"}
	s := NewAnswerService(gen, testLogger())

	result, err := s.Answer(context.Background(), "問題", []entities.RetrievedPassage{passage("a", 0.8)})
	require.NoError(t, err)
	assert.True(t, result.Declined)
}

func TestAnswerGeneratorFailureDeclines(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	s := NewAnswerService(gen, testLogger())

	result, err := s.Answer(context.Background(), "問題", []entities.RetrievedPassage{passage("a", 0.8)})
	require.Error(t, err)
	assert.True(t, result.Declined)
}

func TestBuildPromptNumbersPassages(t *testing.T) {
	prompt := buildPrompt("運費怎麼算？", []entities.RetrievedPassage{
		passage("one", 0.9),
		passage("two", 0.8),
	})
	assert.Contains(t, prompt, "1. 問：問題 one")
	assert.Contains(t, prompt, "2. 問：問題 two")
	assert.Contains(t, prompt, declineMarker)
}
