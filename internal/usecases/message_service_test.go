package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecs/internal/entities"
	"linecs/internal/infrastructure"
)

type messageFixture struct {
	service   *MessageService
	messenger *fakeMessenger
	convs     *fakeConversationStore
	tickets   *fakeTicketStore
	searcher  *fakeSearcher
	generator *fakeGenerator
	configs   *fakeConfigStore
}

func newMessageFixture() *messageFixture {
	logger := testLogger()
	f := &messageFixture{
		messenger: &fakeMessenger{},
		convs:     newFakeConversationStore(),
		tickets:   newFakeTicketStore(),
		searcher:  &fakeSearcher{},
		generator: &fakeGenerator{},
		configs:   &fakeConfigStore{},
	}
	retriever := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, f.searcher, 3, "cosine", 0.70, logger)
	answers := NewAnswerService(f.generator, logger)
	escalation := NewEscalationRouter(f.tickets, f.convs, 2, logger)
	metrics := infrastructure.NewMetricsWith(prometheus.NewRegistry())
	f.service = NewMessageService(retriever, answers, escalation, f.convs, f.configs, f.messenger, nil, nil, metrics, logger)
	return f
}

func TestHandleTextAnswersFromKnowledge(t *testing.T) {
	f := newMessageFixture()
	f.searcher.passages = []entities.RetrievedPassage{passage("shipping", 0.9)}
	f.generator.output = "滿千免運，未滿收 80 元運費。"

	f.service.HandleText(context.Background(), "U123", "token-1", "運費怎麼算？")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, "滿千免運，未滿收 80 元運費。", f.messenger.replies[0])
	assert.Equal(t, 1, f.convs.resets)

	// Both sides of the exchange are recorded.
	require.Len(t, f.convs.messages, 2)
	assert.Equal(t, entities.MessageRoleUser, f.convs.messages[0].Role)
	assert.Equal(t, entities.MessageRoleBot, f.convs.messages[1].Role)
}

func TestHandleTextFirstDeclineSendsFallback(t *testing.T) {
	f := newMessageFixture()
	// Nothing relevant in the store: retrieval declines, no model call.

	f.service.HandleText(context.Background(), "U123", "token-1", "你們有賣飛機嗎？")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, defaultFallbackMessage, f.messenger.replies[0])
	assert.Equal(t, 0, f.generator.calls)
	assert.Equal(t, 0, f.tickets.opened)
	assert.Equal(t, 1, f.convs.failed)
}

func TestHandleTextEscalatesAfterRepeatedDeclines(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()

	f.service.HandleText(ctx, "U123", "token-1", "聽不懂的問題一")
	f.service.HandleText(ctx, "U123", "token-2", "聽不懂的問題二")

	require.Len(t, f.messenger.replies, 2)
	assert.Equal(t, defaultFallbackMessage, f.messenger.replies[0])
	assert.Equal(t, defaultHandoffMessage, f.messenger.replies[1])
	assert.Equal(t, 1, f.tickets.opened)
	assert.Equal(t, entities.ConversationStateEscalated, f.convs.conv.State)
}

func TestHandleTextEscalatesOnGeneratorFailure(t *testing.T) {
	f := newMessageFixture()
	f.searcher.passages = []entities.RetrievedPassage{passage("shipping", 0.9)}
	f.generator.err = errors.New("model overloaded")

	f.service.HandleText(context.Background(), "U123", "token-1", "運費怎麼算？")

	// A hard upstream failure hands off immediately, without burning the
	// decline counter.
	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, defaultHandoffMessage, f.messenger.replies[0])
	assert.Equal(t, 1, f.tickets.opened)
	ticket, _ := f.tickets.GetOpenByConversation(context.Background(), f.convs.conv.ID)
	require.NotNil(t, ticket)
	assert.Equal(t, entities.EscalationReasonError, ticket.Reason)
	assert.Equal(t, 0, f.convs.failed)
}

func TestHandleTextEscalatesOnRetrievalFailure(t *testing.T) {
	f := newMessageFixture()
	f.searcher.err = errors.New("connection refused")

	f.service.HandleText(context.Background(), "U123", "token-1", "運費怎麼算？")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, defaultHandoffMessage, f.messenger.replies[0])
	assert.Equal(t, 1, f.tickets.opened)
	ticket, _ := f.tickets.GetOpenByConversation(context.Background(), f.convs.conv.ID)
	require.NotNil(t, ticket)
	assert.Equal(t, entities.EscalationReasonError, ticket.Reason)
	assert.Equal(t, 0, f.generator.calls)
}

func TestHandleTextHumanRequestEscalatesImmediately(t *testing.T) {
	f := newMessageFixture()

	f.service.HandleText(context.Background(), "U123", "token-1", "我要轉人工")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, defaultHandoffMessage, f.messenger.replies[0])
	assert.Equal(t, 1, f.tickets.opened)
	ticket, _ := f.tickets.GetOpenByConversation(context.Background(), f.convs.conv.ID)
	require.NotNil(t, ticket)
	assert.Equal(t, entities.EscalationReasonUserRequest, ticket.Reason)
}

func TestHandleTextGreeting(t *testing.T) {
	f := newMessageFixture()

	f.service.HandleText(context.Background(), "U123", "token-1", "你好")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, defaultWelcomeMessage, f.messenger.replies[0])
	assert.Equal(t, 0, f.searcher.calls)
}

func TestHandleTextCustomConfigTexts(t *testing.T) {
	f := newMessageFixture()
	f.configs.values = map[string]string{"welcome_message": "歡迎光臨小店！"}

	f.service.HandleText(context.Background(), "U123", "token-1", "hello")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, "歡迎光臨小店！", f.messenger.replies[0])
}

func TestHandleTextSuppressedWhileEscalated(t *testing.T) {
	f := newMessageFixture()
	f.convs.conv.State = entities.ConversationStateEscalated

	f.service.HandleText(context.Background(), "U123", "token-1", "還在嗎？")

	// The message is recorded for the agent, but no automatic reply goes out.
	assert.Empty(t, f.messenger.replies)
	require.Len(t, f.convs.messages, 1)
	assert.Equal(t, "還在嗎？", f.convs.messages[0].Content)
}

func TestHandleTextIgnoresBlankMessages(t *testing.T) {
	f := newMessageFixture()

	f.service.HandleText(context.Background(), "U123", "token-1", "   ")

	assert.Empty(t, f.messenger.replies)
	assert.Empty(t, f.convs.messages)
}

func TestHandleFollowSendsWelcome(t *testing.T) {
	f := newMessageFixture()

	f.service.HandleFollow(context.Background(), "U123", "token-1")

	require.Len(t, f.messenger.replies, 1)
	assert.Equal(t, defaultWelcomeMessage, f.messenger.replies[0])
}

func TestHandleUnfollowClosesConversation(t *testing.T) {
	f := newMessageFixture()

	f.service.HandleUnfollow(context.Background(), "U123")

	assert.Equal(t, entities.ConversationStateClosed, f.convs.conv.State)
	assert.Empty(t, f.messenger.replies)
}

func TestIsHumanRequest(t *testing.T) {
	assert.True(t, isHumanRequest("我要轉人工"))
	assert.True(t, isHumanRequest("請問可以找真人客服嗎"))
	assert.True(t, isHumanRequest("I want to talk to human please"))
	assert.False(t, isHumanRequest("運費怎麼算"))
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, isGreeting("你好"))
	assert.True(t, isGreeting("Hi"))
	assert.False(t, isGreeting("你好，請問運費怎麼算？"))
}
