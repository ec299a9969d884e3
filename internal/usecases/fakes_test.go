package usecases

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"linecs/internal/entities"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeEmbedder struct {
	vec        []float32
	err        error
	queryCalls int
	docCalls   int
	lastText   string
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	f.lastText = text
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	f.docCalls++
	f.lastText = text
	return f.vec, f.err
}

type fakeSearcher struct {
	passages  []entities.RetrievedPassage
	err       error
	calls     int
	gotTopK   int
	gotMetric string
}

func (f *fakeSearcher) Search(ctx context.Context, queryVec []float32, topK int, metric string) ([]entities.RetrievedPassage, error) {
	f.calls++
	f.gotTopK = topK
	f.gotMetric = metric
	return f.passages, f.err
}

type fakeGenerator struct {
	output string
	err    error
	calls  int
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.output, f.err
}

type fakeMessenger struct {
	mu       sync.Mutex
	replies  []string
	pushTo   []string
	pushText []string
	replyErr error
}

func (f *fakeMessenger) Reply(ctx context.Context, replyToken, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeMessenger) Push(ctx context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushTo = append(f.pushTo, to)
	f.pushText = append(f.pushText, text)
	return nil
}

type fakeNotifier struct {
	texts []string
	err   error
}

func (f *fakeNotifier) Notify(text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

type fakeConversationStore struct {
	conv     *entities.Conversation
	failed   int
	resets   int
	states   []string
	messages []entities.Message
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conv: &entities.Conversation{ID: 1, LineUserID: "U123", State: entities.ConversationStateBot},
	}
}

func (f *fakeConversationStore) GetOrCreate(ctx context.Context, lineUserID string) (*entities.Conversation, error) {
	f.conv.LineUserID = lineUserID
	return f.conv, nil
}

func (f *fakeConversationStore) SetState(ctx context.Context, id int64, state string) error {
	f.states = append(f.states, state)
	f.conv.State = state
	return nil
}

func (f *fakeConversationStore) IncrementFailedAnswers(ctx context.Context, id int64) (int, error) {
	f.failed++
	return f.failed, nil
}

func (f *fakeConversationStore) ResetFailedAnswers(ctx context.Context, id int64) error {
	f.failed = 0
	f.resets++
	return nil
}

func (f *fakeConversationStore) AddMessage(ctx context.Context, conversationID int64, role, content string) error {
	f.messages = append(f.messages, entities.Message{ConversationID: conversationID, Role: role, Content: content})
	return nil
}

type fakeTicketStore struct {
	open   map[int64]*entities.Ticket
	opened int
	closed []string
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{open: make(map[int64]*entities.Ticket)}
}

func (f *fakeTicketStore) Open(ctx context.Context, t *entities.Ticket) (bool, error) {
	if _, exists := f.open[t.ConversationID]; exists {
		return false, nil
	}
	copied := *t
	copied.Status = entities.TicketStatusOpen
	f.open[t.ConversationID] = &copied
	f.opened++
	return true, nil
}

func (f *fakeTicketStore) GetOpenByConversation(ctx context.Context, conversationID int64) (*entities.Ticket, error) {
	return f.open[conversationID], nil
}

func (f *fakeTicketStore) Close(ctx context.Context, id string) (int64, error) {
	for convID, t := range f.open {
		if t.ID == id {
			delete(f.open, convID)
			f.closed = append(f.closed, id)
			return convID, nil
		}
	}
	return 0, nil
}

type fakeConfigStore struct {
	values map[string]string
}

func (f *fakeConfigStore) GetConfig(ctx context.Context, key string) (string, error) {
	if f.values == nil {
		return "", nil
	}
	return f.values[key], nil
}

type fakeDigestStore struct {
	keys     map[string]bool
	inserted []*entities.DigestReport
}

func newFakeDigestStore() *fakeDigestStore {
	return &fakeDigestStore{keys: make(map[string]bool)}
}

func (f *fakeDigestStore) Insert(ctx context.Context, report *entities.DigestReport) (bool, error) {
	if f.keys[report.WindowKey] {
		return false, nil
	}
	f.keys[report.WindowKey] = true
	report.ID = int64(len(f.inserted) + 1)
	report.GeneratedAt = time.Now()
	f.inserted = append(f.inserted, report)
	return true, nil
}

func (f *fakeDigestStore) GetByKey(ctx context.Context, windowKey string) (*entities.DigestReport, error) {
	for _, r := range f.inserted {
		if r.WindowKey == windowKey {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeDigestStore) List(ctx context.Context, limit int) ([]entities.DigestReport, error) {
	out := make([]entities.DigestReport, 0, limit)
	for i := len(f.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.inserted[i])
	}
	return out, nil
}

type fakeTicketStats struct {
	escalated, pending int
	gotStart, gotEnd   time.Time
}

func (f *fakeTicketStats) WindowStats(ctx context.Context, start, end time.Time) (int, int, error) {
	f.gotStart, f.gotEnd = start, end
	return f.escalated, f.pending, nil
}

type fakeConvStats struct {
	conversations, messages int
	gotStart, gotEnd        time.Time
}

func (f *fakeConvStats) CountInWindow(ctx context.Context, start, end time.Time) (int, int, error) {
	f.gotStart, f.gotEnd = start, end
	return f.conversations, f.messages, nil
}
