package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecs/internal/infrastructure"
)

type fakeCounters struct {
	conversations, openTickets int
}

func (f *fakeCounters) Count(ctx context.Context) (int, error)     { return f.conversations, nil }
func (f *fakeCounters) CountOpen(ctx context.Context) (int, error) { return f.openTickets, nil }

func TestStatsIncludesRuntimeCounters(t *testing.T) {
	counters := &fakeCounters{conversations: 7, openTickets: 2}

	limiter := infrastructure.NewMessageRateLimiter(1, 1)
	limiter.Allow("Ua")
	limiter.Allow("Ub")

	dispatcher := infrastructure.NewDispatcher(8, time.Minute)
	defer dispatcher.Stop()
	dispatcher.Enqueue("Ua", func() {})

	uc := NewDashboardUsecase(counters, counters, counters, newFakeDigestStore(), limiter, dispatcher)
	stats, err := uc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Conversations)
	assert.Equal(t, 2, stats.OpenTickets)
	assert.Equal(t, 2, stats.ActiveChatUsers)
	assert.Equal(t, 1, stats.ActiveQueues)
	assert.Nil(t, stats.LatestDigest)
}

func TestStatsWithoutRuntimeCounters(t *testing.T) {
	counters := &fakeCounters{}

	uc := NewDashboardUsecase(counters, counters, counters, newFakeDigestStore(), nil, nil)
	stats, err := uc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.ActiveChatUsers)
	assert.Equal(t, 0, stats.ActiveQueues)
}
