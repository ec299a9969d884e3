package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linecs/internal/infrastructure"
)

var taipei = time.FixedZone("Asia/Taipei", 8*3600)

type digestFixture struct {
	service   *DigestService
	store     *fakeDigestStore
	tickets   *fakeTicketStats
	convs     *fakeConvStats
	messenger *fakeMessenger
	notifier  *fakeNotifier
}

func newDigestFixture(recipients []string) *digestFixture {
	f := &digestFixture{
		store:     newFakeDigestStore(),
		tickets:   &fakeTicketStats{},
		convs:     &fakeConvStats{},
		messenger: &fakeMessenger{},
		notifier:  &fakeNotifier{},
	}
	metrics := infrastructure.NewMetricsWith(prometheus.NewRegistry())
	f.service = NewDigestService(f.store, f.tickets, f.convs, f.messenger, f.notifier, recipients, taipei, 9, 0, metrics, testLogger())
	return f
}

func TestRunAggregatesPreviousDay(t *testing.T) {
	f := newDigestFixture([]string{"Uadmin1", "Uadmin2"})
	f.convs.conversations = 10
	f.convs.messages = 42
	f.tickets.escalated = 3
	f.tickets.pending = 2

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, taipei)
	report, pushed, err := f.service.Run(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, pushed)

	assert.Equal(t, "2026-03-09", report.WindowKey)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, taipei), report.WindowStart)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, taipei), report.WindowEnd)
	assert.Equal(t, report.WindowStart, f.convs.gotStart)
	assert.Equal(t, report.WindowEnd, f.convs.gotEnd)

	assert.Equal(t, 10, report.Conversations)
	assert.Equal(t, 7, report.AutoResolved)
	assert.Equal(t, 3, report.Escalated)
	assert.Equal(t, 2, report.Pending)

	assert.Contains(t, report.Body, "對話數：10")
	assert.Contains(t, report.Body, "自動解決：7")
	assert.Contains(t, report.Body, "自動解決率：70%")

	assert.Equal(t, []string{"Uadmin1", "Uadmin2"}, f.messenger.pushTo)
	require.Len(t, f.notifier.texts, 1)
	assert.Equal(t, report.Body, f.notifier.texts[0])
}

func TestRunSameWindowPushesOnce(t *testing.T) {
	f := newDigestFixture([]string{"Uadmin"})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, taipei)

	_, pushed, err := f.service.Run(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, pushed)

	// A manual re-run for the same window reports but does not re-push.
	later := now.Add(2 * time.Hour)
	report, pushed, err := f.service.Run(context.Background(), later)
	require.NoError(t, err)
	assert.False(t, pushed)
	require.NotNil(t, report)
	assert.Equal(t, "2026-03-09", report.WindowKey)
	assert.Len(t, f.messenger.pushTo, 1)
	assert.Len(t, f.notifier.texts, 1)
}

func TestRunConsecutiveWindowsAreContiguous(t *testing.T) {
	f := newDigestFixture(nil)
	ctx := context.Background()

	first, _, err := f.service.Run(ctx, time.Date(2026, 3, 10, 9, 0, 0, 0, taipei))
	require.NoError(t, err)
	second, _, err := f.service.Run(ctx, time.Date(2026, 3, 11, 9, 0, 0, 0, taipei))
	require.NoError(t, err)

	assert.Equal(t, first.WindowEnd, second.WindowStart)
}

func TestRunCatchesUpAfterDowntime(t *testing.T) {
	f := newDigestFixture([]string{"Uadmin"})
	ctx := context.Background()

	_, pushed, err := f.service.Run(ctx, time.Date(2026, 3, 10, 9, 0, 0, 0, taipei))
	require.NoError(t, err)
	assert.True(t, pushed)

	// Three days offline: the next run backfills every missed window.
	report, pushed, err := f.service.Run(ctx, time.Date(2026, 3, 13, 9, 0, 0, 0, taipei))
	require.NoError(t, err)
	assert.True(t, pushed)
	assert.Equal(t, "2026-03-12", report.WindowKey)

	require.Len(t, f.store.inserted, 4)
	for i, key := range []string{"2026-03-09", "2026-03-10", "2026-03-11", "2026-03-12"} {
		assert.Equal(t, key, f.store.inserted[i].WindowKey)
		if i > 0 {
			assert.Equal(t, f.store.inserted[i-1].WindowEnd, f.store.inserted[i].WindowStart)
		}
	}
	// Every backfilled window is pushed, not just the latest.
	assert.Len(t, f.messenger.pushTo, 4)
}

func TestAutoResolvedNeverNegative(t *testing.T) {
	f := newDigestFixture(nil)
	f.convs.conversations = 1
	f.tickets.escalated = 5 // tickets can outnumber window conversations

	report, _, err := f.service.Run(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, taipei))
	require.NoError(t, err)
	assert.Equal(t, 0, report.AutoResolved)
}

func TestNextFire(t *testing.T) {
	f := newDigestFixture(nil)

	before := time.Date(2026, 3, 10, 8, 30, 0, 0, taipei)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, taipei), f.service.nextFire(before))

	after := time.Date(2026, 3, 10, 9, 0, 1, 0, taipei)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, taipei), f.service.nextFire(after))
}
