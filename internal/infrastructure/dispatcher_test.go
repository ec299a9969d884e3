package infrastructure

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherKeepsOrderWithinConversation(t *testing.T) {
	d := NewDispatcher(128, time.Minute)
	defer d.Stop()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup

	const n = 100
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		ok := d.Enqueue("U123", func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
		require.True(t, ok)
	}
	wg.Wait()

	require.Len(t, got, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, got[i])
	}
}

func TestDispatcherConversationsRunIndependently(t *testing.T) {
	d := NewDispatcher(8, time.Minute)
	defer d.Stop()

	blocked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	require.True(t, d.Enqueue("Uslow", func() {
		close(blocked)
		<-release
	}))
	<-blocked

	// A stuck conversation must not delay another one.
	require.True(t, d.Enqueue("Ufast", func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job for independent conversation did not run")
	}
	close(release)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(1, time.Minute)
	defer d.Stop()

	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, d.Enqueue("U123", func() {
		close(started)
		<-release
	}))
	<-started

	assert.True(t, d.Enqueue("U123", func() {})) // fills the buffer
	assert.False(t, d.Enqueue("U123", func() {}))
	close(release)
}

func TestDispatcherStop(t *testing.T) {
	d := NewDispatcher(8, time.Minute)
	require.True(t, d.Enqueue("U123", func() {}))
	assert.Equal(t, 1, d.ActiveQueues())

	d.Stop()
	assert.False(t, d.Enqueue("U123", func() {}))
	assert.Equal(t, 0, d.ActiveQueues())
}
