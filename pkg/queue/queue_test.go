package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rsvpstream/errors"
)

func TestPutGetOrder(t *testing.T) {
	q := New[int](8)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Put(ctx, i))
	}

	for i := 0; i < 5; i++ {
		item, err := q.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, item)
	}
}

func TestPutBlocksWhenFull(t *testing.T) {
	q := New[string](1)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, "first"))

	// Second Put must block until the consumer makes room
	unblocked := make(chan struct{})
	go func() {
		_ = q.Put(ctx, "second")
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("Put returned while queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	item, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", item)

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("Put did not unblock after Get")
	}
}

func TestPutCancellation(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.Put(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Put(ctx, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetBlocksWhenEmpty(t *testing.T) {
	q := New[int](1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryGet(t *testing.T) {
	q := New[int](2)

	_, ok := q.TryGet()
	assert.False(t, ok)

	require.NoError(t, q.Put(context.Background(), 7))
	item, ok := q.TryGet()
	assert.True(t, ok)
	assert.Equal(t, 7, item)
}

func TestCloseFailsPutDrainsGet(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, 1))
	require.NoError(t, q.Put(ctx, 2))

	q.Close()
	assert.True(t, q.Closed())

	err := q.Put(ctx, 3)
	assert.ErrorIs(t, err, errors.ErrQueueClosed)

	// Buffered items survive close
	item, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, item)
	item, err = q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, item)

	_, err = q.Get(ctx)
	assert.ErrorIs(t, err, errors.ErrQueueClosed)
}

func TestCloseIdempotent(t *testing.T) {
	q := New[int](1)
	q.Close()
	q.Close()
	assert.True(t, q.Closed())
}

func TestStats(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, 1))
	require.NoError(t, q.Put(ctx, 2))
	_, err := q.Get(ctx)
	require.NoError(t, err)

	enq, deq := q.Stats()
	assert.Equal(t, int64(2), enq)
	assert.Equal(t, int64(1), deq)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 4, q.Cap())
}

func TestMinimumCapacity(t *testing.T) {
	q := New[int](0)
	assert.Equal(t, 1, q.Cap())
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New[int](16)
	ctx := context.Background()

	const producers = 4
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Put(ctx, i)
			}
		}()
	}

	received := make(chan int, producers*perProducer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < producers*perProducer; i++ {
			item, err := q.Get(ctx)
			if err != nil {
				return
			}
			received <- item
		}
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
	assert.Len(t, received, producers*perProducer)
}
