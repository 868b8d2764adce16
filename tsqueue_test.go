package msgnet_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/andrei-cloud/msgnet"
	"github.com/stretchr/testify/require"
)

func TestTSQueueFrontBack(t *testing.T) {
	t.Parallel()

	q := msgnet.NewTSQueue[int]()
	require.True(t, q.Empty())

	_, err := q.Front()
	require.ErrorIs(t, err, msgnet.ErrQueueEmpty)
	_, err = q.Back()
	require.ErrorIs(t, err, msgnet.ErrQueueEmpty)
	_, err = q.PopFront()
	require.ErrorIs(t, err, msgnet.ErrQueueEmpty)
	_, err = q.PopBack()
	require.ErrorIs(t, err, msgnet.ErrQueueEmpty)

	q.PushBack(2)
	q.PushBack(3)
	q.PushFront(1)
	require.Equal(t, 3, q.Count())

	v, err := q.Front()
	require.NoError(t, err)
	require.Equal(t, 1, v)
	v, err = q.Back()
	require.NoError(t, err)
	require.Equal(t, 3, v)
	require.Equal(t, 3, q.Count(), "inspection must not remove items")

	v, err = q.PopBack()
	require.NoError(t, err)
	require.Equal(t, 3, v)
	v, err = q.PopFront()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	q.Clear()
	require.True(t, q.Empty())
	require.Equal(t, 0, q.Count())
}

func TestTSQueueConcurrentPush(t *testing.T) {
	t.Parallel()

	const (
		producers = 8
		perWorker = 1000
	)

	q := msgnet.NewTSQueue[int]()
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perWorker {
				q.PushBack(base*perWorker + i)
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, producers*perWorker, q.Count())

	got := make([]int, 0, producers*perWorker)
	for !q.Empty() {
		v, err := q.PopFront()
		require.NoError(t, err)
		got = append(got, v)
	}
	sort.Ints(got)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	require.Equal(t, 0, q.Count())
}

func TestTSQueuePerProducerOrder(t *testing.T) {
	t.Parallel()

	q := msgnet.NewTSQueue[[2]int]()
	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				q.PushBack([2]int{p, i})
			}
		}()
	}
	wg.Wait()

	last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	for {
		v, err := q.PopFront()
		if err != nil {
			break
		}
		require.Greater(t, v[1], last[v[0]])
		last[v[0]] = v[1]
	}
}

func TestTSQueueWait(t *testing.T) {
	t.Parallel()

	t.Run("wakes on push", func(t *testing.T) {
		t.Parallel()

		q := msgnet.NewTSQueue[string]()
		done := make(chan error, 1)
		go func() {
			done <- q.Wait(context.Background())
		}()

		time.Sleep(20 * time.Millisecond)
		q.PushBack("x")

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Wait did not return after push")
		}
	})

	t.Run("returns immediately when non-empty", func(t *testing.T) {
		t.Parallel()

		q := msgnet.NewTSQueue[string]()
		q.PushBack("x")
		require.NoError(t, q.Wait(context.Background()))
	})

	t.Run("honours context", func(t *testing.T) {
		t.Parallel()

		q := msgnet.NewTSQueue[string]()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)
	})
}
