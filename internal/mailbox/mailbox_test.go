package mailbox

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFOOrder(t *testing.T) {
	m := New[int]()
	m.Push(1)
	m.Push(2)
	m.Push(3)

	assert.Equal(t, 1, m.Pop())
	assert.Equal(t, 2, m.Pop())
	assert.Equal(t, 3, m.Pop())
	assert.True(t, m.IsEmpty())
}

func TestMailbox_LenAndIsEmpty(t *testing.T) {
	m := New[string]()
	assert.True(t, m.IsEmpty())
	assert.Equal(t, 0, m.Len())

	m.Push("a")
	m.Push("b")
	assert.False(t, m.IsEmpty())
	assert.Equal(t, 2, m.Len())

	m.Pop()
	assert.Equal(t, 1, m.Len())
}

func TestMailbox_PopBlocksUntilPush(t *testing.T) {
	m := New[int]()
	got := make(chan int, 1)

	go func() {
		got <- m.Pop()
	}()

	select {
	case v := <-got:
		t.Fatalf("Pop returned %d before any Push", v)
	case <-time.After(50 * time.Millisecond):
	}

	m.Push(42)

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestMailbox_ConcurrentProducersConsumers(t *testing.T) {
	const producers = 8
	const perProducer = 500
	const total = producers * perProducer

	m := New[int]()

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perProducer {
				m.Push(base*perProducer + i)
			}
		}(p)
	}

	results := make(chan int, total)
	var consumers sync.WaitGroup
	for range 4 {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for range total / 4 {
				results <- m.Pop()
			}
		}()
	}

	wg.Wait()
	consumers.Wait()
	close(results)

	seen := make([]int, 0, total)
	for v := range results {
		seen = append(seen, v)
	}
	sort.Ints(seen)

	require.Len(t, seen, total)
	for i, v := range seen {
		assert.Equal(t, i, v, "every pushed item delivered exactly once")
	}
	assert.True(t, m.IsEmpty())
}

func TestMailbox_SingleProducerOrderPreserved(t *testing.T) {
	m := New[int]()
	const n = 1000

	go func() {
		for i := range n {
			m.Push(i)
		}
	}()

	for i := range n {
		require.Equal(t, i, m.Pop())
	}
}

func TestMailbox_PopContext(t *testing.T) {
	t.Run("returns queued item", func(t *testing.T) {
		m := New[int]()
		m.Push(7)

		v, err := m.PopContext(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("blocked waiter receives pushed item", func(t *testing.T) {
		m := New[string]()

		type result struct {
			v   string
			err error
		}
		got := make(chan result, 1)
		go func() {
			v, err := m.PopContext(context.Background())
			got <- result{v, err}
		}()

		time.Sleep(20 * time.Millisecond)
		m.Push("boot")

		select {
		case r := <-got:
			require.NoError(t, r.err)
			assert.Equal(t, "boot", r.v)
		case <-time.After(time.Second):
			t.Fatal("PopContext did not return the pushed item")
		}
	})

	t.Run("cancel unblocks waiter", func(t *testing.T) {
		m := New[int]()
		ctx, cancel := context.WithCancel(context.Background())

		errc := make(chan error, 1)
		go func() {
			_, err := m.PopContext(ctx)
			errc <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("PopContext did not return after cancel")
		}
	})

	t.Run("already cancelled with empty queue", func(t *testing.T) {
		m := New[int]()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.PopContext(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancelled waiter does not consume", func(t *testing.T) {
		m := New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := m.PopContext(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		m.Push(9)
		assert.Equal(t, 1, m.Len())
		assert.Equal(t, 9, m.Pop())
	})
}

func TestMailbox_TwoProducersOneConsumer(t *testing.T) {
	const perProducer = 1000

	m := New[int]()
	var wg sync.WaitGroup
	for p := range 2 {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := range perProducer {
				m.Push(offset + i)
			}
		}(p * perProducer)
	}

	counts := make(map[int]int, 2*perProducer)
	lastA, lastB := -1, -1
	for range 2 * perProducer {
		v := m.Pop()
		counts[v]++
		// Order within one producer is preserved.
		if v < perProducer {
			require.Greater(t, v, lastA)
			lastA = v
		} else {
			require.Greater(t, v, lastB)
			lastB = v
		}
	}
	wg.Wait()

	assert.Len(t, counts, 2*perProducer)
	for v, n := range counts {
		assert.Equal(t, 1, n, "item %d delivered %d times", v, n)
	}
	assert.True(t, m.IsEmpty())
}
