package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLogger struct {
	mu     sync.Mutex
	errors int
}

func (l *countingLogger) Info(string, ...any) {}

func (l *countingLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func fastPolicy(retries int) Policy {
	return Policy{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		ResetAfter:   time.Hour,
	}
}

func TestGroup_NormalReturnEndsWorker(t *testing.T) {
	g := NewGroup(context.Background(), nil, fastPolicy(3))

	var runs atomic.Int32
	g.Go("once", func(context.Context) { runs.Add(1) })
	g.Wait()

	assert.EqualValues(t, 1, runs.Load())
	assert.NoError(t, g.Context().Err())
}

func TestGroup_RestartsAfterPanic(t *testing.T) {
	g := NewGroup(context.Background(), nil, fastPolicy(5))

	var runs atomic.Int32
	g.Go("flaky", func(context.Context) {
		if runs.Add(1) < 3 {
			panic("transient")
		}
	})
	g.Wait()

	assert.EqualValues(t, 3, runs.Load())
	assert.NoError(t, g.Context().Err(), "group survives recovered panics")
}

func TestGroup_CancelsAfterMaxRetries(t *testing.T) {
	logger := &countingLogger{}
	g := NewGroup(context.Background(), logger, fastPolicy(3))

	var runs atomic.Int32
	g.Go("broken", func(context.Context) {
		runs.Add(1)
		panic("always")
	})
	g.Wait()

	assert.EqualValues(t, 3, runs.Load())
	assert.ErrorIs(t, g.Context().Err(), context.Canceled)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Equal(t, 4, logger.errors, "three panics plus the shutdown message")
}

func TestGroup_LongRunResetsRetries(t *testing.T) {
	policy := fastPolicy(2)
	policy.ResetAfter = 5 * time.Millisecond
	g := NewGroup(context.Background(), nil, policy)

	// Every run outlives ResetAfter, so the retry count never reaches 2.
	var runs atomic.Int32
	g.Go("slow-flaky", func(context.Context) {
		time.Sleep(10 * time.Millisecond)
		if runs.Add(1) < 4 {
			panic("transient")
		}
	})
	g.Wait()

	assert.EqualValues(t, 4, runs.Load())
	assert.NoError(t, g.Context().Err())
}

func TestGroup_CancelStopsWorkers(t *testing.T) {
	g := NewGroup(context.Background(), nil, DefaultPolicy)

	started := make(chan struct{})
	g.Go("loop", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	g.Cancel()

	done := make(chan struct{})
	go func() { g.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not stop after Cancel")
	}
}

func TestGroup_ParentCancellationStopsBackoff(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	policy := fastPolicy(10)
	policy.InitialDelay = time.Hour
	g := NewGroup(parent, nil, policy)

	panicked := make(chan struct{})
	g.Go("waits", func(context.Context) {
		close(panicked)
		panic("once")
	})
	<-panicked
	cancel()

	done := make(chan struct{})
	go func() { g.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("backoff did not observe cancellation")
	}
}

func TestNewGroup_FillsPolicyDefaults(t *testing.T) {
	g := NewGroup(context.Background(), nil, Policy{})
	require.NotNil(t, g)
	assert.Equal(t, DefaultPolicy, g.policy)
}
