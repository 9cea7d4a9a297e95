package protocol

import (
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_Sequential(t *testing.T) {
	g := NewIDGeneratorFrom(9998)

	assert.Equal(t, "9998", g.Next())
	assert.Equal(t, "9999", g.Next())
	assert.Equal(t, "10000", g.Next())
}

func TestIDGenerator_RandomSeedInRange(t *testing.T) {
	for range 50 {
		first, err := strconv.ParseUint(NewIDGenerator().Next(), 10, 64)
		require.NoError(t, err)
		assert.Less(t, first, uint64(idSeedRange))
	}
}

func TestIDGenerator_ConcurrentUniqueAndContiguous(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 250

	g := NewIDGeneratorFrom(100)

	var (
		mu  sync.Mutex
		ids []uint64
		wg  sync.WaitGroup
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, perGoroutine)
			for range perGoroutine {
				v, err := strconv.ParseUint(g.Next(), 10, 64)
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, v)
			}
			mu.Lock()
			ids = append(ids, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, goroutines*perGoroutine)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, v := range ids {
		assert.Equal(t, uint64(100+i), v)
	}
}

func TestIDGenerator_StrictlyIncreasingPerCaller(t *testing.T) {
	g := NewIDGenerator()
	prev, err := strconv.ParseUint(g.Next(), 10, 64)
	require.NoError(t, err)

	for range 100 {
		next, err := strconv.ParseUint(g.Next(), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, next, prev)
		prev = next
	}
}
