package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errLate = errors.New("too late")

func TestResolveOnce(t *testing.T) {
	f := New[int]()

	require.True(t, f.Resolve(1))
	require.False(t, f.Resolve(2))
	require.False(t, f.Reject(errLate))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestRejectWins(t *testing.T) {
	f := New[string]()

	require.True(t, f.Reject(errLate))
	require.False(t, f.Resolve("ignored"))

	v, err := f.Wait(context.Background())
	require.ErrorIs(t, err, errLate)
	require.Empty(t, v)
}

func TestWaitTimeoutRejectsWithCause(t *testing.T) {
	f := New[int]()

	ctx, cancel := context.WithTimeoutCause(context.Background(), 10*time.Millisecond, errLate)
	defer cancel()

	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, errLate)

	// the response arriving after the deadline is discarded
	require.False(t, f.Resolve(42))
	_, err = f.Wait(context.Background())
	require.ErrorIs(t, err, errLate)
}

func TestConcurrentSettle(t *testing.T) {
	f := New[int]()

	var wg sync.WaitGroup
	wins := make(chan int, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Resolve(i) {
				wins <- i
			}
		}()
	}
	wg.Wait()
	close(wins)

	require.Len(t, wins, 1)
	winner := <-wins

	select {
	case <-f.Done():
	default:
		t.Fatal("future not settled")
	}

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, winner, v)
}
