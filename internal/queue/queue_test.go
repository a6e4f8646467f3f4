package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueRunsHandler(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)
	done := make(chan struct{})

	q := NewMemory(map[string]Handler{
		"greet": func(_ context.Context, payload json.RawMessage) error {
			var body struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(payload, &body); err != nil {
				return err
			}
			mu.Lock()
			received = append(received, body.Name)
			mu.Unlock()
			close(done)
			return nil
		},
	})
	defer q.Close()

	require.NoError(t, q.Enqueue(context.Background(), "greet", map[string]string{"name": "asha"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"asha"}, received)
}

func TestUnregisteredOperationIsDropped(t *testing.T) {
	handled := make(chan struct{}, 1)

	q := NewMemory(map[string]Handler{
		"known": func(context.Context, json.RawMessage) error {
			handled <- struct{}{}
			return nil
		},
	}, WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), "unknown", nil))
	require.NoError(t, q.Enqueue(context.Background(), "known", nil))
	require.NoError(t, q.Close())

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("known operation was not handled")
	}
}

func TestCloseDrainsPendingTasks(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)

	q := NewMemory(map[string]Handler{
		"tick": func(context.Context, json.RawMessage) error {
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		},
	}, WithWorkers(1), WithBuffer(16))

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), "tick", nil))
	}
	require.NoError(t, q.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 10, count)
}

func TestEnqueueAfterClose(t *testing.T) {
	q := NewMemory(nil)
	require.NoError(t, q.Close())
	require.ErrorIs(t, q.Enqueue(context.Background(), "anything", nil), ErrClosed)
}

func TestEnqueueDuringCloseReturnsErrClosed(t *testing.T) {
	q := NewMemory(map[string]Handler{
		"tick": func(context.Context, json.RawMessage) error { return nil },
	}, WithWorkers(2), WithBuffer(1))

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// Must never panic with a send on a closed channel.
				if err := q.Enqueue(context.Background(), "tick", nil); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Close())
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.ErrorIs(t, err, ErrClosed)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	q := NewMemory(nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}

func TestHandlerErrorDoesNotStopWorkers(t *testing.T) {
	handled := make(chan struct{}, 1)

	q := NewMemory(map[string]Handler{
		"fail": func(context.Context, json.RawMessage) error {
			return context.DeadlineExceeded
		},
		"ok": func(context.Context, json.RawMessage) error {
			handled <- struct{}{}
			return nil
		},
	}, WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), "fail", nil))
	require.NoError(t, q.Enqueue(context.Background(), "ok", nil))
	require.NoError(t, q.Close())

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("queue stopped processing after a failed task")
	}
}
