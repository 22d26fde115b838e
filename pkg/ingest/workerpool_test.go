package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewWorkerPool(4, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran int32
	jobs := 100
	for i := 0; i < jobs; i++ {
		err := p.Submit(ctx, func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, p.Close())
	assert.Equal(t, int32(jobs), atomic.LoadInt32(&ran))
}

func TestWorkerPoolCollectsErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewWorkerPool(2, 4)
	ctx := context.Background()
	p.Start(ctx)

	boom := errors.New("boom")
	require.NoError(t, p.Submit(ctx, func(context.Context) error { return boom }))
	require.NoError(t, p.Submit(ctx, func(context.Context) error { return nil }))

	err := p.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewWorkerPool(1, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	require.NoError(t, p.Close())

	err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestCloseReleasesBlockedSubmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewWorkerPool(1, 1)
	ctx := context.Background()
	// no workers: the second Submit blocks on the full queue
	require.NoError(t, p.Submit(ctx, func(ctx context.Context) error { return nil }))

	done := make(chan error, 1)
	go func() {
		done <- p.Submit(ctx, func(ctx context.Context) error { return nil })
	}()
	time.Sleep(10 * time.Millisecond)

	p.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatalf("blocked Submit did not return after Close")
	}
}

func TestSubmitHonorsContext(t *testing.T) {
	p := NewWorkerPool(1, 1)
	defer p.Close()
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContextCancellationStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := NewWorkerPool(2, 16)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	done := make(chan struct{}, 1)
	go func() {
		p.Close()
		done <- struct{}{}
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("Close blocked after context cancellation")
	}
}
