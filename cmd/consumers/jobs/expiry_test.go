package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireOverdue(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestRunCallsExpirer(t *testing.T) {
	exp := &countingExpirer{}
	NewExpiryJob(exp, "@every 1h").Run(context.Background())
	assert.Equal(t, int32(1), exp.calls.Load())
}

func TestRunSurvivesErrors(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db down")}
	job := NewExpiryJob(exp, "@every 1h")
	assert.NotPanics(t, func() { job.Run(context.Background()) })
}

func TestStartRejectsBadSchedule(t *testing.T) {
	job := NewExpiryJob(&countingExpirer{}, "every so often")
	assert.Error(t, job.Start(context.Background()))
}

func TestStartRunsImmediately(t *testing.T) {
	exp := &countingExpirer{}
	job := NewExpiryJob(exp, "@every 1h")
	require.NoError(t, job.Start(context.Background()))

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job.Stop(ctx)
}

type blockingExpirer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingExpirer) ExpireOverdue(ctx context.Context) (int, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return 0, nil
}

func TestScheduledTickSkipsWhileFirstRunIsBusy(t *testing.T) {
	exp := &blockingExpirer{release: make(chan struct{})}
	job := NewExpiryJob(exp, "@every 1s")
	require.NoError(t, job.Start(context.Background()))

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), exp.calls.Load())

	close(exp.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job.Stop(ctx)
}
