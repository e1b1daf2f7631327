package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quickBackoff = backoff{first: time.Millisecond, ceiling: 4 * time.Millisecond, probeTimeout: 50 * time.Millisecond}

func TestWaitReadyRetriesUntilUp(t *testing.T) {
	calls := 0
	err := quickBackoff.waitReady(context.Background(), time.Second, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitReadyGivesUpWithLastError(t *testing.T) {
	refused := errors.New("connection refused")
	err := quickBackoff.waitReady(context.Background(), 20*time.Millisecond, func(context.Context) error {
		return refused
	})
	assert.ErrorIs(t, err, refused)
}

func TestWaitReadyStopsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := quickBackoff.waitReady(ctx, time.Minute, func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
