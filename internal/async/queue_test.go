// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package async

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueThenTick(t *testing.T) {
	q := New()
	done, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
		return "created", nil
	})
	require.NoError(t, err)
	assert.True(t, q.Pending())

	q.Tick(context.Background())
	assert.False(t, q.Pending())

	result := <-done
	require.NoError(t, result.Err)
	assert.Equal(t, "created", result.Value)
}

func TestQueue_EnqueueWhileBusyFails(t *testing.T) {
	q := New()
	_, err := q.Enqueue(func(ctx context.Context) (interface{}, error) { return nil, nil })
	require.NoError(t, err)

	_, err = q.Enqueue(func(ctx context.Context) (interface{}, error) { return nil, nil })
	var busy ErrBusy
	assert.ErrorAs(t, err, &busy)
}

func TestQueue_TickPropagatesError(t *testing.T) {
	q := New()
	wantErr := errors.New("boom")
	done, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	require.NoError(t, err)

	q.Tick(context.Background())
	result := <-done
	assert.ErrorIs(t, result.Err, wantErr)
}

func TestQueue_TickNoopWhenEmpty(t *testing.T) {
	q := New()
	q.Tick(context.Background()) // must not panic or block
	assert.False(t, q.Pending())
}

func TestQueue_PanicRecoveredAsError(t *testing.T) {
	q := New()
	done, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
		panic("whoops")
	})
	require.NoError(t, err)

	q.Tick(context.Background())
	result := <-done
	assert.Error(t, result.Err)
}

func TestQueue_AllowsEnqueueAfterCompletion(t *testing.T) {
	q := New()
	done1, _ := q.Enqueue(func(ctx context.Context) (interface{}, error) { return 1, nil })
	q.Tick(context.Background())
	<-done1

	done2, err := q.Enqueue(func(ctx context.Context) (interface{}, error) { return 2, nil })
	require.NoError(t, err)
	q.Tick(context.Background())
	result := <-done2
	assert.Equal(t, 2, result.Value)
}
