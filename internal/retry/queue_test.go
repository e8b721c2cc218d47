package retry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/neko-downloader/internal/model"
)

func assetItem(url string) model.RetryItem {
	return model.AssetRetry(&model.Asset{UnitKey: "u1", URL: url}, errors.New("boom"))
}

func TestQueue_DrainFIFOAndEmpties(t *testing.T) {
	q := NewQueue()
	q.Enqueue(assetItem("a"))
	q.Enqueue(assetItem("b"))
	q.Enqueue(model.UnitRetry(&model.Unit{URL: "u2"}, errors.New("timeout")))
	require.Equal(t, 3, q.Len())

	var seen []string
	res, err := q.Drain(context.Background(), func(_ context.Context, item model.RetryItem) error {
		if item.Kind == model.RetryUnit {
			seen = append(seen, "unit:"+item.Unit.URL)
			return errors.New("still failing")
		}
		seen = append(seen, item.Asset.URL)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "unit:u2"}, seen)
	assert.Equal(t, DrainResult{Succeeded: 2, Failed: 1}, res)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := NewQueue()
	called := false
	res, err := q.Drain(context.Background(), func(context.Context, model.RetryItem) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 0, res.Total())
}

func TestQueue_DrainCancelledDropsRemaining(t *testing.T) {
	q := NewQueue()
	for _, u := range []string{"a", "b", "c", "d"} {
		q.Enqueue(assetItem(u))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processed := 0
	res, err := q.Drain(ctx, func(context.Context, model.RetryItem) error {
		processed++
		if processed == 2 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 2, processed)
	assert.Equal(t, DrainResult{Succeeded: 2, Dropped: 2}, res)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(assetItem("x"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())

	res, err := q.Drain(context.Background(), func(context.Context, model.RetryItem) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 50, res.Succeeded)
}

func TestQueue_Discard(t *testing.T) {
	q := NewQueue()
	q.Enqueue(assetItem("a"))
	q.Enqueue(assetItem("b"))

	assert.Equal(t, 2, q.Discard())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Discard())
}
