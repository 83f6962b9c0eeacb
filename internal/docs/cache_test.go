package docs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_LoadsOncePerKey(t *testing.T) {
	c := NewCache()
	var calls int32
	load := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]any{"content": "# Installation"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "install.md", load)
		require.NoError(t, err)
		assert.Equal(t, "# Installation", v.(map[string]any)["content"])
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache()
	var calls int32
	load := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("connection refused")
		}
		return "ok", nil
	}

	_, err := c.Get(context.Background(), "docs://index", load)
	require.Error(t, err)

	v, err := c.Get(context.Background(), "docs://index", load)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCache_CollapsesConcurrentMisses(t *testing.T) {
	c := NewCache()
	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "faq.md", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}
