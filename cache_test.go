package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedReloadsAfterInvalidate(t *testing.T) {
	loads := 0
	c := newCached(time.Minute, func(context.Context) ([]string, error) {
		loads++
		return []string{"a"}, nil
	}, nil)

	for i := 0; i < 3; i++ {
		items, err := c.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, items)
	}
	assert.Equal(t, 1, loads)

	c.Invalidate()
	_, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestCachedExpiresAfterTTL(t *testing.T) {
	loads := 0
	c := newCached(20*time.Millisecond, func(context.Context) ([]int, error) {
		loads++
		return nil, nil
	}, nil)

	items, err := c.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	time.Sleep(40 * time.Millisecond)
	_, _ = c.List(context.Background())
	assert.Equal(t, 2, loads)
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	fail := true
	c := newCached(time.Minute, func(context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("backend down")
		}
		return []int{1}, nil
	}, nil)

	_, err := c.List(context.Background())
	require.Error(t, err)
	fail = false
	items, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
}
