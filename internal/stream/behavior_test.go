package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBehavior_ReplaysLatestOnly(t *testing.T) {
	b := NewBehavior[string]()
	b.Set("one")
	b.Set("two")

	var got []string
	b.Subscribe(func(v string) { got = append(got, v) })
	b.Set("three")

	assert.Equal(t, []string{"two", "three"}, got)
}

func TestBehavior_NoReplayWhenUnset(t *testing.T) {
	b := NewBehavior[int]()

	calls := 0
	b.Subscribe(func(int) { calls++ })
	assert.Equal(t, 0, calls)

	_, ok := b.Get()
	assert.False(t, ok)
}

func TestBehavior_NewBehaviorOf(t *testing.T) {
	b := NewBehaviorOf(7)
	v, ok := b.Get()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestBehavior_OnceFiresForCurrentValue(t *testing.T) {
	b := NewBehaviorOf(5)

	var got []int
	b.Once(func(v int) bool { return v > 0 }, func(v int) { got = append(got, v) })
	b.Set(6)

	assert.Equal(t, []int{5}, got)
	assert.Equal(t, 0, b.Len())
}

func TestBehavior_OnceWaitsForMatchingValue(t *testing.T) {
	b := NewBehaviorOf(0)

	var got []int
	b.Once(func(v int) bool { return v > 0 }, func(v int) { got = append(got, v) })
	assert.Empty(t, got)

	b.Set(0)
	b.Set(3)
	b.Set(4)
	assert.Equal(t, []int{3}, got)
}

func TestBehavior_OnceCancelled(t *testing.T) {
	b := NewBehavior[int]()

	fired := false
	cancel := b.Once(func(int) bool { return true }, func(int) { fired = true })
	cancel()
	b.Set(1)

	assert.False(t, fired)
	cancel() // no-op
}

func TestBehavior_NextResolves(t *testing.T) {
	b := NewBehavior[int]()

	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Set(9)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := b.Next(ctx, func(v int) bool { return v != 0 })
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestBehavior_NextHonoursContext(t *testing.T) {
	b := NewBehavior[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Next(ctx, func(int) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.Len(), "cancelled wait must not leave a listener behind")
}
