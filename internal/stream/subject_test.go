package stream

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject_DeliversInSubscriptionOrder(t *testing.T) {
	s := NewSubject[int]()

	var got []string
	s.Subscribe(func(v int) { got = append(got, "a") })
	s.Subscribe(func(v int) { got = append(got, "b") })

	s.Emit(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSubject_NoReplayForLateSubscribers(t *testing.T) {
	s := NewSubject[int]()
	s.Emit(1)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })
	s.Emit(2)

	assert.Equal(t, []int{2}, got)
}

func TestSubject_ReleaseStopsDelivery(t *testing.T) {
	s := NewSubject[int]()

	var got []int
	release := s.Subscribe(func(v int) { got = append(got, v) })
	s.Emit(1)
	release()
	release() // idempotent
	s.Emit(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 0, s.Len())
}

func TestSubject_ReleaseDuringDeliverySuppressesLaterHandlers(t *testing.T) {
	s := NewSubject[int]()

	var second func()
	var got []string
	s.Subscribe(func(v int) {
		got = append(got, "first")
		second()
	})
	second = s.Subscribe(func(v int) { got = append(got, "second") })

	s.Emit(1)
	assert.Equal(t, []string{"first"}, got)
}

func TestWhere_FiltersValues(t *testing.T) {
	s := NewSubject[int]()

	var got []int
	s.Subscribe(Where(func(v int) bool { return v%2 == 0 }, func(v int) {
		got = append(got, v)
	}))

	for i := 1; i <= 6; i++ {
		s.Emit(i)
	}
	assert.Equal(t, []int{2, 4, 6}, got)
}

func TestSubject_ConcurrentEmitIsSerialized(t *testing.T) {
	s := NewSubject[int]()

	var mu sync.Mutex
	inside := 0
	maxInside := 0
	count := 0
	s.Subscribe(func(v int) {
		mu.Lock()
		inside++
		if inside > maxInside {
			maxInside = inside
		}
		count++
		mu.Unlock()

		mu.Lock()
		inside--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Emit(v)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 50, count)
	assert.Equal(t, 1, maxInside)
}
