package rotator_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailpace/pkg/rotator"
)

func TestNewPool(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty pool", func(t *testing.T) {
		t.Parallel()

		p, err := rotator.NewPool(rotator.Random)
		require.ErrorIs(t, err, rotator.ErrEmptyPool)
		require.Nil(t, p)
	})

	t.Run("copies input", func(t *testing.T) {
		t.Parallel()

		items := []string{"a", "b"}
		p, err := rotator.NewPool(rotator.Cycle, items...)
		require.NoError(t, err)

		items[0] = "changed"
		assert.Equal(t, []string{"a", "b"}, p.Items())
	})

	t.Run("must pool panics on empty", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() { rotator.MustPool(rotator.Random) })
	})
}

func TestPool_Pick(t *testing.T) {
	t.Parallel()

	t.Run("random stays within pool", func(t *testing.T) {
		t.Parallel()

		p := rotator.MustPool(rotator.Random, rotator.DefaultSubjects...)
		for range 200 {
			assert.Contains(t, rotator.DefaultSubjects, p.Pick())
		}
	})

	t.Run("cycle wraps around", func(t *testing.T) {
		t.Parallel()

		p := rotator.MustPool(rotator.Cycle, "one", "two", "three")
		got := make([]string, 0, 7)
		for range 7 {
			got = append(got, p.Pick())
		}
		assert.Equal(t, []string{"one", "two", "three", "one", "two", "three", "one"}, got)
	})

	t.Run("cycle is safe for concurrent use", func(t *testing.T) {
		t.Parallel()

		p := rotator.MustPool(rotator.Cycle, "x", "y")
		var (
			mu     sync.Mutex
			counts = map[string]int{}
			wg     sync.WaitGroup
		)
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v := p.Pick()
				mu.Lock()
				counts[v]++
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counts["x"])
		assert.Equal(t, 50, counts["y"])
	})
}

func TestRotator_Next(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		r := rotator.New()
		c := r.Next()
		assert.Contains(t, rotator.DefaultSubjects, c.Subject)
		assert.Contains(t, rotator.DefaultGreetings, c.Greeting)
	})

	t.Run("custom pools", func(t *testing.T) {
		t.Parallel()

		r := rotator.New(
			rotator.WithSubjects(rotator.MustPool(rotator.Cycle, "S1", "S2")),
			rotator.WithGreetings(rotator.MustPool(rotator.Cycle, "G1")),
		)
		assert.Equal(t, rotator.Content{Subject: "S1", Greeting: "G1"}, r.Next())
		assert.Equal(t, rotator.Content{Subject: "S2", Greeting: "G1"}, r.Next())
		assert.Equal(t, "S1", r.Subject())
		assert.Equal(t, "G1", r.Greeting())
	})
}
