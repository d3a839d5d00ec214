package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRecipients(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"commas and newlines", "a@x.io, b@x.io\nc@x.io", []string{"a@x.io", "b@x.io", "c@x.io"}},
		{"empties dropped", "\n\n a@x.io ,,\n , b@x.io\n", []string{"a@x.io", "b@x.io"}},
		{"duplicates kept", "a@x.io,a@x.io", []string{"a@x.io", "a@x.io"}},
		{"crlf trimmed", "a@x.io\r\nb@x.io", []string{"a@x.io", "b@x.io"}},
		{"nothing", " , \n", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitRecipients(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, SplitRecipients(strings.Join(got, "\n")))
		})
	}
}

func TestPacer(t *testing.T) {
	t.Parallel()

	t.Run("invalid ranges", func(t *testing.T) {
		t.Parallel()
		_, err := NewPacer(-time.Second, time.Second)
		require.ErrorIs(t, err, ErrInvalidPacing)
		_, err = NewPacer(2*time.Second, time.Second)
		require.ErrorIs(t, err, ErrInvalidPacing)
	})

	t.Run("delay stays within bounds", func(t *testing.T) {
		t.Parallel()
		p, err := NewPacer(60*time.Second, 180*time.Second)
		require.NoError(t, err)

		p.draw = func(int64) int64 { return 0 }
		assert.Equal(t, 60*time.Second, p.Delay())

		p.draw = func(n int64) int64 { return n - 1 }
		assert.Equal(t, 180*time.Second, p.Delay())

		p2, _ := NewPacer(60*time.Second, 180*time.Second)
		for range 1000 {
			d := p2.Delay()
			assert.GreaterOrEqual(t, d, 60*time.Second)
			assert.LessOrEqual(t, d, 180*time.Second)
		}
	})

	t.Run("fixed delay", func(t *testing.T) {
		t.Parallel()
		p, err := NewPacer(time.Second, time.Second)
		require.NoError(t, err)
		assert.Equal(t, time.Second, p.Delay())
	})

	t.Run("wait honours cancellation", func(t *testing.T) {
		t.Parallel()
		p, err := NewPacer(time.Hour, time.Hour)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
	})

	t.Run("zero range returns at once", func(t *testing.T) {
		t.Parallel()
		p, err := NewPacer(0, 0)
		require.NoError(t, err)
		require.NoError(t, p.Wait(context.Background()))
	})
}

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	k := newKeyedMutex()

	unlock, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)

	_, ok := k.TryLock("a")
	assert.False(t, ok)

	other, ok := k.TryLock("b")
	require.True(t, ok)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // idempotent
	assert.Zero(t, k.len())

	again, ok := k.TryLock("a")
	require.True(t, ok)
	again()
	assert.Zero(t, k.len())
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSync, m)

	m, err = ParseMode(" ASYNC ")
	require.NoError(t, err)
	assert.Equal(t, ModeAsync, m)

	_, err = ParseMode("batch")
	require.ErrorIs(t, err, ErrUnknownMode)
}
