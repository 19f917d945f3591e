package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	var got []int
	l.Post(func() { got = append(got, 1) })
	l.Post(func() { got = append(got, 2) })
	l.Post(cancel)

	err := l.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1, 2}, got)
}

func TestAfterFuncStopped(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	fired := false
	timer := l.AfterFunc(10*time.Millisecond, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	l.AfterFunc(30*time.Millisecond, cancel)
	_ = l.Run(ctx)

	assert.False(t, fired)
}

func TestManualAdvance(t *testing.T) {
	m := NewManual()

	var got []string
	m.AfterFunc(2*time.Second, func() { got = append(got, "late") })
	m.AfterFunc(time.Second, func() { got = append(got, "early") })
	stopped := m.AfterFunc(time.Second, func() { got = append(got, "stopped") })

	require.True(t, stopped.Stop())
	m.Advance(500 * time.Millisecond)
	assert.Empty(t, got)

	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"early", "late"}, got)
	assert.Zero(t, m.Pending())
}
