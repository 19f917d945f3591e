package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitOrder(t *testing.T) {
	var s Signal[int]
	var got []int

	s.Connect(func(v int) { got = append(got, v) })
	s.Connect(func(v int) { got = append(got, v*10) })
	s.Emit(2)

	assert.Equal(t, []int{2, 20}, got)
}

func TestDisconnectDuringEmit(t *testing.T) {
	var s Signal[struct{}]
	calls := 0

	var second HandlerID
	s.Connect(func(struct{}) {
		calls++
		s.Disconnect(second)
	})
	second = s.Connect(func(struct{}) { calls++ })

	s.Emit(struct{}{})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Len())
}

func TestSubscribeIdempotentDisconnect(t *testing.T) {
	var s Signal[string]
	off := s.Subscribe(func(string) {})

	off()
	off()

	assert.Zero(t, s.Len())
	assert.False(t, s.Disconnect(42))
}
