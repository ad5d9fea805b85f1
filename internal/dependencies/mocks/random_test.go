package mocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockRandomQueuedThenFallback(t *testing.T) {
	r := NewMockRandom()
	r.QueueString("AB12CD")

	assert.Equal(t, "AB12CD", r.String(6, "ABC"))

	first := r.String(6, "ABCDEFGHJK")
	second := r.String(6, "ABCDEFGHJK")
	assert.Len(t, first, 6)
	assert.NotEqual(t, first, second)
}

func TestMockRandomReset(t *testing.T) {
	r := NewMockRandom()
	r.QueueString("ONE")
	r.QueueIntn(3)
	r.Reset()

	assert.Equal(t, 0, r.Intn(10))
	assert.NotEqual(t, "ONE", r.String(3, "XYZ"))
}
