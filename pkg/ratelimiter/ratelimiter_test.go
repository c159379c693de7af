package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Limit(t *testing.T) {
	limiter, err := New(10*time.Second, 5)
	assert.Nil(t, err)
	for i := 0; i < 5; i++ {
		assert.False(t, limiter.Limit())
	}
	assert.True(t, limiter.Limit())
}

func TestNewWithQuantum(t *testing.T) {
	limiter, err := NewWithQuantum(50*time.Millisecond, 10000, 500)
	assert.Nil(t, err)
	assert.False(t, limiter.Limit())

	_, err = NewWithQuantum(0, 10000, 500)
	assert.NotNil(t, err)

	_, err = NewWithQuantum(50*time.Millisecond, -1, 500)
	assert.NotNil(t, err)

	_, err = NewWithQuantum(50*time.Millisecond, 10000, -1)
	assert.NotNil(t, err)
}
