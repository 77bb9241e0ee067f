package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionLimiter(t *testing.T) {
	l := NewDecisionLimiter(2)
	assert.Equal(t, 2, l.Remaining())

	assert.NoError(t, l.Increment())
	assert.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	assert.True(t, errors.Is(err, ErrLimitExceeded))
	assert.Equal(t, 3, l.Count())
	assert.Equal(t, 0, l.Remaining())

	l.Reset()
	assert.Equal(t, 0, l.Count())
	assert.NoError(t, l.Increment())
}

func TestDecisionLimiter_Unlimited(t *testing.T) {
	l := NewDecisionLimiter(0)
	for i := 0; i < 100; i++ {
		assert.NoError(t, l.Increment())
	}
	assert.Equal(t, -1, l.Remaining())
}
