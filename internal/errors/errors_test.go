package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiError(t *testing.T) {
	t.Run("empty collection is nil", func(t *testing.T) {
		m := &MultiError{}
		m.Append(nil)
		assert.NoError(t, m.ErrorOrNil())
	})

	t.Run("single error keeps its message", func(t *testing.T) {
		m := &MultiError{}
		m.Append(fmt.Errorf("nats shutdown failed"))
		require.Error(t, m.ErrorOrNil())
		assert.Equal(t, "nats shutdown failed", m.Error())
	})

	t.Run("several errors are joined and unwrap", func(t *testing.T) {
		sentinel := errors.New("kv closed")
		m := &MultiError{}
		m.Append(fmt.Errorf("first"))
		m.Append(fmt.Errorf("second: %w", sentinel))

		err := m.ErrorOrNil()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 errors occurred")
		assert.Contains(t, err.Error(), "first; second: kv closed")
		assert.ErrorIs(t, err, sentinel)
	})
}

func TestRecover(t *testing.T) {
	err := Recover(func() error {
		panic("boom")
	})
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "boom", panicErr.Value)
	assert.NotEmpty(t, panicErr.StackTrace)

	plain := errors.New("plain")
	assert.Equal(t, plain, Recover(func() error { return plain }))
	assert.NoError(t, Recover(func() error { return nil }))
}

func TestTransientError(t *testing.T) {
	cause := errors.New("timed out")
	err := fmt.Errorf("stop: %w", NewTransientError("shell shutdown", cause))

	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsTransient(cause))
	assert.Equal(t, "shell shutdown: timed out", NewTransientError("shell shutdown", cause).Error())
}
