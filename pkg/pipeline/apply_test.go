package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecApplier(t *testing.T) {
	t.Parallel()

	t.Run("successful pipeline", func(t *testing.T) {
		t.Parallel()
		a := NewExecApplier([]string{"true"}, time.Minute)
		require.NoError(t, a.Apply(context.Background()))
	})

	t.Run("failing pipeline surfaces the error", func(t *testing.T) {
		t.Parallel()
		a := NewExecApplier([]string{"false"}, time.Minute)
		err := a.Apply(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("timeout is reported distinctly", func(t *testing.T) {
		t.Parallel()
		a := NewExecApplier([]string{"sleep", "5"}, 50*time.Millisecond)
		err := a.Apply(context.Background())
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("empty command falls back to the default", func(t *testing.T) {
		t.Parallel()
		a := NewExecApplier(nil, time.Minute)
		assert.Equal(t, DefaultApplyCommand, a.command)
	})
}
