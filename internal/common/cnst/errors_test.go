package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorConstants(t *testing.T) {
	t.Run("variant config errors", func(t *testing.T) {
		assert.Equal(t, "duplicate variant id", ErrDuplicateVariantID.Error())
		assert.Equal(t, "variant weight must be positive", ErrInvalidVariantWeight.Error())
	})

	t.Run("notifier errors", func(t *testing.T) {
		assert.Equal(t, "notifier cannot receive updates", ErrNotReceiver.Error())
		assert.Equal(t, "notifier cannot send updates", ErrNotSender.Error())
	})

	t.Run("errors are not nil", func(t *testing.T) {
		assert.NotNil(t, ErrDuplicateVariantID)
		assert.NotNil(t, ErrInvalidVariantWeight)
		assert.NotNil(t, ErrNotReceiver)
		assert.NotNil(t, ErrNotSender)
	})
}
