package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/velora/storefront/pkg/errors"
)

func TestResolveNotification(t *testing.T) {
	t.Run("present record is delivered", func(t *testing.T) {
		rec := &Record{Token: "tok-123", Email: "jo@example.com"}

		ev, deliver := resolveNotification(rec, nil)
		require.True(t, deliver)
		assert.Equal(t, rec, ev.Record)
	})

	t.Run("absent record is a removal", func(t *testing.T) {
		ev, deliver := resolveNotification(nil, apperrors.NotFound("session record", "storefront:session"))
		require.True(t, deliver)
		assert.Nil(t, ev.Record)
	})

	t.Run("transient read failure delivers nothing", func(t *testing.T) {
		// A Redis error between the notification and the read must not be
		// mistaken for a logout.
		_, deliver := resolveNotification(nil, errors.New("redis get session record: connection refused"))
		assert.False(t, deliver)
	})
}
