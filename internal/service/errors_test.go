package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/scry-engine/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ServiceError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      NewServiceError("apply_grade", "failed to update card", errors.New("disk full")),
			expected: "apply_grade operation failed: failed to update card: disk full",
		},
		{
			name:     "without underlying error",
			err:      NewServiceError("fetch_due", "bad limit", nil),
			expected: "fetch_due operation failed: bad limit",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}

	t.Run("unwraps store errors", func(t *testing.T) {
		t.Parallel()
		err := NewServiceError("apply_grade", "failed to update card", store.ErrStoreTimeout)
		assert.ErrorIs(t, err, store.ErrStoreTimeout)
		assert.True(t, store.IsTransientError(err))

		var svcErr *ServiceError
		assert.True(t, errors.As(error(err), &svcErr))
		assert.Equal(t, "apply_grade", svcErr.Operation)
	})

	t.Run("sentinels are distinct", func(t *testing.T) {
		t.Parallel()
		all := []error{ErrCardNotFound, ErrCardNotOwned, ErrDuplicateCard, ErrCardInactive}
		for i, a := range all {
			for j, b := range all {
				assert.Equal(t, i == j, errors.Is(a, b))
			}
		}
	})
}
