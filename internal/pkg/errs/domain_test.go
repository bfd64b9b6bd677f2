//go:build unit

package errs_test

import (
	"net/http"
	"testing"

	"checkin-core/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorConstructors(t *testing.T) {
	cases := []struct {
		name   string
		err    *errs.DomainError
		kind   errs.Kind
		status int
	}{
		{"validation", errs.Validation("BAD_INPUT", "bad input"), errs.KindValidation, http.StatusBadRequest},
		{"not found", errs.NotFound("MISSING", "missing"), errs.KindNotFound, http.StatusNotFound},
		{"conflict", errs.Conflict("HELD", "held"), errs.KindConflict, http.StatusConflict},
		{"unauthorized", errs.Unauthorized("NO_TOKEN", "no token"), errs.KindAuth, http.StatusUnauthorized},
		{"forbidden", errs.Forbidden("BANNED", "banned"), errs.KindAuth, http.StatusForbidden},
		{"invariant", errs.Invariant("POSTCONDITION", "postcondition"), errs.KindInvariant, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind())
			assert.Equal(t, tc.status, tc.err.Status())
		})
	}
}

func TestDomainErrorIdentity(t *testing.T) {
	base := errs.Conflict("RESOURCE_HELD", "resource is held")

	t.Run("WithDetail preserves sentinel identity", func(t *testing.T) {
		detailed := base.WithDetail(map[string]any{"resourceId": "r-1"})
		assert.ErrorIs(t, detailed, base)
		assert.NotNil(t, detailed.Detail())
		assert.Nil(t, base.Detail())
	})

	t.Run("WithCause preserves identity and unwraps", func(t *testing.T) {
		cause := errs.New("row locked")
		wrapped := base.WithCause(cause)
		assert.ErrorIs(t, wrapped, base)
		assert.ErrorIs(t, wrapped, cause)
	})

	t.Run("different codes are distinct", func(t *testing.T) {
		other := errs.Conflict("RESOURCE_UNAVAILABLE", "not clean")
		assert.NotErrorIs(t, other, base)
	})
}

func TestAsDomain(t *testing.T) {
	t.Run("extracts through wrapping", func(t *testing.T) {
		inner := errs.NotFound("NO_ACTIVE_SESSION", "lane idle")
		wrapped := errs.Wrap(inner, "resolving session")

		de, ok := errs.AsDomain(wrapped)
		require.True(t, ok)
		assert.Equal(t, "NO_ACTIVE_SESSION", de.Code())
	})

	t.Run("plain errors are not domain errors", func(t *testing.T) {
		_, ok := errs.AsDomain(errs.New("boom"))
		assert.False(t, ok)
	})
}
