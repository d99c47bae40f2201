package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "unauthenticated", err: Unauthenticated(), sentinel: ErrUnauthenticated},
		{name: "not participant", err: NotParticipant(), sentinel: ErrNotParticipant},
		{name: "validation", err: ValidationFailed("text", "text required"), sentinel: ErrValidation},
		{name: "not found", err: NotFound("conversation"), sentinel: ErrNotFound},
		{name: "conflict", err: Conflict("duplicate clientId"), sentinel: ErrConflict},
		{name: "store", err: Store(errors.New("connection refused")), sentinel: ErrStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestStoreHidesCauseFromMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Store(cause)

	assert.Equal(t, "store unavailable", err.Error())
	// The cause stays reachable for logging.
	assert.Contains(t, err.Err.Error(), "connection refused")
}

func TestValidationFieldIsKept(t *testing.T) {
	err := ValidationFailed("clientId", "clientId too short")
	assert.Equal(t, "clientId", err.Field)
	assert.Equal(t, "clientId too short", err.Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "unauthenticated", Kind(Unauthenticated()))
	assert.Equal(t, "not_allowed", Kind(NotParticipant()))
	assert.Equal(t, "validation", Kind(ValidationFailed("x", "y")))
	assert.Equal(t, "not_found", Kind(NotFound("user")))
	assert.Equal(t, "conflict", Kind(Conflict("dup")))
	assert.Equal(t, "store", Kind(Store(errors.New("boom"))))
	assert.Equal(t, "store", Kind(errors.New("anything else")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Status(Unauthenticated()))
	assert.Equal(t, http.StatusForbidden, Status(NotParticipant()))
	assert.Equal(t, http.StatusBadRequest, Status(ValidationFailed("x", "y")))
	assert.Equal(t, http.StatusNotFound, Status(NotFound("user")))
	assert.Equal(t, http.StatusConflict, Status(Conflict("dup")))
	assert.Equal(t, http.StatusInternalServerError, Status(Store(errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("anything else")))
}

// Wrapped errors keep their class through fmt-style wrapping.
func TestWrappedErrorsKeepClass(t *testing.T) {
	err := NotFound("conversation")
	wrapped := errors.Join(errors.New("loading history"), err)

	require.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, Status(wrapped))
	assert.Equal(t, "not_found", Kind(wrapped))
}
