package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("confirm: %w", E(Conflict, "already confirmed today"))
	assert.Equal(t, Conflict, KindOf(wrapped))
	assert.Equal(t, Unexpected, KindOf(errors.New("boom")))
	assert.True(t, errors.Is(wrapped, E(Conflict, "")))
	assert.False(t, errors.Is(wrapped, E(NotFound, "")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized:       http.StatusUnauthorized,
		InvalidInput:       http.StatusBadRequest,
		PreconditionFailed: http.StatusBadRequest,
		NotFound:           http.StatusNotFound,
		Conflict:           http.StatusConflict,
		Unexpected:         http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Unexpected, "could not load bin", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
