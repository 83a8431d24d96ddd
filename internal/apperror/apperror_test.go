package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthenticated:    http.StatusUnauthorized,
		PermissionDenied:   http.StatusForbidden,
		NotFound:           http.StatusNotFound,
		FailedPrecondition: http.StatusPreconditionFailed,
		InvalidArgument:    http.StatusBadRequest,
		AlreadyExists:      http.StatusConflict,
		Internal:           http.StatusInternalServerError,
		Unknown:            http.StatusInternalServerError,
	}

	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), "kind %s", kind)
	}
}

func TestKindOf(t *testing.T) {
	err := New(NotFound, "business missing")
	assert.Equal(t, NotFound, KindOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, NotFound, KindOf(wrapped))

	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, PermissionDenied))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Internal, "dispatch push", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dispatch push")
	assert.Contains(t, err.Error(), "connection refused")
}
