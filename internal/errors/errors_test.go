package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	decorated := ErrProductNotFound.WithDetails("P123")

	assert.Equal(t, "P123", decorated.Details)
	assert.Empty(t, ErrProductNotFound.Details)
	assert.True(t, stderrors.Is(decorated, ErrProductNotFound))
}

func TestIsMatchesOnCode(t *testing.T) {
	wrapped := fmt.Errorf("placing order: %w", ErrNotPurchasable)

	assert.True(t, stderrors.Is(wrapped, ErrNotPurchasable))
	assert.False(t, stderrors.Is(wrapped, ErrAlreadyOrdered))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrProductNotFound, http.StatusNotFound},
		{ErrNotAuthorized, http.StatusForbidden},
		{ErrInvalidToken, http.StatusUnauthorized},
		{ErrNotPurchasable, http.StatusUnprocessableEntity},
		{ErrAlreadyOrdered, http.StatusConflict},
		{ErrConcurrentModification, http.StatusConflict},
		{ErrSelfPurchase, http.StatusBadRequest},
		{ErrInvalidPagination, http.StatusBadRequest},
		{NewAppError(InternalError, "boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	appErr := From(fmt.Errorf("wrap: %w", ErrInvalidTxState))
	require.NotNil(t, appErr)
	assert.Equal(t, InvalidTxState, appErr.Code)

	internal := From(stderrors.New("connection reset"))
	assert.Equal(t, InternalError, internal.Code)
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, "connection reset", internal.Details)
}
