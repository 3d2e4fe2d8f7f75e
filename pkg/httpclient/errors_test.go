package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apperrors.Kind
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Unauthorized"}`, apperrors.KindUnauthenticated, "Unauthorized"},
		{"conflict", http.StatusConflict, `{"error":"Only 2 in stock","code":"insufficient_stock"}`, apperrors.KindStaleStock, "Only 2 in stock"},
		{"insufficient stock code on 400", http.StatusBadRequest, `{"error":"Only 1 in stock","code":"insufficient_stock"}`, apperrors.KindStaleStock, "Only 1 in stock"},
		{"invalid promo", http.StatusBadRequest, `{"error":"Invalid promo code"}`, apperrors.KindValidationRejected, "Invalid promo code"},
		{"not found", http.StatusNotFound, `{"error":"Item not in cart"}`, apperrors.KindValidationRejected, "Item not in cart"},
		{"unstructured 4xx", http.StatusBadRequest, `oops`, apperrors.KindValidationRejected, "Bad Request"},
		{"server error", http.StatusServiceUnavailable, `{"error":"maintenance"}`, apperrors.KindNetwork, "maintenance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(newResponse(tt.status, tt.body))
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Equal(t, tt.message, apperrors.Message(err))
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	t.Run("server error body message", func(t *testing.T) {
		err := ClassifyTransportError(&ServerError{StatusCode: 500, Body: []byte(`{"error":"Failed to remove item"}`)}, "remove item")
		assert.Equal(t, apperrors.KindNetwork, apperrors.KindOf(err))
		assert.Equal(t, "Failed to remove item", apperrors.Message(err))
	})

	t.Run("plain transport error", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := ClassifyTransportError(cause, "load cart")
		assert.True(t, errors.Is(err, apperrors.ErrNetwork))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, "load cart", apperrors.Message(err))
	})

	t.Run("taxonomy errors pass through", func(t *testing.T) {
		in := apperrors.StaleStock("Only 3 in stock")
		assert.Same(t, in, ClassifyTransportError(in, "ignored"))
	})
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(500))
	assert.False(t, IsClientError(200))
}
