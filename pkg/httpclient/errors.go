package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
)

const maxErrorBody = 1 << 20

// CodeInsufficientStock is the error code the storefront uses when a requested
// quantity exceeds the product's current stock.
const CodeInsufficientStock = "insufficient_stock"

// ErrorBody is the storefront's error payload: {"error": "...", "code": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ParseResponseError reads the body of a non-2xx response and classifies it
// into the cart failure taxonomy. The remote's message is preserved verbatim.
// The body is consumed and closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Network(
			fmt.Sprintf("storefront returned status %d", resp.StatusCode),
			fmt.Errorf("read error body: %w", err),
		)
	}

	var body ErrorBody
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body = ErrorBody{Error: http.StatusText(resp.StatusCode)}
	}
	return ClassifyStatus(resp.StatusCode, body.Code, body.Error)
}

// ClassifyStatus maps an HTTP status and storefront error code to the cart
// failure taxonomy.
func ClassifyStatus(status int, code, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.Unauthenticated(message)
	case status == http.StatusConflict, code == CodeInsufficientStock:
		return apperrors.StaleStock(message)
	case IsClientError(status):
		return apperrors.ValidationRejected(message)
	default:
		return apperrors.Network(message, fmt.Errorf("storefront status %d", status))
	}
}

// ClassifyTransportError maps an error from Do into the cart failure taxonomy.
// Errors that already carry a taxonomy kind pass through unchanged.
func ClassifyTransportError(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		var body ErrorBody
		if json.Unmarshal(serverErr.Body, &body) == nil && body.Error != "" {
			return apperrors.Network(body.Error, err)
		}
	}
	return apperrors.Network(message, err)
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
