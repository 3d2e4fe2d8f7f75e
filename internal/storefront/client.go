// Package storefront is the HTTP client for the storefront cart API. It owns
// the wire format and maps every failure into the cart error taxonomy.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
	"github.com/MeronDaniel/E-commerce-project/pkg/httpclient"
	"github.com/MeronDaniel/E-commerce-project/pkg/logger"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
	"github.com/MeronDaniel/E-commerce-project/pkg/tracing"
)

const maxResponseBody = 4 << 20

// Operation names used for spans, metrics and log records.
const (
	OpGetCart    = "get_cart"
	OpUpdate     = "update_quantity"
	OpRemove     = "remove_item"
	OpApplyPromo = "apply_promo"
	OpCount      = "count"
	OpAddItem    = "add_item"
	OpProducts   = "list_products"
)

// Client calls the storefront cart endpoints on behalf of the signed-in user.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	session Session
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewClient creates a client rooted at baseURL, e.g. http://localhost:5000/api.
func NewClient(baseURL string, hc *httpclient.CircuitBreakerClient, session Session, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		session: session,
		logger:  log,
		tracer:  tracing.Tracer("storefront"),
	}
}

// GetCart fetches the full cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var payload CartPayload
	if err := c.call(ctx, OpGetCart, http.MethodGet, "/cart", nil, &payload, "Failed to load cart"); err != nil {
		return nil, err
	}
	cart, err := payload.ToCart(logger.WithContext(ctx, c.logger))
	if err != nil {
		return nil, apperrors.Network("Received a malformed cart", err)
	}
	return cart, nil
}

// UpdateQuantity sets the quantity of a line already in the cart.
func (c *Client) UpdateQuantity(ctx context.Context, id domain.ProductID, quantity int) error {
	body := QuantityRequest{ProductID: int64(id), Quantity: quantity}
	return c.call(httpclient.WithIdempotent(ctx), OpUpdate, http.MethodPut, "/cart/update", body, nil, "Failed to update quantity")
}

// RemoveItem drops a line from the cart.
func (c *Client) RemoveItem(ctx context.Context, id domain.ProductID) error {
	body := RemoveRequest{ProductID: int64(id)}
	return c.call(httpclient.WithIdempotent(ctx), OpRemove, http.MethodDelete, "/cart/remove", body, nil, "Failed to remove item")
}

// ApplyPromo asks the storefront to validate code and returns the granted promo.
func (c *Client) ApplyPromo(ctx context.Context, code string) (domain.Promo, error) {
	var resp PromoResponse
	body := PromoRequest{PromoCode: code}
	if err := c.call(httpclient.WithIdempotent(ctx), OpApplyPromo, http.MethodPost, "/cart/apply-promo", body, &resp, "Failed to apply promo code"); err != nil {
		return domain.Promo{}, err
	}
	if resp.PromoCode == "" {
		resp.PromoCode = code
	}
	promo, err := domain.NewPromo(resp.PromoCode, resp.DiscountPercent)
	if err != nil {
		return domain.Promo{}, apperrors.Network("Received a malformed promo", err)
	}
	return promo, nil
}

// Count fetches the cart badge numbers.
func (c *Client) Count(ctx context.Context) (domain.Count, error) {
	var resp CountResponse
	if err := c.call(ctx, OpCount, http.MethodGet, "/cart/count", nil, &resp, "Failed to load cart count"); err != nil {
		return domain.Count{}, err
	}
	return domain.Count{Count: resp.Count, TotalItems: resp.TotalItems}, nil
}

// AddItem adds quantity units of a product. It is never retried.
func (c *Client) AddItem(ctx context.Context, id domain.ProductID, quantity int) error {
	body := QuantityRequest{ProductID: int64(id), Quantity: quantity}
	return c.call(ctx, OpAddItem, http.MethodPost, "/cart/add", body, nil, "Failed to add to cart")
}

// ListProducts fetches one page of the product listing. It does not need a
// signed-in session.
func (c *Client) ListProducts(ctx context.Context, p pagination.Params) (ProductPage, error) {
	var page ProductPage
	path := "/products?" + p.Query().Encode()
	token, _ := c.session.Token()
	if err := c.do(ctx, OpProducts, http.MethodGet, path, token, nil, &page, "Failed to load products"); err != nil {
		return ProductPage{}, err
	}
	return page, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, in, out any, failMsg string) error {
	token, ok := c.session.Token()
	if !ok {
		return apperrors.Unauthenticated("Please sign in to view your cart")
	}
	return c.do(ctx, op, method, path, token, in, out, failMsg)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any, failMsg string) (err error) {
	ctx, span := c.tracer.Start(ctx, "storefront."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", routeOf(path)),
		),
	)
	start := time.Now()
	defer func() {
		observe(op, err, time.Since(start))
		tracing.EndSpan(span, err)
	}()

	req, err := c.newRequest(ctx, method, path, token, in)
	if err != nil {
		return apperrors.Network(failMsg, err)
	}

	log := logger.WithContext(ctx, c.logger)
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		log.Debug("storefront call failed", slog.String("op", op), slog.String("error", err.Error()))
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Network("The request timed out", err)
		}
		return httpclient.ClassifyTransportError(err, failMsg)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := httpclient.ParseResponseError(resp)
		if token != "" && apperrors.KindOf(err) == apperrors.KindUnauthenticated {
			log.Info("storefront rejected the session token, signing out", slog.String("op", op))
			c.session.SignOut()
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return apperrors.Network(failMsg, fmt.Errorf("decode %s response: %w", op, err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, in any) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}

	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHeaders(ctx, req.Header)
	return req, nil
}

func routeOf(path string) string {
	route, _, _ := strings.Cut(path, "?")
	return route
}
