package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeronDaniel/E-commerce-project/internal/config"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	"github.com/MeronDaniel/E-commerce-project/internal/viewmodel"
	"github.com/MeronDaniel/E-commerce-project/pkg/httpclient"
	"github.com/MeronDaniel/E-commerce-project/pkg/tracing"
)

// CartView is the client side: a view model backed by the storefront API.
type CartView struct {
	ViewModel *viewmodel.ViewModel
	Session   *storefront.MemorySession
	Store     *storefront.Client

	shutdownTracer func(context.Context) error
}

// NewCartView builds the storefront client stack and a view model on top of it.
func NewCartView(ctx context.Context, cfg *config.CartView, logger *slog.Logger) (*CartView, error) {
	tcfg := tracing.DefaultConfig("cartview")
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.Tracing.Enabled
	tcfg.OTLPEndpoint = cfg.Tracing.Endpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	hcfg := httpclient.DefaultConfig()
	hcfg.MaxRetries = cfg.MaxRetries
	hcfg.Timeout = cfg.RequestTimeout

	bcfg := httpclient.DefaultCircuitBreakerConfig("storefront")
	bcfg.FailureRatio = cfg.Breaker.FailureRatio
	bcfg.MinRequests = cfg.Breaker.MinRequests
	bcfg.Timeout = cfg.Breaker.OpenTimeout

	hc := httpclient.NewCircuitBreakerClient(httpclient.New(hcfg), bcfg, logger)

	session := storefront.NewMemorySession(cfg.AccessToken)

	client := storefront.NewClient(cfg.APIURL, hc, session, logger)
	vm := viewmodel.New(client, session, viewmodel.Config{
		Pricing:        cfg.Pricing.Domain(),
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	return &CartView{ViewModel: vm, Session: session, Store: client, shutdownTracer: shutdownTracer}, nil
}

// Close tears down the view model and flushes traces.
func (c *CartView) Close(ctx context.Context) error {
	c.ViewModel.Close()
	return c.shutdownTracer(ctx)
}
