package platforms

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/eshaffer321/inventory-sync-manager/internal/domain/platform"
	"github.com/eshaffer321/inventory-sync-manager/internal/infrastructure/config"
)

// simulatedClient accepts valid updates without calling a remote API. It
// enforces the same credential checks and request rate the real API would.
type simulatedClient struct {
	id          platform.ID
	limiter     *rate.Limiter
	credentials func() error
	logger      *slog.Logger
}

func (c *simulatedClient) Platform() platform.ID {
	return c.id
}

func (c *simulatedClient) Push(ctx context.Context, update Update) error {
	if err := c.credentials(); err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("pushed update",
		"sku", update.SKU,
		"operation", update.Operation,
		"inventory", update.Inventory,
		"price", update.Price)
	return nil
}

func (c *simulatedClient) Ping(ctx context.Context) error {
	if err := c.credentials(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// NewLojaIntegrada creates a Loja Integrada client. Both the API key and the
// application key are required.
func NewLojaIntegrada(cfg config.LojaIntegradaConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &simulatedClient{
		id:      platform.LojaIntegrada,
		limiter: newLimiter(cfg.RateLimit, cfg.Burst),
		credentials: func() error {
			if cfg.APIKey == "" || cfg.AppKey == "" {
				return fmt.Errorf("%w: loja integrada requires api_key and app_key", ErrMissingCredentials)
			}
			return nil
		},
		logger: logger.With("platform", platform.LojaIntegrada),
	}
}

// NewWooCommerce creates a WooCommerce client. The store URL must be an
// absolute http(s) URL.
func NewWooCommerce(cfg config.WooCommerceConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &simulatedClient{
		id:      platform.WooCommerce,
		limiter: newLimiter(cfg.RateLimit, cfg.Burst),
		credentials: func() error {
			if cfg.BaseURL == "" || cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
				return fmt.Errorf("%w: woocommerce requires base_url, consumer_key and consumer_secret", ErrMissingCredentials)
			}
			u, err := url.Parse(cfg.BaseURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: woocommerce base_url %q is not an http(s) URL", ErrMissingCredentials, cfg.BaseURL)
			}
			return nil
		},
		logger: logger.With("platform", platform.WooCommerce),
	}
}

// NewRegistry creates clients for every enabled platform.
func NewRegistry(cfg config.PlatformsConfig, logger *slog.Logger) Registry {
	r := Registry{}
	if cfg.LojaIntegrada.Enabled {
		r[platform.LojaIntegrada] = NewLojaIntegrada(cfg.LojaIntegrada, logger)
	}
	if cfg.WooCommerce.Enabled {
		r[platform.WooCommerce] = NewWooCommerce(cfg.WooCommerce, logger)
	}
	return r
}
