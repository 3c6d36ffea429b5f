package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pintuan-hub/publisher/internal/assets"
	"github.com/pintuan-hub/publisher/internal/codescan"
	"github.com/pintuan-hub/publisher/internal/draft"
	"github.com/pintuan-hub/publisher/internal/extraction"
	"github.com/pintuan-hub/publisher/internal/listings"
)

// NewExtractor builds the field extractor for the configured provider.
func (c *Config) NewExtractor() (*extraction.Service, error) {
	provider, model, err := extraction.NewProvider(c.ExtractionProvider)
	if err != nil {
		return nil, err
	}
	if c.ExtractionModel != "" {
		model = c.ExtractionModel
	}
	slog.Info("Extraction provider configured", "provider", c.ExtractionProvider, "model", model)

	return extraction.NewService(provider,
		extraction.WithModel(model),
		extraction.WithTimeout(c.RemoteTimeout),
		extraction.WithRateLimit(c.ExtractionRate),
	), nil
}

// NewListingsStore opens the configured listings backend. The returned func
// releases it.
func (c *Config) NewListingsStore(ctx context.Context) (listings.Store, func(), error) {
	switch c.ListingsBackend {
	case "memory":
		return listings.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := listings.NewSQLiteStore(c.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		store, err := listings.NewPostgresStore(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported listings backend: %s", c.ListingsBackend)
	}
}

// NewUploader builds the configured asset storage.
func (c *Config) NewUploader() (assets.Uploader, error) {
	switch c.AssetBackend {
	case "local":
		return assets.NewLocalUploader(c.UploadsDir, c.PublicBaseURL), nil
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase asset backend")
		}
		return assets.NewSupabaseUploader(c.SupabaseURL, c.SupabaseServiceRoleKey, c.StorageBucket), nil
	default:
		return nil, fmt.Errorf("unsupported asset backend: %s", c.AssetBackend)
	}
}

// NewPipeline wires every collaborator of the recognition pipeline.
func (c *Config) NewPipeline(ctx context.Context) (*draft.Pipeline, func(), error) {
	extractor, err := c.NewExtractor()
	if err != nil {
		return nil, nil, err
	}
	uploader, err := c.NewUploader()
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := c.NewListingsStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	p := draft.NewPipeline(draft.Config{
		Locator:   codescan.NewLocator(codescan.NewQRDecoder()),
		Extractor: extractor,
		Listings:  store,
		Assets:    uploader,
		Composer: draft.Composer{
			Platform:         c.DefaultPlatform,
			DefaultGroupSize: c.DefaultGroupSize,
		},
		Timeout: c.RemoteTimeout,
	})
	return p, closeStore, nil
}
