// Package provider selects and wires the inventory backend for the process.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/realty-pipeline-go/internal/config"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/database"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/mongostore"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/resilience"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/supabase"
	"github.com/boddenberg/realty-pipeline-go/internal/port"
)

// Factory builds the InventoryProvider named by INVENTORY_SOURCE.
type Factory struct {
	config *config.Config
	db     *gorm.DB
	logger *zap.Logger
}

func NewFactory(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Factory {
	return &Factory{config: cfg, db: db, logger: logger}
}

// ResolveSource maps a configured value onto a known backend. Empty or
// unknown values resolve to the relational database; unknown ones are
// logged so a typo does not go unnoticed.
func ResolveSource(source string, logger *zap.Logger) string {
	switch source {
	case config.InventoryDatabase, config.InventorySupabase, config.InventoryMongo:
		return source
	case "":
		return config.InventoryDatabase
	}
	logger.Warn("unknown inventory source, falling back",
		zap.String("configured", source),
		zap.String("using", config.InventoryDatabase),
	)
	return config.InventoryDatabase
}

// Build returns the selected provider and a release func for its
// connections. Missing connection settings for the selected backend are an
// error, never a silent fallback.
func (f *Factory) Build(ctx context.Context) (port.InventoryProvider, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch ResolveSource(f.config.InventorySource, f.logger) {
	case config.InventorySupabase:
		p, err := f.createSupabaseProvider()
		return p, noop, err
	case config.InventoryMongo:
		return f.createMongoProvider(ctx)
	default:
		if f.db == nil {
			return nil, noop, fmt.Errorf("database inventory: no database handle")
		}
		return database.NewPropertyProvider(f.db, f.logger), noop, nil
	}
}

func (f *Factory) createSupabaseProvider() (port.InventoryProvider, error) {
	if f.config.SupabaseURL == "" || f.config.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("supabase inventory: SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	client := supabase.NewClient(
		&http.Client{Timeout: f.config.HTTPTimeout},
		f.config.SupabaseURL,
		f.config.SupabaseAnonKey,
		f.config.SupabaseServiceKey,
		f.logger,
	)
	return supabase.NewInventoryProvider(client, resilience.Config{
		MaxRetries:     f.config.MaxRetries,
		InitialBackoff: f.config.InitialBackoff,
		MaxConcurrency: f.config.MaxConcurrency,
	}, f.logger), nil
}

func (f *Factory) createMongoProvider(ctx context.Context) (port.InventoryProvider, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if f.config.MongoURI == "" {
		return nil, noop, fmt.Errorf("mongo inventory: MONGO_URI is required")
	}
	client, err := mongostore.Connect(ctx, f.config.MongoURI)
	if err != nil {
		return nil, noop, err
	}
	p := mongostore.NewInventoryProvider(client.Database(f.config.MongoDatabase), f.logger)
	if err := p.EnsureIndexes(ctx); err != nil {
		f.logger.Warn("mongo index creation failed", zap.Error(err))
	}
	return p, client.Disconnect, nil
}
