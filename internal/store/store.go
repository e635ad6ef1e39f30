// Package store persists company records behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Clerks303/Scraping/internal/config"
	"github.com/Clerks303/Scraping/internal/model"
)

// Stats summarizes the dataset for the dashboard endpoint.
type Stats struct {
	Total        int            `json:"total"`
	AvgRevenue   float64        `json:"avg_revenue"`
	TotalRevenue float64        `json:"total_revenue"`
	AvgHeadcount float64        `json:"avg_headcount"`
	WithEmail    int            `json:"with_email"`
	WithPhone    int            `json:"with_phone"`
	ByStatus     map[string]int `json:"by_status"`
}

// Store defines the persistence interface for company records.
// Upsert is atomic per SIREN; callers serialize concurrent writers
// to the same key above this layer.
type Store interface {
	Get(ctx context.Context, siren string) (*model.CompanyRecord, error)
	Exists(ctx context.Context, siren string) (bool, error)
	Upsert(ctx context.Context, rec *model.CompanyRecord) error
	List(ctx context.Context, limit, offset int) ([]model.CompanyRecord, error)
	ListSirens(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*Stats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned by Get when no record matches the SIREN.
var ErrNotFound = eris.New("store: record not found")

// Open creates a Store from config, choosing the backend by driver name.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
