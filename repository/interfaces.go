// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/wbtools/tariffs-keeper/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// TariffRepository defines operations for tariff records
type TariffRepository interface {
	Repository[models.Tariff, models.TariffFilter]

	// UpsertBatch inserts records or, on a (date, warehouse_name,
	// box_type) conflict, merges the tariff fields into the existing
	// row. Safe to repeat with the same batch.
	UpsertBatch(ctx context.Context, tariffs []*models.Tariff) error

	// ByDate returns all records for a calendar day, coefficient ascending.
	ByDate(ctx context.Context, date time.Time) ([]*models.Tariff, error)

	// Latest returns all records for the most recent stored date,
	// coefficient ascending. An empty store yields an empty slice.
	Latest(ctx context.Context) ([]*models.Tariff, error)

	// AllDates returns every distinct stored date, strictly descending.
	AllDates(ctx context.Context) ([]time.Time, error)

	// DeleteOlderThan removes records dated strictly before
	// (today - days) and reports how many rows went away.
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}
