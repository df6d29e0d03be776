package cargotype

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/database"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// Repository handles cargo type persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new cargo type repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a cargo type by key or returns the existing row. An empty
// display name never overwrites a set one.
func (r *Repository) Upsert(ctx context.Context, cargo models.CargoType) (*models.CargoType, error) {
	ctx, span := tracing.StartSpan(ctx, "cargotype.Repository.Upsert")
	defer span.End()

	if cargo.ID == "" {
		cargo.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("cargo_types")
	sb.Cols("id", "key", "display_name", "created_at")
	sb.Values(cargo.ID, cargo.Key, cargo.DisplayName, time.Now().UTC())

	query, args := sb.Build()
	query += ` ON CONFLICT (key) DO UPDATE SET
		display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), cargo_types.display_name)
		RETURNING id, key, display_name, created_at`

	var saved models.CargoType
	if err := r.db.GetContext(ctx, &saved, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert cargo type")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert cargo type")
	}

	return &saved, nil
}

// List retrieves every cargo type.
func (r *Repository) List(ctx context.Context) ([]models.CargoType, error) {
	ctx, span := tracing.StartSpan(ctx, "cargotype.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "key", "display_name", "created_at")
	sb.From("cargo_types")
	sb.OrderBy("key")

	query, args := sb.Build()
	cargo := []models.CargoType{}
	if err := r.db.SelectContext(ctx, &cargo, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list cargo types")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cargo types")
	}

	return cargo, nil
}

// Count returns the number of cargo types.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "cargotype.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM cargo_types"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count cargo types")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count cargo types")
	}
	return count, nil
}
