package city

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

// Repository handles city persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new city repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a city or refreshes the coordinates of the existing row.
// Name uniqueness is case-insensitive.
func (r *Repository) Upsert(ctx context.Context, city models.City) (*models.City, error) {
	ctx, span := tracing.StartSpan(ctx, "city.Repository.Upsert")
	defer span.End()

	if city.ID == "" {
		city.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("cities")
	sb.Cols("id", "name", "lat", "lon", "created_at")
	sb.Values(city.ID, city.Name, city.Lat, city.Lon, time.Now().UTC())

	query, args := sb.Build()
	query += ` ON CONFLICT (lower(name)) DO UPDATE SET
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon
		RETURNING id, name, lat, lon, created_at`

	var saved models.City
	if err := r.db.GetContext(ctx, &saved, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert city")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert city")
	}

	return &saved, nil
}

// List retrieves every city.
func (r *Repository) List(ctx context.Context) ([]models.City, error) {
	ctx, span := tracing.StartSpan(ctx, "city.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "lat", "lon", "created_at")
	sb.From("cities")
	sb.OrderBy("name")

	query, args := sb.Build()
	cities := []models.City{}
	if err := r.db.SelectContext(ctx, &cities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list cities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cities")
	}

	return cities, nil
}

// Count returns the number of cities.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "city.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM cities"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count cities")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count cities")
	}
	return count, nil
}
