package citycompany

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/database"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// Repository handles city-company link persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new city-company link repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert records a city-company link, idempotently. An existing link keeps
// its original provenance.
func (r *Repository) Upsert(ctx context.Context, link models.CityCompany) error {
	ctx, span := tracing.StartSpan(ctx, "citycompany.Repository.Upsert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("city_companies")
	sb.Cols("city_id", "company_id", "source", "created_at")
	sb.Values(link.CityID, link.CompanyID, link.Source, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (city_id, company_id) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert city-company link")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert city-company link")
	}

	return nil
}

// List retrieves every city-company link.
func (r *Repository) List(ctx context.Context) ([]models.CityCompany, error) {
	ctx, span := tracing.StartSpan(ctx, "citycompany.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("city_id", "company_id", "source", "created_at")
	sb.From("city_companies")

	query, args := sb.Build()
	links := []models.CityCompany{}
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list city-company links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list city-company links")
	}

	return links, nil
}

// MoveCompanyLinks re-links every city link of one company to another. Links
// to a city the target already covers are dropped rather than duplicated;
// the source's rows are removed either way.
func (r *Repository) MoveCompanyLinks(ctx context.Context, fromCompanyID, toCompanyID string) error {
	ctx, span := tracing.StartSpan(ctx, "citycompany.Repository.MoveCompanyLinks")
	defer span.End()

	moveQuery := `UPDATE city_companies SET company_id = $1
		WHERE company_id = $2
		AND city_id NOT IN (SELECT city_id FROM city_companies WHERE company_id = $1)`
	if _, err := r.db.ExecContext(ctx, moveQuery, toCompanyID, fromCompanyID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to move city-company links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to move city-company links")
	}

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("city_companies")
	sb.Where(sb.Equal("company_id", fromCompanyID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to drop source city-company links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to drop source city-company links")
	}

	return nil
}

// Count returns the number of city-company links.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "citycompany.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM city_companies"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count city-company links")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count city-company links")
	}
	return count, nil
}
