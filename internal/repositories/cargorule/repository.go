package cargorule

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

// Repository handles cargo rule persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new cargo rule repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert records a cargo rule, idempotently.
func (r *Repository) Upsert(ctx context.Context, rule models.CompanyCargoRule) error {
	ctx, span := tracing.StartSpan(ctx, "cargorule.Repository.Upsert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("company_cargo_rules")
	sb.Cols("company_id", "cargo_type_id", "direction", "created_at")
	sb.Values(rule.CompanyID, rule.CargoTypeID, string(rule.Direction), time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (company_id, cargo_type_id, direction) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert cargo rule")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert cargo rule")
	}

	return nil
}

// List retrieves every cargo rule.
func (r *Repository) List(ctx context.Context) ([]models.CompanyCargoRule, error) {
	ctx, span := tracing.StartSpan(ctx, "cargorule.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("company_id", "cargo_type_id", "direction", "created_at")
	sb.From("company_cargo_rules")

	query, args := sb.Build()
	rules := []models.CompanyCargoRule{}
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list cargo rules")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cargo rules")
	}

	return rules, nil
}

// CountByCompany returns the number of rules a company owns.
func (r *Repository) CountByCompany(ctx context.Context, companyID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "cargorule.Repository.CountByCompany")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("company_cargo_rules")
	sb.Where(sb.Equal("company_id", companyID))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count cargo rules")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count cargo rules")
	}
	return count, nil
}

// Count returns the number of cargo rules.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "cargorule.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM company_cargo_rules"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count cargo rules")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count cargo rules")
	}
	return count, nil
}
