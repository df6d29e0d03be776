package companyalias

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

// Repository handles company alias persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new company alias repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert records an alias key for a company, taking over an existing alias
// row if the key was seen before.
func (r *Repository) Upsert(ctx context.Context, aliasKey, companyID, source string) error {
	ctx, span := tracing.StartSpan(ctx, "companyalias.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("company_aliases")
	sb.Cols("alias_key", "company_id", "source", "created_at", "updated_at")
	sb.Values(aliasKey, companyID, source, now, now)

	query, args := sb.Build()
	query += ` ON CONFLICT (alias_key) DO UPDATE SET
		company_id = EXCLUDED.company_id,
		source = EXCLUDED.source,
		updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert company alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert company alias")
	}

	return nil
}

// RepointAll moves every alias of one company to another, re-tagging the
// provenance of the moved rows.
func (r *Repository) RepointAll(ctx context.Context, fromCompanyID, toCompanyID, source string) error {
	ctx, span := tracing.StartSpan(ctx, "companyalias.Repository.RepointAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("company_aliases")
	sb.Set(
		sb.Assign("company_id", toCompanyID),
		sb.Assign("source", source),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("company_id", fromCompanyID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint company aliases")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint company aliases")
	}

	return nil
}

// ListByCompany retrieves the aliases pointing at a company.
func (r *Repository) ListByCompany(ctx context.Context, companyID string) ([]models.CompanyAlias, error) {
	ctx, span := tracing.StartSpan(ctx, "companyalias.Repository.ListByCompany")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("alias_key", "company_id", "source", "created_at", "updated_at")
	sb.From("company_aliases")
	sb.Where(sb.Equal("company_id", companyID))
	sb.OrderBy("alias_key")

	query, args := sb.Build()
	aliases := []models.CompanyAlias{}
	if err := r.db.SelectContext(ctx, &aliases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list company aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list company aliases")
	}

	return aliases, nil
}
