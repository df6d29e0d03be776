package company

import (
	"context"
	"database/sql"
	"errors"
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

// Repository handles company persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new company repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a company by key or updates the existing row. A company
// that has been marked authoritative never becomes unmapped again, and an
// empty display name never overwrites a set one.
func (r *Repository) Upsert(ctx context.Context, company models.Company) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Upsert")
	defer span.End()

	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("companies")
	sb.Cols("id", "key", "display_name", "is_unmapped", "created_at", "updated_at")
	sb.Values(company.ID, company.Key, company.DisplayName, company.IsUnmapped, now, now)

	query, args := sb.Build()
	query += ` ON CONFLICT (key) DO UPDATE SET
		is_unmapped = companies.is_unmapped AND EXCLUDED.is_unmapped,
		display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), companies.display_name),
		updated_at = EXCLUDED.updated_at
		RETURNING id, key, display_name, is_unmapped, created_at, updated_at`

	var saved models.Company
	if err := r.db.GetContext(ctx, &saved, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to upsert company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert company")
	}

	return &saved, nil
}

// GetByID retrieves a company by id, nil if absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.GetByID")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("id", id))
	return r.getOne(ctx, sb)
}

// GetByKey retrieves a company by its unique key, nil if absent.
func (r *Repository) GetByKey(ctx context.Context, key string) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.GetByKey")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("key", key))
	return r.getOne(ctx, sb)
}

// List retrieves every company.
func (r *Repository) List(ctx context.Context) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.List")
	defer span.End()

	return r.selectMany(ctx, r.selectBuilder())
}

// ListMapped retrieves the authoritative companies.
func (r *Repository) ListMapped(ctx context.Context) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListMapped")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("is_unmapped", false))
	return r.selectMany(ctx, sb)
}

// ListUnmapped retrieves the companies still waiting for reconciliation.
func (r *Repository) ListUnmapped(ctx context.Context) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListUnmapped")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("is_unmapped", true))
	return r.selectMany(ctx, sb)
}

// SetMapped marks a company authoritative.
func (r *Repository) SetMapped(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.SetMapped")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("companies")
	sb.Set(
		sb.Assign("is_unmapped", false),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark company mapped")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark company mapped")
	}

	return nil
}

// Delete removes a company row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("companies")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete company")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete company")
	}

	return nil
}

// Count returns the number of companies.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM companies"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count companies")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count companies")
	}
	return count, nil
}

// CountUnmapped returns the number of companies still unmapped.
func (r *Repository) CountUnmapped(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.CountUnmapped")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM companies WHERE is_unmapped"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count unmapped companies")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count unmapped companies")
	}
	return count, nil
}

func (r *Repository) selectBuilder() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "key", "display_name", "is_unmapped", "created_at", "updated_at")
	sb.From("companies")
	return sb
}

func (r *Repository) getOne(ctx context.Context, sb *sqlbuilder.SelectBuilder) (*models.Company, error) {
	query, args := sb.Build()
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}
	return &company, nil
}

func (r *Repository) selectMany(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.Company, error) {
	sb.OrderBy("key")
	query, args := sb.Build()
	companies := []models.Company{}
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}
	return companies, nil
}
