package maintenance

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/database"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// Repository handles store-wide maintenance operations
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new maintenance repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Clear wipes every imported table in one transaction, children before
// parents.
func (r *Repository) Clear(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "maintenance.Repository.Clear")
	defer span.End()

	ctxTx, tx, err := r.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctxTx)

	tables := []string{
		"company_cargo_rules",
		"city_companies",
		"company_aliases",
		"companies",
		"cargo_types",
		"cities",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctxTx, "DELETE FROM "+table); err != nil {
			r.logger.WithContext(ctxTx).WithError(err).WithField("table", table).Error("Failed to clear table")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear store")
		}
	}

	if err := tx.Commit(ctxTx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).Info("Store cleared")
	return nil
}
