package reconcile

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/database"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// CompanyStore is the company persistence the service needs.
type CompanyStore interface {
	GetByID(ctx context.Context, id string) (*models.Company, error)
	GetByKey(ctx context.Context, key string) (*models.Company, error)
	ListMapped(ctx context.Context) ([]models.Company, error)
	ListUnmapped(ctx context.Context) ([]models.Company, error)
	SetMapped(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AliasStore re-points and records company aliases.
type AliasStore interface {
	Upsert(ctx context.Context, aliasKey, companyID, source string) error
	RepointAll(ctx context.Context, fromCompanyID, toCompanyID, source string) error
}

// LinkStore moves city-company links between companies.
type LinkStore interface {
	// MoveCompanyLinks re-links every city link of the source company to the
	// target, dropping links the target already has, and removes the source
	// rows.
	MoveCompanyLinks(ctx context.Context, fromCompanyID, toCompanyID string) error
}

// RuleStore exposes the cargo rule ownership check the merge needs.
type RuleStore interface {
	CountByCompany(ctx context.Context, companyID string) (int, error)
}

// TxBeginner starts a context-carried transaction. Satisfied by database.DB.
type TxBeginner interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// MergeEventSink receives merge notifications. May be nil.
type MergeEventSink interface {
	CompanyMerged(ctx context.Context, decision models.MergeDecision, provenance string)
}

// Service executes merge decisions against the store and serves the manual
// mapping operations.
type Service struct {
	logger    ectologger.Logger
	db        TxBeginner
	engine    *Engine
	companies CompanyStore
	aliases   AliasStore
	links     LinkStore
	rules     RuleStore
	events    MergeEventSink
}

// NewService creates a reconciliation service. events may be nil.
func NewService(
	logger ectologger.Logger,
	db TxBeginner,
	engine *Engine,
	companies CompanyStore,
	aliases AliasStore,
	links LinkStore,
	rules RuleStore,
	events MergeEventSink,
) *Service {
	return &Service{
		logger:    logger,
		db:        db,
		engine:    engine,
		companies: companies,
		aliases:   aliases,
		links:     links,
		rules:     rules,
		events:    events,
	}
}

// Run reconciles every unmapped company against the mapped set and executes
// the accepted merges. Returns the executed decisions.
func (s *Service) Run(ctx context.Context) ([]models.MergeDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.Run")
	defer span.End()

	log := s.logger.WithContext(ctx)

	mapped, err := s.companies.ListMapped(ctx)
	if err != nil {
		return nil, err
	}
	unmapped, err := s.companies.ListUnmapped(ctx)
	if err != nil {
		return nil, err
	}

	decisions := s.engine.Reconcile(mapped, unmapped)
	log.WithFields(map[string]any{
		"unmapped_count": len(unmapped),
		"merge_count":    len(decisions),
	}).Info("Reconciliation plan computed")

	for _, d := range decisions {
		if err := s.MergeInto(ctx, d.SourceID, d.TargetID, models.SourceReconcile); err != nil {
			return nil, err
		}
		if s.events != nil {
			s.events.CompanyMerged(ctx, d, models.SourceReconcile)
		}
	}

	return decisions, nil
}

// MergeInto merges the source company into the target: aliases are
// re-pointed, city links move to the target with duplicates dropped, and the
// source row is deleted unless it still owns cargo rules of its own. Rules
// are never moved or dropped; a source that owns rules is retained even
// though its aliases and city links now belong to the target, so one physical
// company can end up split across two ids with the in and out rule sets apart.
// Merging a company into itself is a no-op.
func (s *Service) MergeInto(ctx context.Context, sourceID, targetID, provenance string) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.MergeInto")
	defer span.End()

	if sourceID == targetID {
		return nil
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"source_id": sourceID,
		"target_id": targetID,
	})

	ctxTx, tx, err := s.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctxTx)

	if err := s.aliases.RepointAll(ctxTx, sourceID, targetID, provenance); err != nil {
		return err
	}

	if err := s.links.MoveCompanyLinks(ctxTx, sourceID, targetID); err != nil {
		return err
	}

	ruleCount, err := s.rules.CountByCompany(ctxTx, sourceID)
	if err != nil {
		return err
	}

	if ruleCount == 0 {
		if err := s.companies.Delete(ctxTx, sourceID); err != nil {
			return err
		}
		log.Debug("Merged company deleted")
	} else {
		log.WithField("rule_count", ruleCount).Debug("Merged company retained, owns cargo rules")
	}

	if err := tx.Commit(ctxTx); err != nil {
		return err
	}

	log.Info("Company merged")
	return nil
}

// ApplyMapping merges the company known by aliasKey into the chosen target,
// with manual provenance, and marks the target as mapped.
func (s *Service) ApplyMapping(ctx context.Context, aliasKey, targetID string) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.ApplyMapping")
	defer span.End()

	target, err := s.companies.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "company %q not found", targetID)
	}

	source, err := s.companies.GetByKey(ctx, aliasKey)
	if err != nil {
		return err
	}
	if source == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "no company with key %q", aliasKey)
	}

	if err := s.MergeInto(ctx, source.ID, target.ID, models.SourceManual); err != nil {
		return err
	}

	if err := s.aliases.Upsert(ctx, aliasKey, target.ID, models.SourceManual); err != nil {
		return err
	}

	if target.IsUnmapped {
		if err := s.companies.SetMapped(ctx, target.ID); err != nil {
			return err
		}
	}

	if s.events != nil {
		s.events.CompanyMerged(ctx, models.MergeDecision{
			SourceID: source.ID,
			TargetID: target.ID,
		}, models.SourceManual)
	}

	return nil
}

// ListUnmapped returns every unmapped company together with its top mapping
// candidates, best first, for a human to pick from.
func (s *Service) ListUnmapped(ctx context.Context) ([]models.UnmappedSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.ListUnmapped")
	defer span.End()

	mapped, err := s.companies.ListMapped(ctx)
	if err != nil {
		return nil, err
	}
	unmapped, err := s.companies.ListUnmapped(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.UnmappedSuggestion, 0, len(unmapped))
	for _, u := range unmapped {
		suggestions = append(suggestions, models.UnmappedSuggestion{
			AliasKey:    u.Key,
			DisplayName: u.Display(),
			Candidates:  s.engine.Candidates(mapped, u),
		})
	}

	return suggestions, nil
}
