package recommend

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// CityStore lists every known city.
type CityStore interface {
	List(ctx context.Context) ([]models.City, error)
}

// CompanyStore lists every company.
type CompanyStore interface {
	List(ctx context.Context) ([]models.Company, error)
}

// LinkStore lists every city-company link.
type LinkStore interface {
	List(ctx context.Context) ([]models.CityCompany, error)
}

// CargoStore lists every cargo type.
type CargoStore interface {
	List(ctx context.Context) ([]models.CargoType, error)
}

// RuleStore lists every cargo rule.
type RuleStore interface {
	List(ctx context.Context) ([]models.CompanyCargoRule, error)
}

// Service loads the canonical relations and serves route queries.
type Service struct {
	logger    ectologger.Logger
	engine    *Engine
	cities    CityStore
	companies CompanyStore
	links     LinkStore
	cargo     CargoStore
	rules     RuleStore
}

// NewService creates a route recommendation service.
func NewService(
	logger ectologger.Logger,
	engine *Engine,
	cities CityStore,
	companies CompanyStore,
	links LinkStore,
	cargo CargoStore,
	rules RuleStore,
) *Service {
	return &Service{
		logger:    logger,
		engine:    engine,
		cities:    cities,
		companies: companies,
		links:     links,
		cargo:     cargo,
		rules:     rules,
	}
}

// Suggest answers a route query between two city names.
func (s *Service) Suggest(ctx context.Context, startCity, targetCity string) (*models.SuggestResult, error) {
	ctx, span := tracing.StartSpan(ctx, "recommend.Service.Suggest")
	defer span.End()

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := s.engine.Suggest(startCity, targetCity, *snap)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"start_city":       startCity,
		"target_city":      targetCity,
		"suggestion_count": len(result.Suggestions),
	}).Debug("Route query answered")

	return &result, nil
}

// loadSnapshot reads the full canonical relation set. The world data is
// small enough that loading it per query keeps the engine pure without a
// cache invalidation story.
func (s *Service) loadSnapshot(ctx context.Context) (*Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "recommend.Service.loadSnapshot")
	defer span.End()

	cities, err := s.cities.List(ctx)
	if err != nil {
		return nil, err
	}
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.links.List(ctx)
	if err != nil {
		return nil, err
	}
	cargo, err := s.cargo.List(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Cities:    cities,
		Companies: companies,
		Links:     links,
		Cargo:     cargo,
		Rules:     rules,
	}, nil
}
