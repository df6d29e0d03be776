package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/geo"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/normalize"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/tracing"
)

// CityStore persists cities and reads them back for depot resolution.
type CityStore interface {
	Upsert(ctx context.Context, city models.City) (*models.City, error)
	List(ctx context.Context) ([]models.City, error)
	Count(ctx context.Context) (int, error)
}

// CompanyStore persists companies. Upsert works by key; an upsert that marks
// a company authoritative wins over its unmapped state, never the reverse.
type CompanyStore interface {
	Upsert(ctx context.Context, company models.Company) (*models.Company, error)
	Count(ctx context.Context) (int, error)
	CountUnmapped(ctx context.Context) (int, error)
}

// AliasStore records raw keys for companies.
type AliasStore interface {
	Upsert(ctx context.Context, aliasKey, companyID, source string) error
}

// LinkStore persists city-company links.
type LinkStore interface {
	Upsert(ctx context.Context, link models.CityCompany) error
	Count(ctx context.Context) (int, error)
}

// CargoStore persists cargo types.
type CargoStore interface {
	Upsert(ctx context.Context, cargo models.CargoType) (*models.CargoType, error)
	Count(ctx context.Context) (int, error)
}

// RuleStore persists cargo rules.
type RuleStore interface {
	Upsert(ctx context.Context, rule models.CompanyCargoRule) error
	Count(ctx context.Context) (int, error)
}

// Reconciler runs the automatic merge pass. Satisfied by reconcile.Service.
type Reconciler interface {
	Run(ctx context.Context) ([]models.MergeDecision, error)
}

// ProgressSink receives human-readable progress lines.
type ProgressSink interface {
	Append(text string)
}

// PipelineConfig tunes the depot resolution stage.
type PipelineConfig struct {
	DepotRadiusKm float64 // max distance between a depot and its city center
}

// Pipeline executes one full import: cities, depots, game definitions,
// reconciliation, summary. Stages run in order; cancellation is checked
// before each stage but a cancelled run's earlier stages are not rolled
// back.
type Pipeline struct {
	logger     ectologger.Logger
	source     FeedSource
	cities     CityStore
	companies  CompanyStore
	aliases    AliasStore
	links      LinkStore
	cargo      CargoStore
	rules      RuleStore
	reconciler Reconciler
	progress   ProgressSink
	config     PipelineConfig
}

// NewPipeline creates an import pipeline.
func NewPipeline(
	logger ectologger.Logger,
	source FeedSource,
	cities CityStore,
	companies CompanyStore,
	aliases AliasStore,
	links LinkStore,
	cargo CargoStore,
	rules RuleStore,
	reconciler Reconciler,
	progress ProgressSink,
	config PipelineConfig,
) *Pipeline {
	return &Pipeline{
		logger:     logger,
		source:     source,
		cities:     cities,
		companies:  companies,
		aliases:    aliases,
		links:      links,
		cargo:      cargo,
		rules:      rules,
		reconciler: reconciler,
		progress:   progress,
		config:     config,
	}
}

// Run executes the pipeline against the source data at path and returns the
// terminal summary.
func (p *Pipeline) Run(ctx context.Context, path string) (*models.ImportSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.Run")
	defer span.End()

	log := p.logger.WithContext(ctx).WithField("path", path)
	log.Info("Import started")
	p.progress.Append("Loading source data")

	feeds, err := p.source.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cityByName, err := p.importCities(ctx, feeds)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.importDepots(ctx, feeds, cityByName); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.importDefinitions(ctx, feeds, cityByName); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.progress.Append("Reconciling company identities")
	decisions, err := p.reconciler.Run(ctx)
	if err != nil {
		return nil, err
	}
	p.progress.Append(fmt.Sprintf("Merged %d companies", len(decisions)))

	summary, err := p.summarize(ctx)
	if err != nil {
		return nil, err
	}

	p.progress.Append(fmt.Sprintf(
		"Import finished: %d cities, %d companies (%d unmapped), %d cargo types, %d rules, %d links",
		summary.CityCount, summary.CompanyCount, summary.UnmappedCompanyCount,
		summary.CargoTypeCount, summary.RuleCount, summary.CityCompanyLinkCount,
	))
	log.Info("Import finished")

	return summary, nil
}

// importCities upserts the parsed cities and returns them keyed by lowercased
// name for the later stages.
func (p *Pipeline) importCities(ctx context.Context, feeds *FeedSet) (map[string]models.City, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.importCities")
	defer span.End()

	p.progress.Append(fmt.Sprintf("Importing %d cities", len(feeds.Cities)))

	cityByName := make(map[string]models.City, len(feeds.Cities))
	for _, record := range feeds.Cities {
		city, err := p.cities.Upsert(ctx, models.City{
			Name: record.Name,
			Lat:  record.Lat,
			Lon:  record.Lon,
		})
		if err != nil {
			return nil, err
		}
		cityByName[strings.ToLower(city.Name)] = *city
	}

	return cityByName, nil
}

// importDepots resolves each depot to its nearest city and records the
// operating company as unmapped, to be reconciled against the definition
// companies later. Depots outside every city's radius are skipped.
func (p *Pipeline) importDepots(ctx context.Context, feeds *FeedSet, cityByName map[string]models.City) error {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.importDepots")
	defer span.End()

	p.progress.Append(fmt.Sprintf("Importing %d depots", len(feeds.Depots)))

	cities := make([]models.City, 0, len(cityByName))
	for _, c := range cityByName {
		cities = append(cities, c)
	}

	skipped := 0
	for _, depot := range feeds.Depots {
		city := geo.NearestCity(depot.Lat, depot.Lon, cities, p.config.DepotRadiusKm)
		if city == nil {
			skipped++
			continue
		}

		key := normalize.Normalize(depot.Name)
		if key == "" {
			skipped++
			continue
		}

		company, err := p.companies.Upsert(ctx, models.Company{
			Key:         key,
			DisplayName: depot.Name,
			IsUnmapped:  true,
		})
		if err != nil {
			return err
		}

		if err := p.aliases.Upsert(ctx, key, company.ID, models.SourceMapFeed); err != nil {
			return err
		}

		if err := p.links.Upsert(ctx, models.CityCompany{
			CityID:    city.ID,
			CompanyID: company.ID,
			Source:    models.SourceMapFeed,
		}); err != nil {
			return err
		}
	}

	if skipped > 0 {
		p.progress.Append(fmt.Sprintf("Skipped %d depots without a city in range", skipped))
	}

	return nil
}

// importDefinitions upserts the authoritative game data: cargo types, company
// keys, cargo rules and definition-derived city links.
func (p *Pipeline) importDefinitions(ctx context.Context, feeds *FeedSet, cityByName map[string]models.City) error {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.importDefinitions")
	defer span.End()

	p.progress.Append(fmt.Sprintf("Importing %d companies and %d cargo types from game definitions",
		len(feeds.CompanyKeys), len(feeds.CargoKeys)))

	cargoByKey := make(map[string]models.CargoType, len(feeds.CargoKeys))
	for _, key := range feeds.CargoKeys {
		cargo, err := p.cargo.Upsert(ctx, models.CargoType{Key: key})
		if err != nil {
			return err
		}
		cargoByKey[key] = *cargo
	}

	companyByKey := make(map[string]models.Company, len(feeds.CompanyKeys))
	for _, key := range feeds.CompanyKeys {
		company, err := p.companies.Upsert(ctx, models.Company{
			Key:        key,
			IsUnmapped: false,
		})
		if err != nil {
			return err
		}
		companyByKey[key] = *company

		if err := p.aliases.Upsert(ctx, key, company.ID, models.SourceGameFeed); err != nil {
			return err
		}
	}

	for _, rule := range feeds.Rules {
		company, ok := companyByKey[rule.CompanyKey]
		if !ok {
			continue
		}
		cargo, ok := cargoByKey[rule.CargoKey]
		if !ok {
			continue
		}
		if err := p.rules.Upsert(ctx, models.CompanyCargoRule{
			CompanyID:   company.ID,
			CargoTypeID: cargo.ID,
			Direction:   rule.Direction,
		}); err != nil {
			return err
		}
	}

	linked := 0
	for _, placement := range feeds.CompanyCities {
		company, ok := companyByKey[placement.CompanyKey]
		if !ok {
			continue
		}
		city, ok := cityByName[strings.ToLower(placement.CityName)]
		if !ok {
			continue
		}
		if err := p.links.Upsert(ctx, models.CityCompany{
			CityID:    city.ID,
			CompanyID: company.ID,
			Source:    models.SourceGameFeed,
		}); err != nil {
			return err
		}
		linked++
	}

	p.progress.Append(fmt.Sprintf("Imported %d rules and %d definition city links", len(feeds.Rules), linked))

	return nil
}

func (p *Pipeline) summarize(ctx context.Context) (*models.ImportSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.summarize")
	defer span.End()

	summary := &models.ImportSummary{}
	var err error

	if summary.CityCount, err = p.cities.Count(ctx); err != nil {
		return nil, err
	}
	if summary.CompanyCount, err = p.companies.Count(ctx); err != nil {
		return nil, err
	}
	if summary.UnmappedCompanyCount, err = p.companies.CountUnmapped(ctx); err != nil {
		return nil, err
	}
	if summary.CityCompanyLinkCount, err = p.links.Count(ctx); err != nil {
		return nil, err
	}
	if summary.CargoTypeCount, err = p.cargo.Count(ctx); err != nil {
		return nil, err
	}
	if summary.RuleCount, err = p.rules.Count(ctx); err != nil {
		return nil, err
	}

	return summary, nil
}
