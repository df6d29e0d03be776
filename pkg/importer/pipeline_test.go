package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

type fakeSource struct {
	feeds *FeedSet
	err   error
}

func (s *fakeSource) Load(ctx context.Context, path string) (*FeedSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.feeds, nil
}

// fakeWorld implements every pipeline store interface over in-memory maps.
type fakeWorld struct {
	cities    map[string]models.City    // by lowercased name
	companies map[string]models.Company // by key
	aliases   map[string]models.CompanyAlias
	cargo     map[string]models.CargoType // by key
	links     []models.CityCompany
	rules     []models.CompanyCargoRule
	nextID    int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		cities:    map[string]models.City{},
		companies: map[string]models.Company{},
		aliases:   map[string]models.CompanyAlias{},
		cargo:     map[string]models.CargoType{},
	}
}

func (w *fakeWorld) id(prefix string) string {
	w.nextID++
	return fmt.Sprintf("%s-%d", prefix, w.nextID)
}

func (w *fakeWorld) Upsert(ctx context.Context, city models.City) (*models.City, error) {
	key := strings.ToLower(city.Name)
	if existing, ok := w.cities[key]; ok {
		existing.Lat, existing.Lon = city.Lat, city.Lon
		w.cities[key] = existing
		return &existing, nil
	}
	city.ID = w.id("city")
	w.cities[key] = city
	return &city, nil
}

func (w *fakeWorld) List(ctx context.Context) ([]models.City, error) {
	var out []models.City
	for _, c := range w.cities {
		out = append(out, c)
	}
	return out, nil
}

func (w *fakeWorld) Count(ctx context.Context) (int, error) {
	return len(w.cities), nil
}

type fakeCompanies struct{ w *fakeWorld }

func (f fakeCompanies) Upsert(ctx context.Context, company models.Company) (*models.Company, error) {
	if existing, ok := f.w.companies[company.Key]; ok {
		// once authoritative, always authoritative
		existing.IsUnmapped = existing.IsUnmapped && company.IsUnmapped
		if company.DisplayName != "" {
			existing.DisplayName = company.DisplayName
		}
		f.w.companies[company.Key] = existing
		return &existing, nil
	}
	company.ID = f.w.id("company")
	f.w.companies[company.Key] = company
	return &company, nil
}

func (f fakeCompanies) Count(ctx context.Context) (int, error) {
	return len(f.w.companies), nil
}

func (f fakeCompanies) CountUnmapped(ctx context.Context) (int, error) {
	count := 0
	for _, c := range f.w.companies {
		if c.IsUnmapped {
			count++
		}
	}
	return count, nil
}

type fakeAliases struct{ w *fakeWorld }

func (f fakeAliases) Upsert(ctx context.Context, aliasKey, companyID, source string) error {
	f.w.aliases[aliasKey] = models.CompanyAlias{AliasKey: aliasKey, CompanyID: companyID, Source: source}
	return nil
}

type fakeLinks struct{ w *fakeWorld }

func (f fakeLinks) Upsert(ctx context.Context, link models.CityCompany) error {
	for _, l := range f.w.links {
		if l.CityID == link.CityID && l.CompanyID == link.CompanyID {
			return nil
		}
	}
	f.w.links = append(f.w.links, link)
	return nil
}

func (f fakeLinks) Count(ctx context.Context) (int, error) {
	return len(f.w.links), nil
}

type fakeCargo struct{ w *fakeWorld }

func (f fakeCargo) Upsert(ctx context.Context, cargo models.CargoType) (*models.CargoType, error) {
	if existing, ok := f.w.cargo[cargo.Key]; ok {
		return &existing, nil
	}
	cargo.ID = f.w.id("cargo")
	f.w.cargo[cargo.Key] = cargo
	return &cargo, nil
}

func (f fakeCargo) Count(ctx context.Context) (int, error) {
	return len(f.w.cargo), nil
}

type fakeRules struct{ w *fakeWorld }

func (f fakeRules) Upsert(ctx context.Context, rule models.CompanyCargoRule) error {
	for _, r := range f.w.rules {
		if r.CompanyID == rule.CompanyID && r.CargoTypeID == rule.CargoTypeID && r.Direction == rule.Direction {
			return nil
		}
	}
	f.w.rules = append(f.w.rules, rule)
	return nil
}

func (f fakeRules) Count(ctx context.Context) (int, error) {
	return len(f.w.rules), nil
}

type fakeReconciler struct {
	calls     int
	decisions []models.MergeDecision
}

func (r *fakeReconciler) Run(ctx context.Context) ([]models.MergeDecision, error) {
	r.calls++
	return r.decisions, nil
}

func testFeeds() *FeedSet {
	return &FeedSet{
		Cities: []CityRecord{
			{Name: "Rostock", Lat: 54.0924, Lon: 12.0991},
			{Name: "Berlin", Lat: 52.5200, Lon: 13.4050},
		},
		Depots: []DepotRecord{
			{Name: "Stahlwerk Essen Depot", Lat: 54.10, Lon: 12.10}, // Rostock
			{Name: "Big Mrkt Depot", Lat: 52.53, Lon: 13.41},        // Berlin
			{Name: "Lost Warehouse", Lat: 40.0, Lon: 0.0},           // no city in range
		},
		CargoKeys:   []string{"steel", "bricks"},
		CompanyKeys: []string{"stahlwerk_essen", "big_market"},
		Rules: []RuleRecord{
			{CompanyKey: "stahlwerk_essen", CargoKey: "steel", Direction: models.DirectionOut},
			{CompanyKey: "big_market", CargoKey: "steel", Direction: models.DirectionIn},
			{CompanyKey: "no_such_company", CargoKey: "steel", Direction: models.DirectionIn},
		},
		CompanyCities: []CompanyCityRecord{
			{CompanyKey: "big_market", CityName: "berlin"},
			{CompanyKey: "big_market", CityName: "Atlantis"},
		},
	}
}

func newTestPipeline(world *fakeWorld, source FeedSource, reconciler Reconciler, progress ProgressSink) *Pipeline {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewPipeline(
		logger,
		source,
		world,
		fakeCompanies{world},
		fakeAliases{world},
		fakeLinks{world},
		fakeCargo{world},
		fakeRules{world},
		reconciler,
		progress,
		PipelineConfig{DepotRadiusKm: 25},
	)
}

func TestPipeline_Run(t *testing.T) {
	world := newFakeWorld()
	reconciler := &fakeReconciler{}
	progress := NewProgressLog()
	pipeline := newTestPipeline(world, &fakeSource{feeds: testFeeds()}, reconciler, progress)

	summary, err := pipeline.Run(context.Background(), "/games/ets2")
	assert.NoError(t, err)
	assert.Equal(t, 1, reconciler.calls)

	// the "Stahlwerk Essen Depot" depot normalizes to the stahlwerk_essen
	// definition key, so the definition upsert claims the same row and the
	// company ends up mapped; "big_mrkt" stays unmapped for reconciliation
	assert.False(t, world.companies["stahlwerk_essen"].IsUnmapped)
	assert.True(t, world.companies["big_mrkt"].IsUnmapped)
	assert.Contains(t, world.companies, "big_market")

	// the depot out of every city's radius is dropped
	assert.NotContains(t, world.companies, "lost")

	if assert.NotNil(t, summary) {
		assert.Equal(t, 2, summary.CityCount)
		assert.Equal(t, 3, summary.CompanyCount)
		assert.Equal(t, 1, summary.UnmappedCompanyCount)
		assert.Equal(t, 2, summary.CargoTypeCount)
		assert.Equal(t, 2, summary.RuleCount)     // unknown company row skipped
		assert.Equal(t, 3, summary.CityCompanyLinkCount) // 2 depot links + 1 definition link
	}

	// provenance tags
	assert.Equal(t, models.SourceMapFeed, world.aliases["big_mrkt"].Source)
	assert.Equal(t, models.SourceGameFeed, world.aliases["big_market"].Source)

	lines, _ := progress.Since(0)
	assert.NotEmpty(t, lines)
}

func TestPipeline_Run_PathNotDetected(t *testing.T) {
	world := newFakeWorld()
	source := &fakeSource{err: &PathNotDetectedError{Path: "/nowhere"}}
	pipeline := newTestPipeline(world, source, &fakeReconciler{}, NewProgressLog())

	_, err := pipeline.Run(context.Background(), "/nowhere")
	assert.True(t, IsPathNotDetected(err))
	assert.Empty(t, world.companies)
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	world := newFakeWorld()
	reconciler := &fakeReconciler{}
	pipeline := newTestPipeline(world, &fakeSource{feeds: testFeeds()}, reconciler, NewProgressLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, "/games/ets2")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, reconciler.calls)
}
