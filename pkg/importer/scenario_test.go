package importer

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/database"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/recommend"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/reconcile"
)

// The scenario test wires the real reconciliation service into the pipeline
// and then answers a route query over the resulting world, so the merge is
// exercised end to end: the fuzzy depot key disappears, its alias and city
// link survive on the canonical company, and suggestions only ever name
// canonical companies.

type stubTx struct{ closed bool }

func (t *stubTx) IsOpen() bool { return !t.closed }

func (t *stubTx) Commit(ctx context.Context) error {
	t.closed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	t.closed = true
	return nil
}

func (t *stubTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (t *stubTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (t *stubTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

type stubTxBeginner struct{}

func (stubTxBeginner) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, &stubTx{}, nil
}

type scenarioCompanies struct{ fakeCompanies }

func (f scenarioCompanies) GetByID(ctx context.Context, id string) (*models.Company, error) {
	for _, c := range f.w.companies {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (f scenarioCompanies) GetByKey(ctx context.Context, key string) (*models.Company, error) {
	if c, ok := f.w.companies[key]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f scenarioCompanies) ListMapped(ctx context.Context) ([]models.Company, error) {
	return f.list(false), nil
}

func (f scenarioCompanies) ListUnmapped(ctx context.Context) ([]models.Company, error) {
	return f.list(true), nil
}

func (f scenarioCompanies) list(unmapped bool) []models.Company {
	var out []models.Company
	for _, c := range f.w.companies {
		if c.IsUnmapped == unmapped {
			out = append(out, c)
		}
	}
	return out
}

func (f scenarioCompanies) SetMapped(ctx context.Context, id string) error {
	for key, c := range f.w.companies {
		if c.ID == id {
			c.IsUnmapped = false
			f.w.companies[key] = c
		}
	}
	return nil
}

func (f scenarioCompanies) Delete(ctx context.Context, id string) error {
	for key, c := range f.w.companies {
		if c.ID == id {
			delete(f.w.companies, key)
		}
	}
	return nil
}

type scenarioAliases struct{ fakeAliases }

func (f scenarioAliases) RepointAll(ctx context.Context, fromCompanyID, toCompanyID, source string) error {
	for key, a := range f.w.aliases {
		if a.CompanyID == fromCompanyID {
			a.CompanyID = toCompanyID
			a.Source = source
			f.w.aliases[key] = a
		}
	}
	return nil
}

type scenarioLinks struct{ fakeLinks }

func (f scenarioLinks) MoveCompanyLinks(ctx context.Context, fromCompanyID, toCompanyID string) error {
	targetCities := map[string]bool{}
	for _, l := range f.w.links {
		if l.CompanyID == toCompanyID {
			targetCities[l.CityID] = true
		}
	}

	kept := f.w.links[:0]
	for _, l := range f.w.links {
		if l.CompanyID != fromCompanyID {
			kept = append(kept, l)
			continue
		}
		if !targetCities[l.CityID] {
			l.CompanyID = toCompanyID
			targetCities[l.CityID] = true
			kept = append(kept, l)
		}
	}
	f.w.links = kept
	return nil
}

type scenarioRules struct{ fakeRules }

func (f scenarioRules) CountByCompany(ctx context.Context, companyID string) (int, error) {
	count := 0
	for _, r := range f.w.rules {
		if r.CompanyID == companyID {
			count++
		}
	}
	return count, nil
}

func TestImportThenSuggest(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	world := newFakeWorld()

	companies := scenarioCompanies{fakeCompanies{world}}
	aliases := scenarioAliases{fakeAliases{world}}
	links := scenarioLinks{fakeLinks{world}}
	rules := scenarioRules{fakeRules{world}}

	reconciler := reconcile.NewService(
		logger,
		stubTxBeginner{},
		reconcile.NewEngine(reconcile.DefaultConfig()),
		companies,
		aliases,
		links,
		rules,
		nil,
	)

	pipeline := NewPipeline(
		logger,
		&fakeSource{feeds: testFeeds()},
		world,
		companies,
		aliases,
		links,
		fakeCargo{world},
		rules,
		reconciler,
		NewProgressLog(),
		PipelineConfig{DepotRadiusKm: 25},
	)

	summary, err := pipeline.Run(context.Background(), "/games/ets2")
	require.NoError(t, err)
	require.NotNil(t, summary)

	// the fuzzy depot key was merged away and its alias re-pointed to the
	// canonical company with reconcile provenance
	assert.NotContains(t, world.companies, "big_mrkt")
	canonical := world.companies["big_market"]
	assert.Equal(t, canonical.ID, world.aliases["big_mrkt"].CompanyID)
	assert.Equal(t, models.SourceReconcile, world.aliases["big_mrkt"].Source)

	snap := recommend.Snapshot{
		Links: world.links,
		Rules: world.rules,
	}
	for _, c := range world.cities {
		snap.Cities = append(snap.Cities, c)
	}
	for _, c := range world.companies {
		snap.Companies = append(snap.Companies, c)
	}
	for _, c := range world.cargo {
		snap.Cargo = append(snap.Cargo, c)
	}

	result := recommend.NewEngine(recommend.DefaultConfig()).Suggest("Rostock", "Berlin", snap)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, models.RouteSuggestion{
		StartCompany:  "Stahlwerk Essen Depot",
		Cargo:         "steel",
		TargetCompany: "big_market",
	}, result.Suggestions[0])

	// the merged source company never surfaces in suggestions
	for _, s := range result.Suggestions {
		assert.NotEqual(t, "Big Mrkt Depot", s.StartCompany)
		assert.NotEqual(t, "Big Mrkt Depot", s.TargetCompany)
	}
}
