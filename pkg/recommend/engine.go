// Package recommend computes valid hauls between two cities: which company
// in the start city exports a cargo that a company in the target city
// imports.
package recommend

import (
	"sort"
	"strings"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/fuzzy"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

// Config contains the city resolution tuning.
type Config struct {
	CityMatchThreshold float64 // fuzzy score below which a city name is unresolved
	CityHintCount      int     // city name hints returned for an unresolved input
}

// DefaultConfig returns the default city resolution settings.
func DefaultConfig() Config {
	return Config{
		CityMatchThreshold: 0.92,
		CityHintCount:      5,
	}
}

// Snapshot is the canonical relation set suggestions are computed over. The
// whole game world fits in memory comfortably; per-city company counts are
// tens, not millions.
type Snapshot struct {
	Cities    []models.City
	Companies []models.Company
	Links     []models.CityCompany
	Cargo     []models.CargoType
	Rules     []models.CompanyCargoRule
}

// Engine answers route queries over a snapshot. Stateless.
type Engine struct {
	scorer *fuzzy.Scorer
	config Config
}

// NewEngine creates a route recommendation engine.
func NewEngine(config Config) *Engine {
	return &Engine{
		scorer: fuzzy.NewScorer(),
		config: config,
	}
}

// Suggest resolves both city names and returns every distinct
// (start company, cargo, target company) triple where the start company has
// an out rule and the target company an in rule for the same cargo.
//
// An unresolved city name yields no suggestions plus name hints for that
// side; a resolved city with no linked companies yields an empty result with
// no hints, so callers can tell "didn't understand the name" from "no data".
func (e *Engine) Suggest(startName, targetName string, snap Snapshot) models.SuggestResult {
	start, startHints := e.resolveCity(startName, snap.Cities)
	target, targetHints := e.resolveCity(targetName, snap.Cities)

	if start == nil || target == nil {
		result := models.SuggestResult{Suggestions: []models.RouteSuggestion{}}
		if start == nil {
			result.StartHints = startHints
		}
		if target == nil {
			result.TargetHints = targetHints
		}
		return result
	}

	startCompanies := companiesInCity(start.ID, snap.Links)
	targetCompanies := companiesInCity(target.ID, snap.Links)
	if len(startCompanies) == 0 || len(targetCompanies) == 0 {
		return models.SuggestResult{Suggestions: []models.RouteSuggestion{}}
	}

	companyNames := make(map[string]string, len(snap.Companies))
	for _, c := range snap.Companies {
		companyNames[c.ID] = c.Display()
	}
	cargoNames := make(map[string]string, len(snap.Cargo))
	for _, c := range snap.Cargo {
		cargoNames[c.ID] = c.Display()
	}

	outRules := make(map[string][]string)
	inRules := make(map[string]map[string]bool)
	for _, r := range snap.Rules {
		switch r.Direction {
		case models.DirectionOut:
			outRules[r.CompanyID] = append(outRules[r.CompanyID], r.CargoTypeID)
		case models.DirectionIn:
			if inRules[r.CompanyID] == nil {
				inRules[r.CompanyID] = make(map[string]bool)
			}
			inRules[r.CompanyID][r.CargoTypeID] = true
		}
	}

	seen := make(map[models.RouteSuggestion]bool)
	suggestions := make([]models.RouteSuggestion, 0)
	for _, s := range startCompanies {
		for _, cargoID := range outRules[s] {
			for _, t := range targetCompanies {
				if !inRules[t][cargoID] {
					continue
				}
				suggestion := models.RouteSuggestion{
					StartCompany:  companyNames[s],
					Cargo:         cargoNames[cargoID],
					TargetCompany: companyNames[t],
				}
				if seen[suggestion] {
					continue
				}
				seen[suggestion] = true
				suggestions = append(suggestions, suggestion)
			}
		}
	}

	sortSuggestions(suggestions)

	return models.SuggestResult{Suggestions: suggestions}
}

// resolveCity matches the input against the known cities: exact
// case-insensitive first, then best fuzzy score if it clears the threshold.
// When neither works it returns nil plus the closest city names as hints.
func (e *Engine) resolveCity(input string, cities []models.City) (*models.City, []string) {
	for i := range cities {
		if strings.EqualFold(cities[i].Name, input) {
			return &cities[i], nil
		}
	}

	best := -1
	bestScore := 0.0
	for i := range cities {
		score := e.scorer.Score(input, cities[i].Name)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best >= 0 && bestScore >= e.config.CityMatchThreshold {
		return &cities[best], nil
	}

	return nil, e.hints(input, cities)
}

// hints returns the city names closest to the input, best first.
func (e *Engine) hints(input string, cities []models.City) []string {
	type scored struct {
		name  string
		score float64
	}

	ranked := make([]scored, 0, len(cities))
	for _, c := range cities {
		ranked = append(ranked, scored{name: c.Name, score: e.scorer.Score(input, c.Name)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > e.config.CityHintCount {
		ranked = ranked[:e.config.CityHintCount]
	}

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.name
	}
	return names
}

func companiesInCity(cityID string, links []models.CityCompany) []string {
	var ids []string
	for _, l := range links {
		if l.CityID == cityID {
			ids = append(ids, l.CompanyID)
		}
	}
	return ids
}

// sortSuggestions orders ascending by start company, then cargo, then target
// company, comparing case-insensitively.
func sortSuggestions(suggestions []models.RouteSuggestion) {
	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !strings.EqualFold(a.StartCompany, b.StartCompany) {
			return strings.ToLower(a.StartCompany) < strings.ToLower(b.StartCompany)
		}
		if !strings.EqualFold(a.Cargo, b.Cargo) {
			return strings.ToLower(a.Cargo) < strings.ToLower(b.Cargo)
		}
		return strings.ToLower(a.TargetCompany) < strings.ToLower(b.TargetCompany)
	})
}
