// Package importer runs the full import pipeline: persist the parsed feeds,
// resolve depots to cities, reconcile company identities, and report a
// summary. At most one import runs at a time.
package importer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

// CityRecord is one parsed city from the map export feed.
type CityRecord struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// DepotRecord is one parsed company/industry point from the map export feed.
type DepotRecord struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// RuleRecord is one parsed cargo rule tuple from the game definition feed.
type RuleRecord struct {
	CompanyKey string           `json:"company_key"`
	CargoKey   string           `json:"cargo_key"`
	Direction  models.Direction `json:"direction"`
}

// CompanyCityRecord links a definition company to a city by name.
type CompanyCityRecord struct {
	CompanyKey string `json:"company_key"`
	CityName   string `json:"city_name"`
}

// FeedSet is everything the external parsers hand the pipeline: the map
// export feed (cities, depots) and the game definition feed (cargo keys,
// company keys, rule tuples, per-city company placements).
type FeedSet struct {
	Cities        []CityRecord
	Depots        []DepotRecord
	CargoKeys     []string
	CompanyKeys   []string
	Rules         []RuleRecord
	CompanyCities []CompanyCityRecord
}

// FeedSource produces a parsed FeedSet for an install path. Implementations
// wrap the archive and map-export parsers, which are external collaborators.
type FeedSource interface {
	Load(ctx context.Context, path string) (*FeedSet, error)
}

// PathNotDetectedError signals that the source data could not be located
// automatically. It flips the orchestrator to needs-manual-input instead of
// recording a failed run.
type PathNotDetectedError struct {
	Path string
}

func (e *PathNotDetectedError) Error() string {
	return fmt.Sprintf("source data not detected at %q", e.Path)
}

// IsPathNotDetected reports whether err is a PathNotDetectedError.
func IsPathNotDetected(err error) bool {
	var target *PathNotDetectedError
	return errors.As(err, &target)
}
