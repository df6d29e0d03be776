// Package models contains the data model shared by the import pipeline,
// the reconciliation engine and the route recommendation engine.
package models

import "time"

// Direction says whether a cargo rule is an inbound or outbound capability.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Provenance tags for aliases and city-company links.
const (
	SourceMapFeed   = "map_feed"
	SourceGameFeed  = "game_feed"
	SourceManual    = "manual"
	SourceReconcile = "reconcile"
)

// City is a named location depots resolve against. Coordinates come from the
// map export feed; name uniqueness is case-insensitive.
type City struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Lat       float64   `json:"lat" db:"lat"`
	Lon       float64   `json:"lon" db:"lon"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Company is one canonical cargo depot operator. Key is the normalized
// canonical identifier and is unique and immutable once assigned. IsUnmapped
// marks a company known only from the map export feed that has not yet been
// linked to a game-definition-sourced company.
type Company struct {
	ID          string    `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	DisplayName string    `json:"display_name" db:"display_name"`
	IsUnmapped  bool      `json:"is_unmapped" db:"is_unmapped"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Display returns the name to show callers: display name if set, else key.
func (c Company) Display() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Key
}

// CompanyAlias maps any historically-seen raw key to the current canonical
// company. Source records provenance for audit.
type CompanyAlias struct {
	AliasKey  string    `json:"alias_key" db:"alias_key"`
	CompanyID string    `json:"company_id" db:"company_id"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CargoType is one kind of haulable cargo.
type CargoType struct {
	ID          string    `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Display returns the name to show callers: display name if set, else key.
func (c CargoType) Display() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Key
}

// CompanyCargoRule declares that a company imports or exports a cargo type.
// A company may have both an in and an out row for the same cargo.
type CompanyCargoRule struct {
	CompanyID   string    `json:"company_id" db:"company_id"`
	CargoTypeID string    `json:"cargo_type_id" db:"cargo_type_id"`
	Direction   Direction `json:"direction" db:"direction"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CityCompany links a company to a city it operates in.
type CityCompany struct {
	CityID    string    `json:"city_id" db:"city_id"`
	CompanyID string    `json:"company_id" db:"company_id"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MergeDecision is one accepted reconciliation outcome: merge the unmapped
// source company into the authoritative target.
type MergeDecision struct {
	SourceID        string  `json:"source_id"`
	TargetID        string  `json:"target_id"`
	MatchedScore    float64 `json:"matched_score"`
	MatchedDistance int     `json:"matched_distance"`
}

// RouteSuggestion is one valid haul: pick cargo up at the start company,
// deliver it to the target company. A value type, deduplicated by equality.
type RouteSuggestion struct {
	StartCompany  string `json:"start_company"`
	Cargo         string `json:"cargo"`
	TargetCompany string `json:"target_company"`
}

// SuggestResult is the answer to a route query. Hints are only populated for
// a side whose city name could not be resolved; a resolved city without any
// linked companies yields an empty result with no hints.
type SuggestResult struct {
	Suggestions []RouteSuggestion `json:"suggestions"`
	StartHints  []string          `json:"start_hints,omitempty"`
	TargetHints []string          `json:"target_hints,omitempty"`
}

// UnmappedSuggestion lists merge candidates for one unmapped company, for a
// human to pick from.
type UnmappedSuggestion struct {
	AliasKey    string   `json:"alias_key"`
	DisplayName string   `json:"display_name"`
	Candidates  []string `json:"candidates"`
}

// ImportSummary is the terminal report of a full import run.
type ImportSummary struct {
	CityCount            int `json:"city_count"`
	CompanyCount         int `json:"company_count"`
	CityCompanyLinkCount int `json:"city_company_link_count"`
	CargoTypeCount       int `json:"cargo_type_count"`
	RuleCount            int `json:"rule_count"`
	UnmappedCompanyCount int `json:"unmapped_company_count"`
}

// LogLine is one progress line of an import run.
type LogLine struct {
	Seq  int       `json:"seq"`
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// ImportStatus is a snapshot of the orchestrator state plus the log lines
// appended since the caller's cursor.
type ImportStatus struct {
	IsRunning        bool           `json:"is_running"`
	NeedsManualInput bool           `json:"needs_manual_input"`
	LastError        string         `json:"last_error,omitempty"`
	LastSummary      *ImportSummary `json:"last_summary,omitempty"`
	Log              []LogLine      `json:"log"`
	NextCursor       int            `json:"next_cursor"`
}
