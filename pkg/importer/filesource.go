package importer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	mapExportFile   = "map_export.json"
	definitionsFile = "definitions.json"
)

type mapExport struct {
	Cities []CityRecord  `json:"cities"`
	Depots []DepotRecord `json:"depots"`
}

type definitionExport struct {
	CargoKeys     []string            `json:"cargo_keys"`
	CompanyKeys   []string            `json:"company_keys"`
	Rules         []RuleRecord        `json:"rules"`
	CompanyCities []CompanyCityRecord `json:"company_cities"`
}

// FileSource loads pre-parsed feed exports from a directory. The external
// map and definition parsers write their output as JSON files; this source
// is the boundary between those tools and the pipeline.
type FileSource struct{}

func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Load(ctx context.Context, path string) (*FeedSet, error) {
	if path == "" {
		return nil, &PathNotDetectedError{Path: path}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &PathNotDetectedError{Path: path}
	}

	var exported mapExport
	if err := readJSONFile(filepath.Join(path, mapExportFile), &exported); err != nil {
		return nil, err
	}

	var defs definitionExport
	if err := readJSONFile(filepath.Join(path, definitionsFile), &defs); err != nil {
		return nil, err
	}

	return &FeedSet{
		Cities:        exported.Cities,
		Depots:        exported.Depots,
		CargoKeys:     defs.CargoKeys,
		CompanyKeys:   defs.CompanyKeys,
		Rules:         defs.Rules,
		CompanyCities: defs.CompanyCities,
	}, nil
}

func readJSONFile(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PathNotDetectedError{Path: path}
		}
		return errors.Wrapf(err, "failed to read feed file %s", path)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrapf(err, "failed to parse feed file %s", path)
	}
	return nil
}
