// Package reconcile merges unmapped depot companies into authoritative
// game-definition companies by fuzzy-matching normalized keys.
package reconcile

import (
	"math"
	"sort"

	"github.com/Gobusters/ectolinq"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/fuzzy"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
	"github.com/Zobiii/Ets2RoutePlanner/pkg/normalize"
)

// Config contains the merge acceptance thresholds.
type Config struct {
	AcceptScore    float64 // score at or above which the top candidate is merged
	AcceptOverlap  float64 // token overlap at or above which the top candidate is merged
	DistanceRatio  float64 // edit distance budget as a fraction of the longer key
	DistanceFloor  int     // minimum edit distance budget regardless of key length
	CandidateCount int     // candidates returned per unmapped company for manual mapping
}

// DefaultConfig returns the default acceptance thresholds.
func DefaultConfig() Config {
	return Config{
		AcceptScore:    0.85,
		AcceptOverlap:  0.6,
		DistanceRatio:  0.15,
		DistanceFloor:  2,
		CandidateCount: 5,
	}
}

// Engine decides merge targets for unmapped companies. It is stateless and
// side-effect free; persistence of the resulting decisions is the Service's
// job.
type Engine struct {
	scorer *fuzzy.Scorer
	config Config
}

// NewEngine creates a reconciliation engine.
func NewEngine(config Config) *Engine {
	return &Engine{
		scorer: fuzzy.NewScorer(),
		config: config,
	}
}

type candidate struct {
	company  models.Company
	score    float64
	distance int
	overlap  float64
	norm     string
}

// Reconcile scores every unmapped company against every authoritative company
// and returns a merge decision for each unmapped company whose best candidate
// clears one of the acceptance thresholds. Unmapped companies are processed in
// ascending key order so the output does not depend on input iteration order.
//
// The unmapped side is matched in its suffix-stripped form since the depot
// feed appends generic location words ("Big Mrkt Depot") that the definition
// keys omit; the authoritative side is matched unstripped because its keys
// are already canonical.
func (e *Engine) Reconcile(authoritative, unmapped []models.Company) []models.MergeDecision {
	sorted := make([]models.Company, len(unmapped))
	copy(sorted, unmapped)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	decisions := make([]models.MergeDecision, 0, len(sorted))
	for _, u := range sorted {
		best := e.bestCandidate(authoritative, u)
		if best == nil {
			continue
		}

		sourceNorm := normalize.Simplify(u.Key)
		if !e.accepts(sourceNorm, best) {
			continue
		}

		decisions = append(decisions, models.MergeDecision{
			SourceID:        u.ID,
			TargetID:        best.company.ID,
			MatchedScore:    best.score,
			MatchedDistance: best.distance,
		})
	}

	return decisions
}

// Candidates returns the keys of the top candidate companies for an unmapped
// company, best first, with no acceptance threshold applied. This is the
// advisory list a human picks a manual mapping target from.
func (e *Engine) Candidates(authoritative []models.Company, u models.Company) []string {
	ranked := e.rank(authoritative, u)
	if len(ranked) > e.config.CandidateCount {
		ranked = ranked[:e.config.CandidateCount]
	}
	return ectolinq.Map(ranked, func(c candidate) string { return c.company.Key })
}

func (e *Engine) bestCandidate(authoritative []models.Company, u models.Company) *candidate {
	ranked := e.rank(authoritative, u)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

// rank scores u against every authoritative company, ordered by score
// descending with edit distance breaking ties.
func (e *Engine) rank(authoritative []models.Company, u models.Company) []candidate {
	sourceNorm := normalize.Simplify(u.Key)

	candidates := make([]candidate, 0, len(authoritative))
	for _, m := range authoritative {
		targetNorm := normalize.Flatten(m.Key)
		candidates = append(candidates, candidate{
			company:  m,
			score:    e.scorer.Score(sourceNorm, targetNorm),
			distance: e.scorer.Distance(sourceNorm, targetNorm),
			overlap:  e.scorer.TokenOverlap(normalize.Normalize(u.Key), m.Key),
			norm:     targetNorm,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].distance < candidates[j].distance
	})

	return candidates
}

// accepts reports whether the top candidate clears any acceptance threshold:
// a high combined score, an edit distance within a length-proportional budget,
// or a high token overlap.
func (e *Engine) accepts(sourceNorm string, best *candidate) bool {
	if best.score >= e.config.AcceptScore {
		return true
	}

	maxLen := len(sourceNorm)
	if len(best.norm) > maxLen {
		maxLen = len(best.norm)
	}
	budget := int(math.Ceil(e.config.DistanceRatio * float64(maxLen)))
	if budget < e.config.DistanceFloor {
		budget = e.config.DistanceFloor
	}
	if best.distance <= budget {
		return true
	}

	return best.overlap >= e.config.AcceptOverlap
}
