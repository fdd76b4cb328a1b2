package selection

import (
	"context"
	"sort"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// Ranker implements S4: ordering instruments by composite score
// ⭐ SSOT: S4 랭킹 로직은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(logger *logger.Logger) *Ranker {
	return &Ranker{
		logger: logger,
	}
}

// Rank orders the universe by descending composite score.
// Ties are broken by instrument id. Universe members missing from the table
// receive the worst rank (universe size). A nil universe ranks the table only.
func (r *Ranker) Rank(ctx context.Context, universe []string, table *contracts.FactorScoreTable) ([]contracts.RankedInstrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if universe == nil {
		universe = table.Instruments()
	}

	ranked := make([]contracts.RankedInstrument, 0, len(universe))
	var unscored []string

	for _, id := range universe {
		score, ok := table.Get(id)
		if !ok {
			unscored = append(unscored, id)
			continue
		}
		ranked = append(ranked, contracts.RankedInstrument{
			InstrumentID: id,
			Composite:    score.Composite,
			Percentiles:  score.Percentiles,
			Scored:       true,
		})
	}

	// Sort by composite (descending), then id
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		return ranked[i].InstrumentID < ranked[j].InstrumentID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	// 점수 없는 종목은 최하위
	sort.Strings(unscored)
	for _, id := range unscored {
		ranked = append(ranked, contracts.RankedInstrument{
			InstrumentID: id,
			Rank:         len(universe),
		})
	}

	fields := map[string]interface{}{
		"stage":    contracts.StageRanker.String(),
		"total":    len(ranked),
		"unscored": len(unscored),
	}
	if len(ranked) > 0 && ranked[0].Scored {
		fields["top_id"] = ranked[0].InstrumentID
		fields["top_score"] = ranked[0].Composite
	}
	r.logger.WithFields(fields).Info("Ranking completed")

	return ranked, nil
}

// TopN returns the first n ranked instruments that carry a score
func TopN(ranked []contracts.RankedInstrument, n int) []contracts.RankedInstrument {
	if n <= 0 {
		return nil
	}
	out := make([]contracts.RankedInstrument, 0, n)
	for _, r := range ranked {
		if len(out) == n {
			break
		}
		if r.Scored {
			out = append(out, r)
		}
	}
	return out
}
