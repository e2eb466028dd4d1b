package overlapEngine

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/utils"
)

// ComputePairwiseOverlap measures holding concentration between every
// unordered pair of funds in the composition snapshot. Jaccard is the
// ISIN-set similarity; the weighted overlap sums min(weightA, weightB) over
// the intersection: the fraction of each fund's assets that necessarily
// sits in the same securities as the other. Pairs are emitted once, with
// FundA < FundB lexically. Results round to 4 decimals.
func ComputePairwiseOverlap(ctx context.Context, holdings []model.Holding) []model.OverlapRecord {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "overlapEngine.ComputePairwiseOverlap"

	if len(holdings) == 0 {
		return nil
	}

	fundHoldings := make(map[string]map[string]float64)
	for _, h := range holdings {
		m := fundHoldings[h.SchemeCode]
		if m == nil {
			m = make(map[string]float64)
			fundHoldings[h.SchemeCode] = m
		}
		m[h.Isin] = h.WeightPct
	}

	funds := make([]string, 0, len(fundHoldings))
	for code := range fundHoldings {
		funds = append(funds, code)
	}
	sort.Strings(funds)

	var records []model.OverlapRecord
	for i := 0; i < len(funds); i++ {
		for j := i + 1; j < len(funds); j++ {
			records = append(records, overlapPair(funds[i], funds[j], fundHoldings[funds[i]], fundHoldings[funds[j]]))
		}
	}

	slog.Debug("pairwise overlap computed",
		slog.String("rqID", rqID), slog.String("op", op),
		slog.Int("funds", len(funds)), slog.Int("pairs", len(records)))

	return records
}

func overlapPair(fundA, fundB string, weightsA, weightsB map[string]float64) model.OverlapRecord {
	intersection := 0
	var weightedOverlap float64
	for isin, wA := range weightsA {
		wB, ok := weightsB[isin]
		if !ok {
			continue
		}
		intersection++
		weightedOverlap += math.Min(wA, wB)
	}

	union := len(weightsA) + len(weightsB) - intersection
	jaccard := 0.0
	if union > 0 {
		jaccard = float64(intersection) / float64(union)
	}

	return model.OverlapRecord{
		FundA:              fundA,
		FundB:              fundB,
		JaccardOverlap:     round4(jaccard),
		WeightedOverlapPct: round4(weightedOverlap),
		CommonStocks:       intersection,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
