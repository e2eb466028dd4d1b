package overlapEngine

import (
	"context"
	"testing"

	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holdings() []model.Holding {
	return []model.Holding{
		{SchemeCode: "A", Isin: "ISIN001", WeightPct: 30},
		{SchemeCode: "A", Isin: "ISIN002", WeightPct: 40},
		{SchemeCode: "A", Isin: "ISIN003", WeightPct: 30},
		{SchemeCode: "B", Isin: "ISIN002", WeightPct: 20},
		{SchemeCode: "B", Isin: "ISIN003", WeightPct: 50},
		{SchemeCode: "B", Isin: "ISIN004", WeightPct: 30},
	}
}

func TestComputePairwiseOverlap(t *testing.T) {
	records := ComputePairwiseOverlap(context.Background(), holdings())

	require.Len(t, records, 1)
	pair := records[0]
	assert.Equal(t, "A", pair.FundA)
	assert.Equal(t, "B", pair.FundB)
	// intersection {ISIN002, ISIN003}, union of four ISINs.
	assert.InDelta(t, 0.5, pair.JaccardOverlap, 1e-9)
	// min(40,20) + min(30,50)
	assert.InDelta(t, 50.0, pair.WeightedOverlapPct, 1e-9)
	assert.Equal(t, 2, pair.CommonStocks)
}

func TestComputePairwiseOverlap_Empty(t *testing.T) {
	assert.Empty(t, ComputePairwiseOverlap(context.Background(), nil))
	assert.Empty(t, ComputePairwiseOverlap(context.Background(), []model.Holding{}))
}

func TestComputePairwiseOverlap_SingleFundNoPairs(t *testing.T) {
	records := ComputePairwiseOverlap(context.Background(), []model.Holding{
		{SchemeCode: "A", Isin: "ISIN001", WeightPct: 100},
	})
	assert.Empty(t, records)
}

func TestComputePairwiseOverlap_DisjointFunds(t *testing.T) {
	records := ComputePairwiseOverlap(context.Background(), []model.Holding{
		{SchemeCode: "A", Isin: "ISIN001", WeightPct: 100},
		{SchemeCode: "B", Isin: "ISIN002", WeightPct: 100},
	})

	require.Len(t, records, 1)
	assert.Zero(t, records[0].JaccardOverlap)
	assert.Zero(t, records[0].WeightedOverlapPct)
	assert.Zero(t, records[0].CommonStocks)
}

func TestComputePairwiseOverlap_ThreeFundsYieldThreeOrderedPairs(t *testing.T) {
	hs := append(holdings(),
		model.Holding{SchemeCode: "C", Isin: "ISIN001", WeightPct: 60},
		model.Holding{SchemeCode: "C", Isin: "ISIN004", WeightPct: 40},
	)

	records := ComputePairwiseOverlap(context.Background(), hs)

	require.Len(t, records, 3)
	for _, r := range records {
		assert.Less(t, r.FundA, r.FundB, "pairs are emitted once, lexically ordered")
	}
}

func TestComputePairwiseOverlap_RoundsToFourDecimals(t *testing.T) {
	records := ComputePairwiseOverlap(context.Background(), []model.Holding{
		{SchemeCode: "A", Isin: "ISIN001", WeightPct: 33.33333},
		{SchemeCode: "A", Isin: "ISIN002", WeightPct: 66.66667},
		{SchemeCode: "B", Isin: "ISIN001", WeightPct: 11.11111},
		{SchemeCode: "B", Isin: "ISIN003", WeightPct: 88.88889},
	})

	require.Len(t, records, 1)
	assert.InDelta(t, 0.3333, records[0].JaccardOverlap, 1e-9)
	assert.InDelta(t, 11.1111, records[0].WeightedOverlapPct, 1e-9)
}
