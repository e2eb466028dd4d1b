package metricsEngine

import (
	"context"
	"testing"
	"time"

	"github.com/shiveeg1/fund-agent/internal/engine"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCAGR(t *testing.T) {
	got, err := CAGR(100, 200, 5)
	require.NoError(t, err)
	assert.InDelta(t, 0.1487, got, 0.0005)
}

func TestCAGR_InvalidInput(t *testing.T) {
	_, err := CAGR(100, 200, 0)
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	_, err = CAGR(0, 200, 5)
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	_, err = CAGR(-10, 200, 5)
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestXIRR_OneYearDoublingFlow(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	flows := []Cashflow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(1, 0, 0), Amount: 1100},
	}

	got, err := XIRR(flows)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, got, 0.001)
}

func TestXIRR_MonthlySIP(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	flows := make([]Cashflow, 0, 13)
	for m := 0; m < 12; m++ {
		flows = append(flows, Cashflow{Date: start.AddDate(0, m, 0), Amount: -5000})
	}
	flows = append(flows, Cashflow{Date: start.AddDate(1, 0, 0), Amount: 64000})

	got, err := XIRR(flows)
	require.NoError(t, err)
	// 60k invested over the year grew to 64k: annualized return in the teens.
	assert.Greater(t, got, 0.05)
	assert.Less(t, got, 0.30)
}

func TestXIRR_NoSignChange(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	flows := []Cashflow{
		{Date: start, Amount: -1000},
		{Date: start.AddDate(0, 6, 0), Amount: -1000},
	}

	_, err := XIRR(flows)
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestXIRR_TooFewFlows(t *testing.T) {
	_, err := XIRR([]Cashflow{{Date: time.Now(), Amount: -1000}})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestSharpe_PositiveForSteadyGains(t *testing.T) {
	returns := repeat(0.001, 252)
	assert.Greater(t, Sharpe(returns, 0.0, 252), 0.0)
}

func TestSharpe_ZeroStdIsZero(t *testing.T) {
	returns := repeat(0.0, 252)
	assert.Equal(t, 0.0, Sharpe(returns, 0.065, 252))
}

func TestSortino_NoDownsideIsZero(t *testing.T) {
	returns := repeat(0.005, 252)
	assert.Equal(t, 0.0, Sortino(returns, 0.0, 252))
}

func TestSortino_NegativeReturnsProduceNegativeRatio(t *testing.T) {
	returns := []float64{-0.01, 0.002, -0.015, 0.001, -0.02}
	assert.Less(t, Sortino(returns, 0.065, 252), 0.0)
}

func TestBeta_IdenticalSeriesIsOne(t *testing.T) {
	series := []float64{0.01, -0.01, 0.02, -0.02}
	got, err := Beta(series, series)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestBeta_MismatchedLengths(t *testing.T) {
	_, err := Beta([]float64{0.01, 0.02}, []float64{0.01})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestBeta_ZeroBenchmarkVarianceIsZero(t *testing.T) {
	got, err := Beta([]float64{0.01, -0.01, 0.02}, []float64{0.005, 0.005, 0.005})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestMaxDrawdown(t *testing.T) {
	got := MaxDrawdown([]float64{100, 110, 90, 95, 80, 100})
	assert.InDelta(t, (80.0-110.0)/110.0, got, 1e-9)
	assert.LessOrEqual(t, got, 0.0)
}

func TestMaxDrawdown_MonotonicRiseThenDrop(t *testing.T) {
	got := MaxDrawdown([]float64{100, 105, 110, 120, 95})
	assert.InDelta(t, (95.0-120.0)/120.0, got, 1e-9)
	assert.LessOrEqual(t, got, 0.0)
}

func TestPeriodReturns(t *testing.T) {
	got := PeriodReturns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-9)
	assert.InDelta(t, -0.10, got[1], 1e-9)

	assert.Nil(t, PeriodReturns([]float64{100}))
}

func TestComputeAllMetrics_FundWithData(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	txns := []model.Transaction{
		buyTxn("F1", "Alpha Growth Fund", start, 10000, 100),
	}

	var prices []model.PriceRecord
	for d := 0; d < 400; d += 10 {
		nav := 100.0 + float64(d)*0.1
		prices = append(prices, priceRec("Alpha Growth Fund", start.AddDate(0, 0, d), nav))
	}

	records := ComputeAllMetrics(context.Background(), txns, prices, Options{
		RiskFreeRate:   0.065,
		PeriodsPerYear: 252,
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Alpha Growth Fund", rec.SchemeName)
	require.NotNil(t, rec.Xirr)
	require.NotNil(t, rec.Cagr)
	require.NotNil(t, rec.Sharpe)
	require.NotNil(t, rec.Sortino)
	require.NotNil(t, rec.MaxDrawdown)
	require.NotNil(t, rec.Volatility)
	assert.Nil(t, rec.Beta, "no benchmark supplied")

	assert.Greater(t, *rec.Xirr, 0.0)
	assert.Greater(t, *rec.Cagr, 0.0)
}

func TestComputeAllMetrics_InsufficientDataKeepsRecord(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		buyTxn("F2", "Lonely Fund", start, 5000, 50),
	}
	prices := []model.PriceRecord{priceRec("Lonely Fund", start, 100)}

	records := ComputeAllMetrics(context.Background(), txns, prices, Options{RiskFreeRate: 0.065, PeriodsPerYear: 252})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Lonely Fund", rec.SchemeName)
	assert.Nil(t, rec.Xirr)
	assert.Nil(t, rec.Cagr)
	assert.Nil(t, rec.Sharpe)
	assert.Nil(t, rec.MaxDrawdown)
}

func TestComputeAllMetrics_DeterministicOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		buyTxn("F1", "Zeta Fund", start, 1000, 10),
		buyTxn("F1", "Alpha Fund", start, 1000, 10),
	}

	records := ComputeAllMetrics(context.Background(), txns, nil, Options{RiskFreeRate: 0.065, PeriodsPerYear: 252})

	require.Len(t, records, 2)
	assert.Equal(t, "Alpha Fund", records[0].SchemeName)
	assert.Equal(t, "Zeta Fund", records[1].SchemeName)
}

func TestComputeAllMetrics_WithBenchmark(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		buyTxn("F1", "Index Hugger", start, 10000, 100),
	}

	var prices []model.PriceRecord
	navs := []float64{100, 102, 101, 104, 103, 107}
	for i, nav := range navs {
		prices = append(prices, priceRec("Index Hugger", start.AddDate(0, 0, i*30), nav))
	}

	benchmark := PeriodReturns(navs)
	annual := 0.12
	records := ComputeAllMetrics(context.Background(), txns, prices, Options{
		RiskFreeRate:          0.065,
		PeriodsPerYear:        12,
		BenchmarkReturns:      benchmark,
		BenchmarkAnnualReturn: &annual,
	})

	require.Len(t, records, 1)
	rec := records[0]
	require.NotNil(t, rec.Beta)
	assert.InDelta(t, 1.0, *rec.Beta, 1e-9, "fund returns equal benchmark returns")
	require.NotNil(t, rec.Alpha)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func buyTxn(folio, scheme string, date time.Time, amount, units float64) model.Transaction {
	return model.Transaction{
		Folio:      folio,
		SchemeName: scheme,
		Date:       date,
		TxnType:    model.TxnPurchase,
		Amount:     decimal.NewFromFloat(amount),
		Units:      decimal.NewFromFloat(units),
	}
}

func priceRec(scheme string, date time.Time, nav float64) model.PriceRecord {
	return model.PriceRecord{
		SchemeCode: "123456",
		SchemeName: scheme,
		Nav:        decimal.NewFromFloat(nav),
		AsOfDate:   date,
	}
}
