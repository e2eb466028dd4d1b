package portfolioService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/internal/externalApi"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/internal/model/amfiModel"
	"github.com/shiveeg1/fund-agent/internal/model/mfapiModel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	txns         []model.Transaction
	prices       []model.PriceRecord
	schemeNames  []string
	upsertedNavs []model.PriceRecord
}

func (f *fakeRepo) UpsertTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	return len(txns), nil
}
func (f *fakeRepo) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	return f.txns, nil
}
func (f *fakeRepo) UpsertNavHistory(ctx context.Context, navs []model.PriceRecord) error {
	f.upsertedNavs = append(f.upsertedNavs, navs...)
	return nil
}
func (f *fakeRepo) GetNavHistory(ctx context.Context) ([]model.PriceRecord, error) {
	return f.prices, nil
}
func (f *fakeRepo) ReplaceHoldings(ctx context.Context, schemeCode string, holdings []model.Holding) error {
	return nil
}
func (f *fakeRepo) GetHoldings(ctx context.Context) ([]model.Holding, error) { return nil, nil }
func (f *fakeRepo) GetPortfolioSchemeNames(ctx context.Context) ([]string, error) {
	return f.schemeNames, nil
}
func (f *fakeRepo) InsertMetrics(ctx context.Context, runID string, metrics []model.MetricRecord) error {
	return nil
}
func (f *fakeRepo) InsertTaxEvents(ctx context.Context, runID string, events []model.TaxEvent) error {
	return nil
}
func (f *fakeRepo) InsertOverlaps(ctx context.Context, runID string, overlaps []model.OverlapRecord) error {
	return nil
}
func (f *fakeRepo) SaveRunNarrative(ctx context.Context, runID, digest, narrative string) error {
	return nil
}
func (f *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

type fakeAmfiApi struct {
	rows []amfiModel.NavRow
}

func (f *fakeAmfiApi) GetAllNavs(ctx context.Context) ([]amfiModel.NavRow, error) {
	return f.rows, nil
}

type fakeMfApi struct {
	schemes     map[string]mfapiModel.SchemeResponse
	schemeCalls []string
}

func (f *fakeMfApi) GetScheme(ctx context.Context, schemeCode string) (mfapiModel.SchemeResponse, error) {
	f.schemeCalls = append(f.schemeCalls, schemeCode)
	if s, ok := f.schemes[schemeCode]; ok {
		return s, nil
	}
	return mfapiModel.SchemeResponse{}, externalApi.ErrNotFound
}
func (f *fakeMfApi) GetComposition(ctx context.Context, schemeCode string) (mfapiModel.CompositionResponse, error) {
	return mfapiModel.CompositionResponse{}, externalApi.ErrNotFound
}
func (f *fakeMfApi) GetTER(ctx context.Context, schemeCode string) (mfapiModel.TERResponse, error) {
	return mfapiModel.TERResponse{}, externalApi.ErrNotFound
}
func (f *fakeMfApi) GetPeers(ctx context.Context, schemeCode string) (mfapiModel.PeerResponse, error) {
	return mfapiModel.PeerResponse{}, externalApi.ErrNotFound
}

type fakeCache struct {
	rows map[string]amfiModel.NavRow
}

func (f *fakeCache) SetNavs(ctx context.Context, rows []amfiModel.NavRow) error { return nil }
func (f *fakeCache) GetNav(ctx context.Context, schemeCode string) (amfiModel.NavRow, error) {
	if row, ok := f.rows[schemeCode]; ok {
		return row, nil
	}
	return amfiModel.NavRow{}, errors.New("cache miss")
}

func testConfig() *config.Config {
	return &config.Config{
		Tax: config.Tax{
			LTCGExemption:     125000,
			LTCGRate:          0.125,
			STCGRate:          0.20,
			EquityHoldingDays: 365,
		},
		Metrics: config.Metrics{
			RiskFreeRate:   0.065,
			PeriodsPerYear: 252,
		},
	}
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func txn(txnType model.TxnType, y, m, d int, amount, units string) model.Transaction {
	return model.Transaction{
		Folio:      "F1",
		SchemeName: "Axis Bluechip Fund",
		Date:       date(y, m, d),
		TxnType:    txnType,
		Amount:     decimal.RequireFromString(amount),
		Units:      decimal.RequireFromString(units),
	}
}

func TestTaxForFinancialYear_FiltersByRedemptionDate(t *testing.T) {
	nav := decimal.RequireFromString("150")
	sellInFY := txn(model.TxnRedemption, 2024, 6, 10, "7500", "-50")
	sellInFY.Nav = &nav
	sellOutsideFY := txn(model.TxnRedemption, 2023, 6, 10, "3000", "-20")
	outNav := decimal.RequireFromString("150")
	sellOutsideFY.Nav = &outNav

	buyNav := decimal.RequireFromString("100")
	buy := txn(model.TxnPurchase, 2022, 1, 5, "20000", "200")
	buy.Nav = &buyNav

	repo := &fakeRepo{txns: []model.Transaction{buy, sellOutsideFY, sellInFY}}
	svc := New(testConfig(), repo, nil, nil, nil, nil, nil, nil, nil)

	events, summary, err := svc.TaxForFinancialYear(context.Background(), 2024)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, date(2024, 6, 10), events[0].RedemptionDate)
	assert.Equal(t, model.GainLTCG, events[0].GainType)
	assert.Equal(t, 1, summary.EventCount)
	// 50 units with per-unit gain 50, under the exemption
	assert.Equal(t, "2500", summary.Equity.LtcgTotal.String())
	assert.True(t, summary.Equity.LtcgTax.IsZero())
}

func TestTaxForFinancialYear_EmptyLedger(t *testing.T) {
	svc := New(testConfig(), &fakeRepo{}, nil, nil, nil, nil, nil, nil, nil)

	_, _, err := svc.TaxForFinancialYear(context.Background(), 2024)
	assert.Error(t, err)
}

func TestMatchSchemes(t *testing.T) {
	rows := []amfiModel.NavRow{
		{SchemeCode: "120465", SchemeName: "Axis Bluechip Fund - Direct Plan - Growth", Nav: "58.97", NavDate: "30-Aug-2026"},
		{SchemeCode: "118989", SchemeName: "HDFC Liquid Fund - Growth", Nav: "4500.12", NavDate: "30-Aug-2026"},
	}

	matched := matchSchemes(rows, []string{
		"AXIS BLUECHIP FUND DIRECT PLAN GROWTH",
		"Some Fund Not In Feed",
	})

	require.Len(t, matched, 1)
	assert.Equal(t, "120465", matched["AXIS BLUECHIP FUND DIRECT PLAN GROWTH"].SchemeCode)
}

func TestNormalizeSchemeName(t *testing.T) {
	assert.Equal(t,
		normalizeSchemeName("Axis Bluechip Fund - Direct Plan - Growth"),
		normalizeSchemeName("AXIS BLUECHIP FUND DIRECT PLAN GROWTH"),
	)
	assert.NotEqual(t,
		normalizeSchemeName("Axis Bluechip Fund - Direct Plan - Growth"),
		normalizeSchemeName("Axis Bluechip Fund - Regular Plan - Growth"),
	)
}

func TestBuildDigest(t *testing.T) {
	x := 0.12
	res := model.AnalyticsResult{
		Metrics: []model.MetricRecord{
			{SchemeName: "Axis Bluechip Fund", Xirr: &x},
			{SchemeName: "No Data Fund"},
		},
		TaxSummary: model.TaxSummary{EventCount: 2},
		Overlaps: []model.OverlapRecord{
			{FundA: "A", FundB: "B", JaccardOverlap: 0.5, WeightedOverlapPct: 50, CommonStocks: 2},
		},
	}

	digest := BuildDigest(res)

	assert.Contains(t, digest, "Axis Bluechip Fund")
	assert.Contains(t, digest, "XIRR 12.00%")
	assert.Contains(t, digest, "XIRR n/a")
	assert.Contains(t, digest, "2 events")
	assert.Contains(t, digest, "A vs B")
}

func TestBackfillNavHistory_FillsThinSeries(t *testing.T) {
	repo := &fakeRepo{schemeNames: []string{"Axis Bluechip Fund - Direct Plan - Growth"}}
	amfi := &fakeAmfiApi{rows: []amfiModel.NavRow{
		{SchemeCode: "120465", SchemeName: "Axis Bluechip Fund - Direct Plan - Growth", Nav: "58.97", NavDate: "30-Aug-2026"},
	}}
	mf := &fakeMfApi{schemes: map[string]mfapiModel.SchemeResponse{
		"120465": {
			Status: "SUCCESS",
			Data: []mfapiModel.NavData{
				{Date: "28-08-2026", Nav: "58.50"},
				{Date: "29-08-2026", Nav: "58.80"},
				{Date: "not a date", Nav: "58.90"},
				{Date: "30-08-2026", Nav: "N.A."},
			},
		},
	}}

	svc := New(testConfig(), repo, nil, amfi, mf, nil, nil, nil, nil)

	added, err := svc.BackfillNavHistory(context.Background())
	require.NoError(t, err)

	// malformed date and nav rows are skipped
	assert.Equal(t, 2, added)
	require.Len(t, repo.upsertedNavs, 2)
	assert.Equal(t, "120465", repo.upsertedNavs[0].SchemeCode)
	assert.Equal(t, date(2026, 8, 28), repo.upsertedNavs[0].AsOfDate)
	assert.Equal(t, "58.5", repo.upsertedNavs[0].Nav.String())
}

func TestBackfillNavHistory_SkipsWellCoveredSchemes(t *testing.T) {
	prices := make([]model.PriceRecord, 0, backfillMinObservations)
	for i := range backfillMinObservations {
		prices = append(prices, model.PriceRecord{
			SchemeCode: "120465",
			SchemeName: "Axis Bluechip Fund - Direct Plan - Growth",
			Nav:        decimal.RequireFromString("58"),
			AsOfDate:   date(2026, 7, 1).AddDate(0, 0, i),
		})
	}
	repo := &fakeRepo{
		schemeNames: []string{"Axis Bluechip Fund - Direct Plan - Growth"},
		prices:      prices,
	}
	amfi := &fakeAmfiApi{rows: []amfiModel.NavRow{
		{SchemeCode: "120465", SchemeName: "Axis Bluechip Fund - Direct Plan - Growth", Nav: "58.97", NavDate: "30-Aug-2026"},
	}}
	mf := &fakeMfApi{}

	svc := New(testConfig(), repo, nil, amfi, mf, nil, nil, nil, nil)

	added, err := svc.BackfillNavHistory(context.Background())
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Empty(t, mf.schemeCalls)
}

func TestAugmentWithCachedNavs(t *testing.T) {
	stored := []model.PriceRecord{
		{SchemeCode: "120465", SchemeName: "Axis Bluechip Fund", Nav: decimal.RequireFromString("58"), AsOfDate: date(2026, 8, 25)},
		{SchemeCode: "118989", SchemeName: "HDFC Liquid Fund", Nav: decimal.RequireFromString("4500"), AsOfDate: date(2026, 8, 30)},
	}
	cache := &fakeCache{rows: map[string]amfiModel.NavRow{
		// fresher than stored, should be appended
		"120465": {SchemeCode: "120465", SchemeName: "Axis Bluechip Fund", Nav: "59.20", NavDate: "30-Aug-2026"},
		// same date as stored, should be ignored
		"118989": {SchemeCode: "118989", SchemeName: "HDFC Liquid Fund", Nav: "4501.00", NavDate: "30-Aug-2026"},
	}}

	svc := New(testConfig(), &fakeRepo{}, nil, nil, nil, cache, nil, nil, nil)

	got := svc.augmentWithCachedNavs(context.Background(), stored)

	require.Len(t, got, 3)
	appended := got[2]
	assert.Equal(t, "120465", appended.SchemeCode)
	assert.Equal(t, date(2026, 8, 30), appended.AsOfDate)
	assert.Equal(t, "59.2", appended.Nav.String())
}
