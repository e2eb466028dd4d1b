package taxEngine

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

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func txn(folio, scheme string, t time.Time, tt model.TxnType, amount, units float64, nav *float64) model.Transaction {
	out := model.Transaction{
		Folio:      folio,
		SchemeName: scheme,
		Date:       t,
		TxnType:    tt,
		Amount:     decimal.NewFromFloat(amount),
		Units:      decimal.NewFromFloat(units),
	}
	if nav != nil {
		d := decimal.NewFromFloat(*nav)
		out.Nav = &d
	}
	return out
}

func fptr(v float64) *float64 { return &v }

func TestClassifyHolding(t *testing.T) {
	tests := []struct {
		name     string
		purchase time.Time
		redeem   time.Time
		fundType model.FundType
		want     model.GainType
	}{
		{"equity 364 days is STCG", date(2023, 1, 1), date(2023, 12, 31), model.FundEquity, model.GainSTCG},
		{"equity 365 days is LTCG", date(2023, 1, 1), date(2024, 1, 1), model.FundEquity, model.GainLTCG},
		{"equity multi-year is LTCG", date(2022, 1, 1), date(2024, 6, 1), model.FundEquity, model.GainLTCG},
		{"debt short is STCG", date(2024, 1, 1), date(2024, 6, 1), model.FundDebt, model.GainSTCG},
		{"debt multi-year still STCG", date(2021, 1, 1), date(2025, 1, 1), model.FundDebt, model.GainSTCG},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyHolding(tc.purchase, tc.redeem, tc.fundType, 365)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyByName(t *testing.T) {
	assert.Equal(t, model.FundEquity, ClassifyByName("HDFC Flexi Cap Fund - Growth"))
	assert.Equal(t, model.FundDebt, ClassifyByName("ICICI Prudential Liquid Fund"))
	assert.Equal(t, model.FundDebt, ClassifyByName("Axis Corporate Bond Fund"))
}

func TestComputeEquityTax_UnderExemption(t *testing.T) {
	got := ComputeEquityTax(decimal.NewFromInt(100000), decimal.Zero, DefaultRules())
	assert.True(t, got.LtcgTax.IsZero(), "LTCG under the 1.25L exemption is untaxed")
	assert.True(t, got.TotalTax.IsZero())
}

func TestComputeEquityTax_AboveExemption(t *testing.T) {
	got := ComputeEquityTax(decimal.NewFromInt(225000), decimal.Zero, DefaultRules())
	assert.True(t, got.LtcgTaxable.Equal(decimal.NewFromInt(100000)))
	assert.True(t, got.LtcgTax.Equal(decimal.NewFromInt(12500)), "got %s", got.LtcgTax)
}

func TestComputeEquityTax_STCG(t *testing.T) {
	got := ComputeEquityTax(decimal.Zero, decimal.NewFromInt(50000), DefaultRules())
	assert.True(t, got.StcgTax.Equal(decimal.NewFromInt(10000)), "got %s", got.StcgTax)
}

func TestComputeTaxLiability_FIFOOrderAndConservation(t *testing.T) {
	// Two purchases, then a redemption spanning the first lot entirely and
	// the second lot partially.
	txns := []model.Transaction{
		txn("F1", "Alpha Equity Fund", date(2022, 1, 10), model.TxnPurchase, 10000, 100, nil),
		txn("F1", "Alpha Equity Fund", date(2022, 6, 10), model.TxnPurchase, 12000, 100, nil),
		txn("F1", "Alpha Equity Fund", date(2024, 3, 1), model.TxnRedemption, -22500, -150, fptr(150)),
	}

	events, summary, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Oldest lot first.
	assert.Equal(t, date(2022, 1, 10), events[0].PurchaseDate)
	assert.True(t, events[0].Units.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, date(2022, 6, 10), events[1].PurchaseDate)
	assert.True(t, events[1].Units.Equal(decimal.NewFromInt(50)))

	// Matched units sum to the redemption quantity.
	total := events[0].Units.Add(events[1].Units)
	assert.True(t, total.Equal(decimal.NewFromInt(150)))

	// First lot: cost 100/u, redeemed at 150/u over >365 days: LTCG.
	assert.Equal(t, model.GainLTCG, events[0].GainType)
	assert.True(t, events[0].Gain.Equal(decimal.NewFromInt(5000)))

	// Second lot: cost 120/u, held >365 days too.
	assert.Equal(t, model.GainLTCG, events[1].GainType)
	assert.True(t, events[1].Gain.Equal(decimal.NewFromInt(1500)))

	assert.Equal(t, 2, summary.EventCount)
	assert.True(t, summary.Equity.LtcgTotal.Equal(decimal.NewFromInt(6500)))
	assert.True(t, summary.Equity.LtcgTax.IsZero(), "6.5k is under the exemption")
}

func TestComputeTaxLiability_PartialRedemptionLeavesLaterLotUntouched(t *testing.T) {
	txns := []model.Transaction{
		txn("F1", "Alpha Equity Fund", date(2023, 1, 1), model.TxnPurchase, 5000, 50, nil),
		txn("F1", "Alpha Equity Fund", date(2023, 2, 1), model.TxnPurchase, 6000, 50, nil),
		txn("F1", "Alpha Equity Fund", date(2023, 6, 1), model.TxnRedemption, -3600, -30, fptr(120)),
	}

	events, _, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "only the earlier lot is touched")
	assert.Equal(t, date(2023, 1, 1), events[0].PurchaseDate)
	assert.True(t, events[0].Units.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, model.GainSTCG, events[0].GainType, "held under a year")
}

func TestComputeTaxLiability_InsufficientLots(t *testing.T) {
	txns := []model.Transaction{
		txn("F9", "Alpha Equity Fund", date(2023, 1, 1), model.TxnPurchase, 5000, 50, nil),
		txn("F9", "Alpha Equity Fund", date(2023, 6, 1), model.TxnRedemption, -9000, -75, fptr(120)),
	}

	events, _, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.Error(t, err)

	var insufficientErr *InsufficientLotsError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "F9", insufficientErr.Folio)
	assert.Equal(t, "Alpha Equity Fund", insufficientErr.Scheme)
	assert.True(t, insufficientErr.UnmatchedUnits.Equal(decimal.NewFromInt(25)))

	assert.Empty(t, events, "a failed key contributes no events")
}

func TestComputeTaxLiability_FailedKeyDoesNotAbortOthers(t *testing.T) {
	txns := []model.Transaction{
		// Healthy key.
		txn("F1", "Alpha Equity Fund", date(2023, 1, 1), model.TxnPurchase, 5000, 50, nil),
		txn("F1", "Alpha Equity Fund", date(2023, 6, 1), model.TxnRedemption, -3600, -30, fptr(120)),
		// Key missing its purchase history.
		txn("F2", "Beta Equity Fund", date(2023, 6, 1), model.TxnRedemption, -1000, -10, fptr(100)),
	}

	events, summary, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.Error(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Alpha Equity Fund", events[0].SchemeName)
	assert.Equal(t, 1, summary.EventCount)
}

func TestComputeTaxLiability_ZeroUnitBuyIsInvalid(t *testing.T) {
	txns := []model.Transaction{
		txn("F1", "Alpha Equity Fund", date(2023, 1, 1), model.TxnPurchase, 5000, 0, nil),
	}

	_, _, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestComputeTaxLiability_ZeroUnitSellIsInvalid(t *testing.T) {
	txns := []model.Transaction{
		txn("F1", "Alpha Equity Fund", date(2022, 1, 1), model.TxnPurchase, 10000, 100, nil),
		txn("F1", "Alpha Equity Fund", date(2024, 2, 1), model.TxnRedemption, -5000, 0, nil),
	}

	var events []model.TaxEvent
	var err error
	require.NotPanics(t, func() {
		events, _, err = ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	assert.Empty(t, events)
}

func TestComputeTaxLiability_SwitchTypesActAsBuyAndSell(t *testing.T) {
	txns := []model.Transaction{
		txn("F1", "Alpha Equity Fund", date(2022, 1, 1), model.TxnSwitchIn, 10000, 100, nil),
		txn("F1", "Alpha Equity Fund", date(2024, 2, 1), model.TxnSwitchOut, -13000, -100, fptr(130)),
	}

	events, _, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.GainLTCG, events[0].GainType)
	assert.True(t, events[0].Gain.Equal(decimal.NewFromInt(3000)))
}

func TestComputeTaxLiability_FallsBackToPriceHistoryNav(t *testing.T) {
	prices := []model.PriceRecord{
		{SchemeName: "Alpha Equity Fund", Nav: decimal.NewFromInt(110), AsOfDate: date(2023, 5, 30)},
		{SchemeName: "Alpha Equity Fund", Nav: decimal.NewFromInt(140), AsOfDate: date(2023, 7, 1)},
	}
	txns := []model.Transaction{
		txn("F1", "Alpha Equity Fund", date(2023, 1, 1), model.TxnPurchase, 10000, 100, nil),
		// No NAV on the redemption row: latest record on or before the date applies.
		txn("F1", "Alpha Equity Fund", date(2023, 6, 1), model.TxnRedemption, -11000, -100, nil),
	}

	events, _, err := ComputeTaxLiability(context.Background(), txns, prices, DefaultRules(), nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].RedemptionValue.Equal(decimal.NewFromInt(11000)), "100 units at the 110 NAV of May 30")
}

func TestComputeTaxLiability_DebtGainsSummarizedUntaxed(t *testing.T) {
	txns := []model.Transaction{
		txn("F1", "Super Liquid Fund", date(2020, 1, 1), model.TxnPurchase, 10000, 100, nil),
		txn("F1", "Super Liquid Fund", date(2024, 1, 1), model.TxnRedemption, -12000, -100, fptr(120)),
	}

	events, summary, err := ComputeTaxLiability(context.Background(), txns, nil, DefaultRules(), nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.FundDebt, events[0].FundType)
	assert.Equal(t, model.GainSTCG, events[0].GainType, "debt never gets LTCG treatment")
	assert.True(t, events[0].TaxAmount.IsZero(), "slab rate is the caller's")
	assert.True(t, summary.DebtGainTotal.Equal(decimal.NewFromInt(2000)))
	assert.True(t, summary.Equity.TotalTax.IsZero())
}
