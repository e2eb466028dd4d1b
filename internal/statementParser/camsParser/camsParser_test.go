package camsParser

import (
	"testing"
	"time"

	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const sampleStatement = `{
	"dtTrxnResult": [
		{
			"FOLIO_NUMBER": "12345/67",
			"SCHEME_NAME": "Axis Bluechip Fund Direct Growth",
			"TRADE_DATE": "15-Jan-2024",
			"TRANSACTION_TYPE": "Purchase Systematic",
			"AMOUNT": 5000.0,
			"UNITS": 98.7654,
			"PRICE": 50.625
		},
		{
			"FOLIO_NUMBER": "12345/67",
			"SCHEME_NAME": "Axis Bluechip Fund Direct Growth",
			"TRADE_DATE": "15-Jan-2024",
			"TRANSACTION_TYPE": "*** Stamp Duty ***",
			"AMOUNT": 0.25,
			"UNITS": null,
			"PRICE": null
		},
		{
			"FOLIO_NUMBER": "12345/67",
			"SCHEME_NAME": "Axis Bluechip Fund Direct Growth",
			"TRADE_DATE": "20-Mar-2024",
			"TRANSACTION_TYPE": "Redemption",
			"AMOUNT": -2600.0,
			"UNITS": -50.0,
			"PRICE": 52.0
		},
		{
			"FOLIO_NUMBER": "98765/43",
			"SCHEME_NAME": "HDFC Liquid Fund",
			"TRADE_DATE": "01-Feb-2024",
			"TRANSACTION_TYPE": "Registration of Nominee",
			"AMOUNT": null,
			"UNITS": null,
			"PRICE": null
		},
		{
			"FOLIO_NUMBER": "98765/43",
			"SCHEME_NAME": "HDFC Liquid Fund",
			"TRADE_DATE": "01-Feb-2024",
			"TRANSACTION_TYPE": "Switch Out",
			"AMOUNT": -10000.0,
			"UNITS": -2.1,
			"PRICE": 4761.9
		}
	]
}`

func TestParse(t *testing.T) {
	p := New()

	txns, err := p.Parse([]byte(sampleStatement))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	sip := txns[0]
	assert.Equal(t, "12345/67", sip.Folio)
	assert.Equal(t, "Axis Bluechip Fund Direct Growth", sip.SchemeName)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), sip.Date)
	assert.Equal(t, model.TxnSIP, sip.TxnType)
	assert.Equal(t, "5000", sip.Amount.String())
	assert.Equal(t, "98.7654", sip.Units.String())
	require.NotNil(t, sip.Nav)
	assert.Equal(t, "50.625", sip.Nav.String())

	assert.Equal(t, model.TxnRedemption, txns[1].TxnType)
	assert.Equal(t, model.TxnSwitchOut, txns[2].TxnType)
}

func TestParse_InvalidJSON(t *testing.T) {
	p := New()

	_, err := p.Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestParse_BadTradeDate(t *testing.T) {
	p := New()

	_, err := p.Parse([]byte(`{"dtTrxnResult": [{
		"FOLIO_NUMBER": "1",
		"SCHEME_NAME": "X",
		"TRADE_DATE": "2024-01-15",
		"TRANSACTION_TYPE": "Purchase",
		"AMOUNT": 100.0,
		"UNITS": 1.0
	}]}`))
	assert.Error(t, err)
}

func TestNormalizeTxnType(t *testing.T) {
	cases := []struct {
		raw  string
		want model.TxnType
	}{
		{"Purchase", model.TxnPurchase},
		{"Purchase (Continuous Offer)", model.TxnPurchase},
		{"Purchase Systematic", model.TxnSIP},
		{"Redemption", model.TxnRedemption},
		{"Redemption of Units", model.TxnRedemption},
		{"Switch-In", model.TxnSwitchIn},
		{"Switch Out", model.TxnSwitchOut},
		{"Systematic Switch In", model.TxnSwitchIn},
		{"Systematic Transfer To - ", model.TxnSwitchOut},
		{"Systematic Transfer From - ", model.TxnSwitchIn},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeTxnType(c.raw), "raw=%q", c.raw)
	}
}

func TestDedupe(t *testing.T) {
	base := model.Transaction{
		Folio:      "12345/67",
		SchemeName: "Axis Bluechip Fund Direct Growth",
		Date:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TxnType:    model.TxnPurchase,
	}
	a := base
	a.Units = mustDec("98.7654")
	dup := a
	b := base
	b.Units = mustDec("10.0")

	out := Dedupe([]model.Transaction{a, dup, b})
	require.Len(t, out, 2)
	assert.Equal(t, a.Units.String(), out[0].Units.String())
	assert.Equal(t, b.Units.String(), out[1].Units.String())
}
