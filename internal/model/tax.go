package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type GainType string

const (
	GainLTCG GainType = "LTCG"
	GainSTCG GainType = "STCG"
)

type FundType string

const (
	FundEquity FundType = "equity"
	FundDebt   FundType = "debt"
)

// TaxLot is an open purchase lot inside a (folio, scheme) FIFO queue.
type TaxLot struct {
	Folio          string
	SchemeName     string
	OpenDate       time.Time
	UnitsRemaining decimal.Decimal
	CostPerUnit    decimal.Decimal
}

// TaxEvent is one realized-gain record: a single (lot, redemption) pairing.
// A redemption that spans several lots emits several events.
type TaxEvent struct {
	Folio           string
	SchemeName      string
	RedemptionDate  time.Time
	PurchaseDate    time.Time
	Units           decimal.Decimal
	CostBasis       decimal.Decimal
	RedemptionValue decimal.Decimal
	Gain            decimal.Decimal
	GainType        GainType
	FundType        FundType
	TaxAmount       decimal.Decimal
}

// EquityTax is the tax payable on equity-fund gains for one financial year.
type EquityTax struct {
	LtcgTotal   decimal.Decimal
	LtcgTaxable decimal.Decimal
	LtcgTax     decimal.Decimal
	StcgTotal   decimal.Decimal
	StcgTax     decimal.Decimal
	TotalTax    decimal.Decimal
}

// TaxSummary aggregates realized gains by gain type and fund type. Debt
// gains are reported untaxed: the slab rate belongs to the investor.
type TaxSummary struct {
	Equity        EquityTax
	DebtGainTotal decimal.Decimal
	EventCount    int
}
