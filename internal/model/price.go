package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one NAV observation for one scheme on one date.
type PriceRecord struct {
	SchemeCode string
	SchemeName string
	Nav        decimal.Decimal
	AsOfDate   time.Time
}

// Holding is one security position inside a fund composition snapshot.
type Holding struct {
	SchemeCode string
	Isin       string
	StockName  string
	WeightPct  float64
	AsOfDate   time.Time
}

// TERRecord is one expense-ratio observation for a scheme.
type TERRecord struct {
	SchemeCode    string
	SchemeName    string
	TerPct        float64
	EffectiveDate time.Time
}

// PeerRecord holds category benchmark data for a scheme.
type PeerRecord struct {
	SchemeCode    string
	SchemeName    string
	Category      string
	CategoryAvg1Y float64
	CategoryAvg3Y float64
	PeerRank      int
}
