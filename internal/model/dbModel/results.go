package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type MetricRecord struct {
	RunID       string    `db:"run_id"`
	SchemeName  string    `db:"scheme_name"`
	Xirr        *float64  `db:"xirr"`
	Cagr        *float64  `db:"cagr"`
	Sharpe      *float64  `db:"sharpe"`
	Sortino     *float64  `db:"sortino"`
	Beta        *float64  `db:"beta"`
	Alpha       *float64  `db:"alpha"`
	MaxDrawdown *float64  `db:"max_drawdown"`
	Volatility  *float64  `db:"volatility"`
	CreatedAt   time.Time `db:"dt_create"`
}

type TaxEvent struct {
	RunID           string          `db:"run_id"`
	Folio           string          `db:"folio"`
	SchemeName      string          `db:"scheme_name"`
	RedemptionDate  time.Time       `db:"redemption_date"`
	PurchaseDate    time.Time       `db:"purchase_date"`
	Units           decimal.Decimal `db:"units"`
	CostBasis       decimal.Decimal `db:"cost_basis"`
	RedemptionValue decimal.Decimal `db:"redemption_value"`
	Gain            decimal.Decimal `db:"gain"`
	GainType        string          `db:"gain_type"`
	FundType        string          `db:"fund_type"`
	TaxAmount       decimal.Decimal `db:"tax_amount"`
}

type OverlapRecord struct {
	RunID              string  `db:"run_id"`
	FundA              string  `db:"fund_a"`
	FundB              string  `db:"fund_b"`
	JaccardOverlap     float64 `db:"jaccard_overlap"`
	WeightedOverlapPct float64 `db:"weighted_overlap_pct"`
	CommonStocks       int     `db:"common_stocks"`
}
