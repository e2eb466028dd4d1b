package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	Folio      string           `db:"folio"`
	SchemeName string           `db:"scheme_name"`
	TxnDate    time.Time        `db:"txn_date"`
	TxnType    string           `db:"txn_type"`
	Amount     decimal.Decimal  `db:"amount"`
	Units      decimal.Decimal  `db:"units"`
	Nav        *decimal.Decimal `db:"nav"`
}

type NavRecord struct {
	SchemeCode string          `db:"scheme_code"`
	SchemeName string          `db:"scheme_name"`
	Nav        decimal.Decimal `db:"nav"`
	AsOfDate   time.Time       `db:"as_of_date"`
}

type Holding struct {
	SchemeCode string    `db:"scheme_code"`
	Isin       string    `db:"isin"`
	StockName  string    `db:"stock_name"`
	WeightPct  float64   `db:"weight_pct"`
	AsOfDate   time.Time `db:"as_of_date"`
}
