package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxnType string

const (
	TxnPurchase   TxnType = "Purchase"
	TxnSIP        TxnType = "SIP"
	TxnRedemption TxnType = "Redemption"
	TxnSwitchIn   TxnType = "Switch-In"
	TxnSwitchOut  TxnType = "Switch-Out"
)

// IsBuy reports whether the transaction opens a tax lot.
func (t TxnType) IsBuy() bool {
	return t == TxnPurchase || t == TxnSIP || t == TxnSwitchIn
}

// IsSell reports whether the transaction consumes tax lots.
func (t TxnType) IsSell() bool {
	return t == TxnRedemption || t == TxnSwitchOut
}

// Transaction is one normalized CAMS ledger row. Units are negative for
// redemptions, amounts are signed the same way. Nav is nil when the
// statement carried no per-unit price.
type Transaction struct {
	Folio      string
	SchemeName string
	Date       time.Time
	TxnType    TxnType
	Amount     decimal.Decimal
	Units      decimal.Decimal
	Nav        *decimal.Decimal
}

// Key returns the dedup identity (folio, date, units).
func (t Transaction) Key() string {
	return t.Folio + "|" + t.Date.Format("2006-01-02") + "|" + t.Units.String()
}
