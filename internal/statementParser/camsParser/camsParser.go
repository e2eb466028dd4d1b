package camsParser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/utils"
	"github.com/shopspring/decimal"
)

// Transaction types that carry financial data (amount and units populated).
// Everything else in a CAMS export is administrative noise: nominee
// registration, address updates, stamp duty rows.
var financialTxnTypes = map[string]struct{}{
	"purchase":                    {},
	"purchase systematic":         {},
	"purchase (continuous offer)": {},
	"redemption":                  {},
	"redemption of units":         {},
	"switch-in":                   {},
	"switch out":                  {},
	"systematic switch in":        {},
	"systematic transfer to - ":   {},
	"systematic transfer from - ": {},
}

type rawStatement struct {
	DtTrxnResult []rawTxn `json:"dtTrxnResult"`
}

type rawTxn struct {
	FolioNumber     string   `json:"FOLIO_NUMBER"`
	SchemeName      string   `json:"SCHEME_NAME"`
	TradeDate       string   `json:"TRADE_DATE"`
	TransactionType string   `json:"TRANSACTION_TYPE"`
	Amount          *float64 `json:"AMOUNT"`
	Units           *float64 `json:"UNITS"`
	Price           *float64 `json:"PRICE"`
}

type CamsParser struct{}

func New() *CamsParser {
	return &CamsParser{}
}

// ParseDir parses every *.json CAMS export under dir and returns the merged,
// deduplicated transaction ledger. A missing directory yields an empty
// ledger, not an error: statements are an optional input.
func (p *CamsParser) ParseDir(ctx context.Context, dir string) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CamsParser.ParseDir"

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(entries)

	if len(entries) == 0 {
		slog.Warn("no CAMS statements found", slog.String("rqID", rqID), slog.String("op", op), slog.String("dir", dir))
		return nil, nil
	}

	var all []model.Transaction
	for _, path := range entries {
		slog.Debug("parsing CAMS statement", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", path))
		txns, err := p.ParseFile(path)
		if err != nil {
			slog.Error("failed to parse CAMS statement", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", path), slog.String("err", err.Error()))
			return nil, err
		}
		all = append(all, txns...)
	}

	deduped := Dedupe(all)

	slog.Info("CAMS statements parsed",
		slog.String("rqID", rqID), slog.String("op", op),
		slog.Int("total", len(all)), slog.Int("afterDedup", len(deduped)))

	return deduped, nil
}

// ParseFile extracts the financial transaction rows from one CAMS JSON
// export, skipping administrative records.
func (p *CamsParser) ParseFile(path string) ([]model.Transaction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Parse(raw)
}

func (p *CamsParser) Parse(raw []byte) ([]model.Transaction, error) {
	var stmt rawStatement
	if err := json.Unmarshal(raw, &stmt); err != nil {
		return nil, fmt.Errorf("unmarshal CAMS statement: %w", err)
	}

	var txns []model.Transaction
	for _, rec := range stmt.DtTrxnResult {
		if rec.Amount == nil || rec.Units == nil {
			continue
		}

		txnTypeRaw := strings.TrimSpace(rec.TransactionType)
		if _, ok := financialTxnTypes[strings.ToLower(txnTypeRaw)]; !ok {
			continue
		}

		tradeDate, err := parseTradeDate(rec.TradeDate)
		if err != nil {
			return nil, fmt.Errorf("trade date %q: %w", rec.TradeDate, err)
		}

		txn := model.Transaction{
			Folio:      strings.TrimSpace(rec.FolioNumber),
			SchemeName: strings.TrimSpace(rec.SchemeName),
			Date:       tradeDate,
			TxnType:    NormalizeTxnType(txnTypeRaw),
			Amount:     decimal.NewFromFloat(*rec.Amount),
			Units:      decimal.NewFromFloat(*rec.Units),
		}
		if rec.Price != nil {
			nav := decimal.NewFromFloat(*rec.Price)
			txn.Nav = &nav
		}
		txns = append(txns, txn)
	}

	return txns, nil
}

// Dedupe drops duplicate rows by the (folio, date, units) identity, keeping
// the first occurrence. Overlapping statement exports produce duplicates.
func Dedupe(txns []model.Transaction) []model.Transaction {
	seen := make(map[string]struct{}, len(txns))
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		key := t.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeTxnType maps raw CAMS transaction type labels onto the canonical
// ledger types.
func NormalizeTxnType(raw string) model.TxnType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "switch") && strings.Contains(lower, "in"):
		return model.TxnSwitchIn
	case strings.Contains(lower, "switch") && strings.Contains(lower, "out"):
		return model.TxnSwitchOut
	case strings.Contains(lower, "transfer to"):
		return model.TxnSwitchOut
	case strings.Contains(lower, "transfer from"):
		return model.TxnSwitchIn
	case strings.Contains(lower, "systematic"):
		return model.TxnSIP
	case strings.Contains(lower, "purchase"):
		return model.TxnPurchase
	case strings.Contains(lower, "redemption"):
		return model.TxnRedemption
	}
	return model.TxnType(strings.TrimSpace(raw))
}

// parseTradeDate converts the CAMS DD-MMM-YYYY format.
func parseTradeDate(s string) (time.Time, error) {
	return time.Parse("02-Jan-2006", strings.TrimSpace(s))
}
