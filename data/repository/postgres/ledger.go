package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shiveeg1/fund-agent/internal/converter/dbConverter"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/internal/model/dbModel"
	"github.com/shiveeg1/fund-agent/utils"
)

// UpsertTransactions writes the parsed CAMS ledger. The (folio, txn_date,
// units) unique index absorbs rows seen in earlier statement imports.
func (r *Postgres) UpsertTransactions(ctx context.Context, txns []model.Transaction) (inserted int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("UpsertTransactions start", slog.String("rqID", rqID), slog.Int("txns", len(txns)))
	defer func() {
		if err != nil {
			slog.Error("UpsertTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertTransactions completed", slog.String("rqID", rqID), slog.Int("inserted", inserted))
		}
	}()

	if len(txns) == 0 {
		return 0, nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(txns)*7)

	sb.WriteString(`INSERT INTO transactions (folio, scheme_name, txn_date, txn_type, amount, units, nav) VALUES `)

	for i, txn := range txns {
		dbTxn := dbConverter.ConvertTransactionToDb(txn)
		args = append(args, dbTxn.Folio, dbTxn.SchemeName, dbTxn.TxnDate, dbTxn.TxnType, dbTxn.Amount, dbTxn.Units, dbTxn.Nav)

		start := i*7 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5, start+6,
		))

		if i < len(txns)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(` ON CONFLICT (folio, txn_date, units) DO NOTHING`)

	res, err := r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

func (r *Postgres) GetTransactions(ctx context.Context) (txns []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT folio, scheme_name, txn_date, txn_type, amount, units, nav
		FROM transactions
		ORDER BY txn_date, folio, scheme_name
		`

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactions completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbTxn dbModel.Transaction
		err = rows.StructScan(&dbTxn)
		if err != nil {
			return nil, err
		}
		txns = append(txns, dbConverter.ConvertTransaction(dbTxn))
	}

	return txns, nil
}

// UpsertNavHistory appends NAV observations, replacing a same-day value if
// the feed republished it.
func (r *Postgres) UpsertNavHistory(ctx context.Context, navs []model.PriceRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("UpsertNavHistory start", slog.String("rqID", rqID), slog.Int("navs", len(navs)))
	defer func() {
		if err != nil {
			slog.Error("UpsertNavHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertNavHistory completed", slog.String("rqID", rqID))
		}
	}()

	if len(navs) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(navs)*4)

	sb.WriteString(`INSERT INTO nav_history (scheme_code, scheme_name, nav, as_of_date) VALUES `)

	for i, nav := range navs {
		args = append(args, nav.SchemeCode, nav.SchemeName, nav.Nav, nav.AsOfDate)

		start := i*4 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d)", start, start+1, start+2, start+3))

		if i < len(navs)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(` ON CONFLICT (scheme_code, as_of_date) DO UPDATE SET nav = EXCLUDED.nav, scheme_name = EXCLUDED.scheme_name`)

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetNavHistory(ctx context.Context) (navs []model.PriceRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT scheme_code, scheme_name, nav, as_of_date
		FROM nav_history
		ORDER BY scheme_code, as_of_date
		`

	slog.Debug("GetNavHistory start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetNavHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetNavHistory completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbNav dbModel.NavRecord
		err = rows.StructScan(&dbNav)
		if err != nil {
			return nil, err
		}
		navs = append(navs, dbConverter.ConvertNavRecord(dbNav))
	}

	return navs, nil
}

// ReplaceHoldings swaps the composition snapshot of one scheme for the
// freshly disclosed one. Runs inside the caller's transaction when present.
func (r *Postgres) ReplaceHoldings(ctx context.Context, schemeCode string, holdings []model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("ReplaceHoldings start", slog.String("rqID", rqID), slog.String("schemeCode", schemeCode), slog.Int("holdings", len(holdings)))
	defer func() {
		if err != nil {
			slog.Error("ReplaceHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ReplaceHoldings completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, `DELETE FROM holdings WHERE scheme_code = $1`, schemeCode)
	if err != nil {
		return err
	}

	if len(holdings) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(holdings)*5)

	sb.WriteString(`INSERT INTO holdings (scheme_code, isin, stock_name, weight_pct, as_of_date) VALUES `)

	for i, h := range holdings {
		args = append(args, h.SchemeCode, h.Isin, h.StockName, h.WeightPct, h.AsOfDate)

		start := i*5 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", start, start+1, start+2, start+3, start+4))

		if i < len(holdings)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetHoldings(ctx context.Context) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT scheme_code, isin, stock_name, weight_pct, as_of_date
		FROM holdings
		ORDER BY scheme_code, isin
		`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	return holdings, nil
}

// GetPortfolioSchemeNames returns the distinct scheme names present in the
// transaction ledger, the set the analytics run operates on.
func (r *Postgres) GetPortfolioSchemeNames(ctx context.Context) (names []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT DISTINCT scheme_name FROM transactions ORDER BY scheme_name`

	slog.Debug("GetPortfolioSchemeNames start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolioSchemeNames failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolioSchemeNames completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &names, query)
	if err != nil {
		return nil, err
	}

	return names, nil
}
