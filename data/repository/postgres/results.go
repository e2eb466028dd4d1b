package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shiveeg1/fund-agent/internal/converter/dbConverter"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/utils"
)

// InsertMetrics stores the per-fund analytics of one run. Runs are append
// only, the run_id keys the latest snapshot.
func (r *Postgres) InsertMetrics(ctx context.Context, runID string, metrics []model.MetricRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("InsertMetrics start", slog.String("rqID", rqID), slog.String("runID", runID), slog.Int("metrics", len(metrics)))
	defer func() {
		if err != nil {
			slog.Error("InsertMetrics failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertMetrics completed", slog.String("rqID", rqID))
		}
	}()

	if len(metrics) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(metrics)*11)

	sb.WriteString(`INSERT INTO metrics (run_id, scheme_name, xirr, cagr, sharpe, sortino, beta, alpha, max_drawdown, volatility, dt_create) VALUES `)

	now := time.Now()
	for i, m := range metrics {
		dbMetric := dbConverter.ConvertMetricToDb(runID, m)
		args = append(args,
			dbMetric.RunID, dbMetric.SchemeName, dbMetric.Xirr, dbMetric.Cagr, dbMetric.Sharpe,
			dbMetric.Sortino, dbMetric.Beta, dbMetric.Alpha, dbMetric.MaxDrawdown, dbMetric.Volatility, now,
		)

		start := i*11 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5, start+6, start+7, start+8, start+9, start+10,
		))

		if i < len(metrics)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) InsertTaxEvents(ctx context.Context, runID string, events []model.TaxEvent) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("InsertTaxEvents start", slog.String("rqID", rqID), slog.String("runID", runID), slog.Int("events", len(events)))
	defer func() {
		if err != nil {
			slog.Error("InsertTaxEvents failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTaxEvents completed", slog.String("rqID", rqID))
		}
	}()

	if len(events) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(events)*12)

	sb.WriteString(`INSERT INTO tax_events (run_id, folio, scheme_name, redemption_date, purchase_date, units, cost_basis, redemption_value, gain, gain_type, fund_type, tax_amount) VALUES `)

	for i, e := range events {
		dbEvent := dbConverter.ConvertTaxEventToDb(runID, e)
		args = append(args,
			dbEvent.RunID, dbEvent.Folio, dbEvent.SchemeName, dbEvent.RedemptionDate, dbEvent.PurchaseDate,
			dbEvent.Units, dbEvent.CostBasis, dbEvent.RedemptionValue, dbEvent.Gain, dbEvent.GainType,
			dbEvent.FundType, dbEvent.TaxAmount,
		)

		start := i*12 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5, start+6, start+7, start+8, start+9, start+10, start+11,
		))

		if i < len(events)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	return nil
}

// SaveRunNarrative stores the digest and generated narrative of one run.
func (r *Postgres) SaveRunNarrative(ctx context.Context, runID, digest, narrative string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SaveRunNarrative start", slog.String("rqID", rqID), slog.String("runID", runID))
	defer func() {
		if err != nil {
			slog.Error("SaveRunNarrative failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SaveRunNarrative completed", slog.String("rqID", rqID))
		}
	}()

	query := `INSERT INTO runs (run_id, digest, narrative, dt_create) VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE SET digest = EXCLUDED.digest, narrative = EXCLUDED.narrative`

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, runID, digest, narrative, time.Now())
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) InsertOverlaps(ctx context.Context, runID string, overlaps []model.OverlapRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("InsertOverlaps start", slog.String("rqID", rqID), slog.String("runID", runID), slog.Int("overlaps", len(overlaps)))
	defer func() {
		if err != nil {
			slog.Error("InsertOverlaps failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertOverlaps completed", slog.String("rqID", rqID))
		}
	}()

	if len(overlaps) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(overlaps)*6)

	sb.WriteString(`INSERT INTO overlaps (run_id, fund_a, fund_b, jaccard_overlap, weighted_overlap_pct, common_stocks) VALUES `)

	for i, o := range overlaps {
		dbOverlap := dbConverter.ConvertOverlapToDb(runID, o)
		args = append(args,
			dbOverlap.RunID, dbOverlap.FundA, dbOverlap.FundB,
			dbOverlap.JaccardOverlap, dbOverlap.WeightedOverlapPct, dbOverlap.CommonStocks,
		)

		start := i*6 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5,
		))

		if i < len(overlaps)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}

	return nil
}
