package metricsEngine

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/utils"
)

// Options configures the aggregation run. The benchmark series for
// Beta/Alpha is an explicit input: it is never inferred from the price
// history. Leave BenchmarkReturns nil to skip Beta/Alpha.
type Options struct {
	RiskFreeRate     float64
	PeriodsPerYear   int
	BenchmarkReturns []float64
	// BenchmarkAnnualReturn feeds the Alpha estimate (CAPM expected return).
	BenchmarkAnnualReturn *float64
}

// ComputeAllMetrics produces one MetricRecord per scheme found in the
// ledger or price history. Funds with fewer than two price observations or
// no cashflows keep nil metric fields: they are reported, not dropped.
func ComputeAllMetrics(ctx context.Context, transactions []model.Transaction, prices []model.PriceRecord, opts Options) []model.MetricRecord {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "metricsEngine.ComputeAllMetrics"

	txnsByScheme := make(map[string][]model.Transaction)
	for _, t := range transactions {
		txnsByScheme[t.SchemeName] = append(txnsByScheme[t.SchemeName], t)
	}

	pricesByScheme := make(map[string][]model.PriceRecord)
	for _, p := range prices {
		pricesByScheme[p.SchemeName] = append(pricesByScheme[p.SchemeName], p)
	}

	schemes := make(map[string]struct{})
	for s := range txnsByScheme {
		schemes[s] = struct{}{}
	}
	for s := range pricesByScheme {
		schemes[s] = struct{}{}
	}

	names := make([]string, 0, len(schemes))
	for s := range schemes {
		names = append(names, s)
	}
	sort.Strings(names)

	records := make([]model.MetricRecord, 0, len(names))
	for _, scheme := range names {
		rec := computeFundMetrics(scheme, txnsByScheme[scheme], pricesByScheme[scheme], opts)
		records = append(records, rec)
	}

	slog.Debug("metrics aggregation complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("funds", len(records)))

	return records
}

func computeFundMetrics(scheme string, txns []model.Transaction, prices []model.PriceRecord, opts Options) model.MetricRecord {
	rec := model.MetricRecord{SchemeName: scheme}

	if len(prices) < 2 || len(txns) == 0 {
		return rec
	}

	sort.Slice(prices, func(i, j int) bool { return prices[i].AsOfDate.Before(prices[j].AsOfDate) })
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

	navSeries := make([]float64, len(prices))
	for i, p := range prices {
		navSeries[i], _ = p.Nav.Float64()
	}
	returns := PeriodReturns(navSeries)

	// Risk metrics from the price-derived return series.
	sharpe := Sharpe(returns, opts.RiskFreeRate, opts.PeriodsPerYear)
	rec.Sharpe = &sharpe
	sortino := Sortino(returns, opts.RiskFreeRate, opts.PeriodsPerYear)
	rec.Sortino = &sortino
	vol := Volatility(returns, opts.PeriodsPerYear)
	rec.Volatility = &vol
	mdd := MaxDrawdown(navSeries)
	rec.MaxDrawdown = &mdd

	if opts.BenchmarkReturns != nil {
		if beta, err := Beta(returns, opts.BenchmarkReturns); err == nil {
			rec.Beta = &beta
		}
	}

	// Return metrics from the cashflow series: each signed ledger amount on
	// its date, plus a synthetic terminal redemption of the net held units
	// valued at the latest NAV.
	flows := buildCashflows(txns, prices[len(prices)-1])
	if len(flows) >= 2 {
		if x, err := XIRR(flows); err == nil {
			rec.Xirr = &x
		}
	}

	lastPrice := prices[len(prices)-1]
	years := lastPrice.AsOfDate.Sub(prices[0].AsOfDate).Hours() / 24 / 365
	firstNav, _ := prices[0].Nav.Float64()
	lastNav, _ := lastPrice.Nav.Float64()
	if cagr, err := CAGR(firstNav, lastNav, years); err == nil {
		rec.Cagr = &cagr
	}

	if rec.Beta != nil && rec.Xirr != nil && opts.BenchmarkAnnualReturn != nil {
		expected := opts.RiskFreeRate + *rec.Beta*(*opts.BenchmarkAnnualReturn-opts.RiskFreeRate)
		alpha := *rec.Xirr - expected
		rec.Alpha = &alpha
	}

	return rec
}

// buildCashflows maps the ledger onto dated flows: buys are outflows
// (negative), sells inflows (positive), closed by a synthetic redemption of
// the residual units at the latest NAV.
func buildCashflows(txns []model.Transaction, latest model.PriceRecord) []Cashflow {
	flows := make([]Cashflow, 0, len(txns)+1)
	netUnits := 0.0
	for _, t := range txns {
		amt, _ := t.Amount.Abs().Float64()
		units, _ := t.Units.Abs().Float64()
		if t.TxnType.IsBuy() {
			flows = append(flows, Cashflow{Date: t.Date, Amount: -amt})
			netUnits += units
		} else if t.TxnType.IsSell() {
			flows = append(flows, Cashflow{Date: t.Date, Amount: amt})
			netUnits -= units
		}
	}

	if netUnits > 0 {
		nav, _ := latest.Nav.Float64()
		flows = append(flows, Cashflow{Date: latest.AsOfDate, Amount: netUnits * nav})
	}
	return flows
}
