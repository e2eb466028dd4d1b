package model

// MetricRecord is the per-fund analytics output. Metric fields are pointers:
// nil means "not computable from the available data", which callers must be
// able to tell apart from a legitimate zero.
type MetricRecord struct {
	SchemeName  string
	Xirr        *float64
	Cagr        *float64
	Sharpe      *float64
	Sortino     *float64
	Beta        *float64
	Alpha       *float64
	MaxDrawdown *float64
	Volatility  *float64
}

// OverlapRecord is the pairwise concentration result for one unordered fund
// pair (FundA < FundB lexically, each pair reported once).
type OverlapRecord struct {
	FundA              string
	FundB              string
	JaccardOverlap     float64
	WeightedOverlapPct float64
	CommonStocks       int
}
