package metricsEngine

import (
	"fmt"
	"math"
	"time"

	"github.com/shiveeg1/fund-agent/internal/engine"
	"gonum.org/v1/gonum/stat"
)

// Cashflow is one dated signed flow: investments negative, proceeds positive.
type Cashflow struct {
	Date   time.Time
	Amount float64
}

// CAGR computes the compound annual growth rate between two NAV points.
func CAGR(navStart, navEnd, years float64) (float64, error) {
	if years <= 0 || navStart <= 0 {
		return 0, fmt.Errorf("%w: years and navStart must be positive", engine.ErrInvalidInput)
	}
	return math.Pow(navEnd/navStart, 1/years) - 1, nil
}

// XIRR solves for the rate r where the net present value of the dated flows
// is zero. Newton-Raphson first, bisection on a bracketing interval when
// Newton diverges. Flows must contain at least one sign change.
func XIRR(flows []Cashflow) (float64, error) {
	if len(flows) < 2 {
		return 0, fmt.Errorf("%w: need at least two cashflows", engine.ErrInvalidInput)
	}
	if !hasSignChange(flows) {
		return 0, fmt.Errorf("%w: cashflows must contain at least one sign change", engine.ErrInvalidInput)
	}

	base := flows[0].Date
	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(base).Hours() / 24 / 365
	}

	npv := func(r float64) float64 {
		var s float64
		for i, f := range flows {
			s += f.Amount / math.Pow(1+r, years[i])
		}
		return s
	}
	dnpv := func(r float64) float64 {
		var s float64
		for i, f := range flows {
			if years[i] == 0 {
				continue
			}
			s -= years[i] * f.Amount / math.Pow(1+r, years[i]+1)
		}
		return s
	}

	r := 0.1
	for i := 0; i < 100; i++ {
		f := npv(r)
		if math.Abs(f) < 1e-9 {
			return r, nil
		}
		df := dnpv(r)
		if math.Abs(df) < 1e-12 {
			break
		}
		next := r - f/df
		if math.IsNaN(next) || next <= -1 {
			break
		}
		if math.Abs(next-r) < 1e-9 {
			return next, nil
		}
		r = next
	}

	// Newton failed to converge: bisect over (-1, +10].
	lo, hi := -0.999999, 10.0
	fLo := npv(lo)
	if fLo*npv(hi) > 0 {
		return 0, fmt.Errorf("%w: no IRR in bracket (-1, 10]", engine.ErrInvalidInput)
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fMid := npv(mid)
		if math.Abs(fMid) < 1e-9 || hi-lo < 1e-10 {
			return mid, nil
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo = mid
			fLo = fMid
		}
	}
	return (lo + hi) / 2, nil
}

// Sharpe computes the annualized Sharpe ratio from periodic returns.
// Zero sample standard deviation yields 0.0, not an error.
func Sharpe(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}
	std := stat.StdDev(returns, nil)
	if std == 0 {
		return 0
	}
	periodicRf := riskFreeRate / float64(periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - periodicRf
	}
	return stat.Mean(excess, nil) / std * math.Sqrt(float64(periodsPerYear))
}

// Sortino computes the annualized Sortino ratio. The downside deviation is
// the RMS of returns strictly below the periodic MAR; when no observation
// falls below the MAR the ratio is defined as 0.0.
func Sortino(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}
	mar := riskFreeRate / float64(periodsPerYear)

	var downsideSq float64
	downsideN := 0
	for _, r := range returns {
		if r < mar {
			downsideSq += r * r
			downsideN++
		}
	}
	if downsideN == 0 {
		return 0
	}
	downsideDev := math.Sqrt(downsideSq / float64(downsideN))
	if downsideDev == 0 {
		return 0
	}
	return (stat.Mean(returns, nil) - mar) / downsideDev * math.Sqrt(float64(periodsPerYear))
}

// Beta computes cov(fund, benchmark) / var(benchmark). Series must be
// index-aligned and equally long. Zero benchmark variance yields 0.0.
func Beta(fundReturns, benchmarkReturns []float64) (float64, error) {
	if len(fundReturns) != len(benchmarkReturns) {
		return 0, fmt.Errorf("%w: series lengths differ (%d vs %d)", engine.ErrInvalidInput, len(fundReturns), len(benchmarkReturns))
	}
	if len(fundReturns) < 2 {
		return 0, fmt.Errorf("%w: need at least two aligned returns", engine.ErrInvalidInput)
	}
	variance := stat.Variance(benchmarkReturns, nil)
	if variance == 0 {
		return 0, nil
	}
	return stat.Covariance(fundReturns, benchmarkReturns, nil) / variance, nil
}

// MaxDrawdown returns the most negative peak-to-trough drop of the price
// series, always <= 0.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	maxDD := 0.0
	peak := prices[0]
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			dd := (p - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Volatility is the annualized sample standard deviation of returns.
func Volatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(float64(periodsPerYear))
}

// PeriodReturns converts a price series into simple per-period returns.
func PeriodReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}

func hasSignChange(flows []Cashflow) bool {
	hasNeg, hasPos := false, false
	for _, f := range flows {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	return hasNeg && hasPos
}
