package taxEngine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shiveeg1/fund-agent/internal/engine"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/utils"
	"github.com/shopspring/decimal"
)

// Rules holds the capital-gains parameters for one financial year. These
// change with the budget, so they arrive from configuration.
type Rules struct {
	LTCGExemption     decimal.Decimal
	LTCGRate          decimal.Decimal
	STCGRate          decimal.Decimal
	EquityHoldingDays int
}

// DefaultRules returns the Indian FY 2024-25 regime: equity LTCG 12.5%
// above a 1.25L exemption, equity STCG flat 20%, 365-day equity threshold.
func DefaultRules() Rules {
	return Rules{
		LTCGExemption:     decimal.NewFromInt(125000),
		LTCGRate:          decimal.NewFromFloat(0.125),
		STCGRate:          decimal.NewFromFloat(0.20),
		EquityHoldingDays: 365,
	}
}

// SchemeClassifier decides whether a scheme is an equity fund.
type SchemeClassifier func(schemeName string) model.FundType

// ClassifyByName is the default classifier: debt-sounding scheme names are
// debt, everything else equity.
func ClassifyByName(schemeName string) model.FundType {
	lower := strings.ToLower(schemeName)
	for _, kw := range []string{"debt", "liquid", "gilt", "bond", "overnight", "money market", "corporate bond", "banking & psu"} {
		if strings.Contains(lower, kw) {
			return model.FundDebt
		}
	}
	return model.FundEquity
}

// InsufficientLotsError reports a redemption that exhausted every open lot
// for its (folio, scheme) key before being fully matched. It signals an
// ingestion gap, not a computable result.
type InsufficientLotsError struct {
	Folio          string
	Scheme         string
	UnmatchedUnits decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots for folio %s scheme %q: %s units unmatched", e.Folio, e.Scheme, e.UnmatchedUnits)
}

// ClassifyHolding returns the gain type for a holding period. Equity funds
// held at least the threshold are LTCG; debt funds are always STCG under
// the post April 2023 rules.
func ClassifyHolding(purchaseDate, redemptionDate time.Time, fundType model.FundType, equityHoldingDays int) model.GainType {
	if fundType != model.FundEquity {
		return model.GainSTCG
	}
	holdingDays := int(redemptionDate.Sub(purchaseDate).Hours() / 24)
	if holdingDays >= equityHoldingDays {
		return model.GainLTCG
	}
	return model.GainSTCG
}

// lotQueue is the FIFO state for one (folio, scheme) key.
type lotQueue struct {
	lots []model.TaxLot
}

func (q *lotQueue) push(lot model.TaxLot) {
	q.lots = append(q.lots, lot)
}

// consume matches units against the queue front-first, returning the
// matched (lot, units) portions. The queue is mutated in place.
func (q *lotQueue) consume(units decimal.Decimal) ([]matchedPortion, decimal.Decimal) {
	var portions []matchedPortion
	remaining := units
	for remaining.IsPositive() && len(q.lots) > 0 {
		lot := &q.lots[0]
		matched := decimal.Min(lot.UnitsRemaining, remaining)

		portions = append(portions, matchedPortion{
			openDate:    lot.OpenDate,
			units:       matched,
			costPerUnit: lot.CostPerUnit,
		})

		lot.UnitsRemaining = lot.UnitsRemaining.Sub(matched)
		remaining = remaining.Sub(matched)

		if lot.UnitsRemaining.IsZero() {
			q.lots = q.lots[1:]
		}
	}
	return portions, remaining
}

type matchedPortion struct {
	openDate    time.Time
	units       decimal.Decimal
	costPerUnit decimal.Decimal
}

// ComputeTaxLiability replays the ledger chronologically through per-key
// FIFO lot queues, emitting one TaxEvent per (lot, redemption) pairing and
// an aggregate summary. Each (folio, scheme) key is computed independently:
// a key that fails (zero-units buy, unmatched redemption) contributes no
// events and its error is joined into the returned error, while the other
// keys still complete. Events and summary are valid even when err != nil.
func ComputeTaxLiability(ctx context.Context, transactions []model.Transaction, prices []model.PriceRecord, rules Rules, classify SchemeClassifier) ([]model.TaxEvent, model.TaxSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "taxEngine.ComputeTaxLiability"

	if classify == nil {
		classify = ClassifyByName
	}

	byKey := make(map[string][]model.Transaction)
	keys := make([]string, 0)
	for _, t := range transactions {
		key := t.Folio + "|" + t.SchemeName
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], t)
	}
	sort.Strings(keys)

	navIndex := buildNavIndex(prices)

	var events []model.TaxEvent
	var errs []error
	for _, key := range keys {
		keyEvents, err := matchKey(ctx, byKey[key], navIndex, rules, classify)
		if err != nil {
			slog.Error("tax matching failed for key",
				slog.String("rqID", rqID), slog.String("op", op),
				slog.String("key", key), slog.String("err", err.Error()))
			errs = append(errs, err)
			continue
		}
		events = append(events, keyEvents...)
	}

	summary := Summarize(events, rules)

	slog.Debug("tax liability computed",
		slog.String("rqID", rqID), slog.String("op", op),
		slog.Int("events", len(events)), slog.Int("failedKeys", len(errs)))

	return events, summary, errors.Join(errs...)
}

// matchKey runs the FIFO state machine for one (folio, scheme) key over its
// chronologically ordered transactions.
func matchKey(ctx context.Context, txns []model.Transaction, navIndex map[string][]model.PriceRecord, rules Rules, classify SchemeClassifier) ([]model.TaxEvent, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "taxEngine.matchKey"

	ordered := make([]model.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	q := &lotQueue{}
	var events []model.TaxEvent

	for _, txn := range ordered {
		switch {
		case txn.TxnType.IsBuy():
			if txn.Units.IsZero() {
				return nil, fmt.Errorf("%w: zero units on buy %s %s", engine.ErrInvalidInput, txn.Folio, txn.Date.Format("2006-01-02"))
			}
			q.push(model.TaxLot{
				Folio:          txn.Folio,
				SchemeName:     txn.SchemeName,
				OpenDate:       txn.Date,
				UnitsRemaining: txn.Units.Abs(),
				CostPerUnit:    txn.Amount.Abs().Div(txn.Units.Abs()),
			})

		case txn.TxnType.IsSell():
			units := txn.Units.Abs()
			if units.IsZero() {
				return nil, fmt.Errorf("%w: zero units on sell %s %s", engine.ErrInvalidInput, txn.Folio, txn.Date.Format("2006-01-02"))
			}
			portions, unmatched := q.consume(units)
			if unmatched.IsPositive() {
				return nil, &InsufficientLotsError{
					Folio:          txn.Folio,
					Scheme:         txn.SchemeName,
					UnmatchedUnits: unmatched,
				}
			}

			nav, ok := redemptionNav(txn, navIndex)
			if !ok {
				slog.Warn("no NAV for redemption, using amount/units",
					slog.String("rqID", rqID), slog.String("op", op),
					slog.String("scheme", txn.SchemeName), slog.Time("date", txn.Date))
				nav = txn.Amount.Abs().Div(units)
			}

			fundType := classify(txn.SchemeName)
			for _, p := range portions {
				gainType := ClassifyHolding(p.openDate, txn.Date, fundType, rules.EquityHoldingDays)
				costBasis := p.units.Mul(p.costPerUnit)
				redemptionValue := p.units.Mul(nav)
				gain := redemptionValue.Sub(costBasis)

				events = append(events, model.TaxEvent{
					Folio:           txn.Folio,
					SchemeName:      txn.SchemeName,
					RedemptionDate:  txn.Date,
					PurchaseDate:    p.openDate,
					Units:           p.units,
					CostBasis:       costBasis,
					RedemptionValue: redemptionValue,
					Gain:            gain,
					GainType:        gainType,
					FundType:        fundType,
					TaxAmount:       eventTax(gain, gainType, fundType, rules),
				})
			}
		}
	}

	return events, nil
}

// Summarize groups tax events by gain type and fund type and computes the
// equity tax payable. Debt gains are reported untaxed.
func Summarize(events []model.TaxEvent, rules Rules) model.TaxSummary {
	var ltcgTotal, stcgTotal, debtTotal decimal.Decimal
	for _, e := range events {
		if e.FundType == model.FundDebt {
			debtTotal = debtTotal.Add(e.Gain)
			continue
		}
		if e.GainType == model.GainLTCG {
			ltcgTotal = ltcgTotal.Add(e.Gain)
		} else {
			stcgTotal = stcgTotal.Add(e.Gain)
		}
	}

	return model.TaxSummary{
		Equity:        ComputeEquityTax(ltcgTotal, stcgTotal, rules),
		DebtGainTotal: debtTotal,
		EventCount:    len(events),
	}
}

// ComputeEquityTax applies the LTCG exemption and the flat rates to equity
// gain totals.
func ComputeEquityTax(ltcgTotal, stcgTotal decimal.Decimal, rules Rules) model.EquityTax {
	ltcgTaxable := decimal.Max(decimal.Zero, ltcgTotal.Sub(rules.LTCGExemption))
	ltcgTax := ltcgTaxable.Mul(rules.LTCGRate)
	stcgTax := stcgTotal.Mul(rules.STCGRate)
	return model.EquityTax{
		LtcgTotal:   ltcgTotal,
		LtcgTaxable: ltcgTaxable,
		LtcgTax:     ltcgTax,
		StcgTotal:   stcgTotal,
		StcgTax:     stcgTax,
		TotalTax:    ltcgTax.Add(stcgTax),
	}
}

// eventTax prices a single event at the marginal rate for its class. Debt
// events carry no tax here: the slab rate is the investor's.
func eventTax(gain decimal.Decimal, gainType model.GainType, fundType model.FundType, rules Rules) decimal.Decimal {
	if fundType == model.FundDebt || gain.IsNegative() {
		return decimal.Zero
	}
	if gainType == model.GainLTCG {
		return gain.Mul(rules.LTCGRate)
	}
	return gain.Mul(rules.STCGRate)
}

// buildNavIndex maps scheme name to date-sorted price records.
func buildNavIndex(prices []model.PriceRecord) map[string][]model.PriceRecord {
	idx := make(map[string][]model.PriceRecord)
	for _, p := range prices {
		idx[p.SchemeName] = append(idx[p.SchemeName], p)
	}
	for scheme := range idx {
		recs := idx[scheme]
		sort.Slice(recs, func(i, j int) bool { return recs[i].AsOfDate.Before(recs[j].AsOfDate) })
		idx[scheme] = recs
	}
	return idx
}

// redemptionNav resolves the redemption price: the transaction NAV when the
// statement carried one, else the latest price record on or before the
// redemption date.
func redemptionNav(txn model.Transaction, navIndex map[string][]model.PriceRecord) (decimal.Decimal, bool) {
	if txn.Nav != nil && !txn.Nav.IsZero() {
		return *txn.Nav, true
	}
	recs := navIndex[txn.SchemeName]
	for i := len(recs) - 1; i >= 0; i-- {
		if !recs[i].AsOfDate.After(txn.Date) {
			return recs[i].Nav, true
		}
	}
	return decimal.Zero, false
}
