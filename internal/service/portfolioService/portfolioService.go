package portfolioService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/internal/engine/metricsEngine"
	"github.com/shiveeg1/fund-agent/internal/engine/overlapEngine"
	"github.com/shiveeg1/fund-agent/internal/engine/taxEngine"
	"github.com/shiveeg1/fund-agent/internal/externalApi"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/internal/model/amfiModel"
	"github.com/shiveeg1/fund-agent/internal/model/mfapiModel"
	"github.com/shiveeg1/fund-agent/internal/service"
	"github.com/shiveeg1/fund-agent/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	compositionWorkers = 4

	// Schemes with fewer stored NAV observations than this get their full
	// history backfilled from mfapi.
	backfillMinObservations = 30
)

type Repository interface {
	UpsertTransactions(ctx context.Context, txns []model.Transaction) (inserted int, err error)
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	UpsertNavHistory(ctx context.Context, navs []model.PriceRecord) error
	GetNavHistory(ctx context.Context) ([]model.PriceRecord, error)
	ReplaceHoldings(ctx context.Context, schemeCode string, holdings []model.Holding) error
	GetHoldings(ctx context.Context) ([]model.Holding, error)
	GetPortfolioSchemeNames(ctx context.Context) ([]string, error)
	InsertMetrics(ctx context.Context, runID string, metrics []model.MetricRecord) error
	InsertTaxEvents(ctx context.Context, runID string, events []model.TaxEvent) error
	InsertOverlaps(ctx context.Context, runID string, overlaps []model.OverlapRecord) error
	SaveRunNarrative(ctx context.Context, runID, digest, narrative string) error
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type StatementParser interface {
	ParseDir(ctx context.Context, dir string) ([]model.Transaction, error)
}

type AmfiApi interface {
	GetAllNavs(ctx context.Context) ([]amfiModel.NavRow, error)
}

type MfApi interface {
	GetScheme(ctx context.Context, schemeCode string) (mfapiModel.SchemeResponse, error)
	GetComposition(ctx context.Context, schemeCode string) (mfapiModel.CompositionResponse, error)
	GetTER(ctx context.Context, schemeCode string) (mfapiModel.TERResponse, error)
	GetPeers(ctx context.Context, schemeCode string) (mfapiModel.PeerResponse, error)
}

type Cache interface {
	SetNavs(ctx context.Context, rows []amfiModel.NavRow) error
	GetNav(ctx context.Context, schemeCode string) (amfiModel.NavRow, error)
}

type SheetsApi interface {
	ReplaceSheet(ctx context.Context, sheetName string, header []string, rows [][]any) error
}

type GeminiApi interface {
	Summarize(ctx context.Context, payload string) (string, error)
}

type ReportGenerator interface {
	Generate(
		ctx context.Context,
		metrics []model.MetricRecord,
		taxEvents []model.TaxEvent,
		taxSummary model.TaxSummary,
		overlaps []model.OverlapRecord,
	) (fileBytes []byte, fileExtension string, err error)
}

type PortfolioService struct {
	cfg       *config.Config
	repo      Repository
	parser    StatementParser
	amfiApi   AmfiApi
	mfApi     MfApi
	cache     Cache
	sheetsApi SheetsApi
	geminiApi GeminiApi
	reportGen ReportGenerator
}

func New(
	cfg *config.Config,
	repo Repository,
	parser StatementParser,
	amfiApi AmfiApi,
	mfApi MfApi,
	cache Cache,
	sheetsApi SheetsApi,
	geminiApi GeminiApi,
	reportGen ReportGenerator,
) *PortfolioService {
	return &PortfolioService{
		cfg:       cfg,
		repo:      repo,
		parser:    parser,
		amfiApi:   amfiApi,
		mfApi:     mfApi,
		cache:     cache,
		sheetsApi: sheetsApi,
		geminiApi: geminiApi,
		reportGen: reportGen,
	}
}

// ImportStatements parses the CAMS exports on disk into the ledger table.
func (s *PortfolioService) ImportStatements(ctx context.Context) (inserted int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ImportStatements"

	slog.Debug("ImportStatements start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ImportStatements finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("inserted", inserted))
	}()

	txns, err := s.parser.ParseDir(ctx, s.cfg.CamsStatementsDir)
	if err != nil {
		slog.Error("got error from parser.ParseDir", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	if len(txns) == 0 {
		return 0, nil
	}

	inserted, err = s.repo.UpsertTransactions(ctx, txns)
	if err != nil {
		slog.Error("got error from repo.UpsertTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return inserted, nil
}

// RefreshNavs pulls the AMFI feed, caches it, and appends NAV observations
// for the schemes present in the ledger.
func (s *PortfolioService) RefreshNavs(ctx context.Context) (updated int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshNavs"

	slog.Debug("RefreshNavs start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshNavs finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("updated", updated))
	}()

	rows, err := s.amfiApi.GetAllNavs(ctx)
	if err != nil {
		slog.Error("got error from amfiApi.GetAllNavs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	if err := s.cache.SetNavs(ctx, rows); err != nil {
		slog.Warn("can't cache nav feed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	schemeNames, err := s.repo.GetPortfolioSchemeNames(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolioSchemeNames", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	matched := matchSchemes(rows, schemeNames)

	navs := make([]model.PriceRecord, 0, len(matched))
	for schemeName, row := range matched {
		nav, err := decimal.NewFromString(row.Nav)
		if err != nil {
			slog.Warn("skipping unparsable nav", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", row.SchemeCode), slog.String("nav", row.Nav))
			continue
		}
		asOf, err := time.Parse("02-Jan-2006", row.NavDate)
		if err != nil {
			slog.Warn("skipping unparsable nav date", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", row.SchemeCode), slog.String("date", row.NavDate))
			continue
		}
		navs = append(navs, model.PriceRecord{
			SchemeCode: row.SchemeCode,
			SchemeName: schemeName,
			Nav:        nav,
			AsOfDate:   asOf,
		})
	}

	if err := s.repo.UpsertNavHistory(ctx, navs); err != nil {
		slog.Error("got error from repo.UpsertNavHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return len(navs), nil
}

// BackfillNavHistory fills thin NAV series from mfapi. The AMFI feed only
// carries the latest day, so a freshly imported scheme has too little history
// for drawdown or volatility until its full daily series is pulled once.
func (s *PortfolioService) BackfillNavHistory(ctx context.Context) (added int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BackfillNavHistory"

	slog.Debug("BackfillNavHistory start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("BackfillNavHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("added", added))
	}()

	rows, err := s.amfiApi.GetAllNavs(ctx)
	if err != nil {
		slog.Error("got error from amfiApi.GetAllNavs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	schemeNames, err := s.repo.GetPortfolioSchemeNames(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolioSchemeNames", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	stored, err := s.repo.GetNavHistory(ctx)
	if err != nil {
		slog.Error("got error from repo.GetNavHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}
	observations := make(map[string]int)
	for _, p := range stored {
		observations[p.SchemeCode]++
	}

	for schemeName, row := range matchSchemes(rows, schemeNames) {
		if observations[row.SchemeCode] >= backfillMinObservations {
			continue
		}

		scheme, err := s.mfApi.GetScheme(ctx, row.SchemeCode)
		if err != nil {
			if errors.Is(err, externalApi.ErrNotFound) {
				slog.Warn("no mfapi history for scheme", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", row.SchemeCode))
				continue
			}
			return added, fmt.Errorf("scheme history for %s: %w", row.SchemeCode, err)
		}

		navs := make([]model.PriceRecord, 0, len(scheme.Data))
		for _, d := range scheme.Data {
			nav, err := decimal.NewFromString(d.Nav)
			if err != nil {
				continue
			}
			asOf, err := time.Parse("02-01-2006", d.Date)
			if err != nil {
				continue
			}
			navs = append(navs, model.PriceRecord{
				SchemeCode: row.SchemeCode,
				SchemeName: schemeName,
				Nav:        nav,
				AsOfDate:   asOf,
			})
		}

		if err := s.repo.UpsertNavHistory(ctx, navs); err != nil {
			slog.Error("got error from repo.UpsertNavHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return added, err
		}
		added += len(navs)
	}

	return added, nil
}

// RefreshCompositions fetches the disclosed holdings of every matched scheme
// and replaces the stored snapshots. Schemes are fetched concurrently; one
// missing disclosure does not fail the rest.
func (s *PortfolioService) RefreshCompositions(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshCompositions"

	slog.Debug("RefreshCompositions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshCompositions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	rows, err := s.amfiApi.GetAllNavs(ctx)
	if err != nil {
		slog.Error("got error from amfiApi.GetAllNavs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	schemeNames, err := s.repo.GetPortfolioSchemeNames(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolioSchemeNames", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	matched := matchSchemes(rows, schemeNames)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(compositionWorkers)

	for _, row := range matched {
		g.Go(func() error {
			comp, err := s.mfApi.GetComposition(gCtx, row.SchemeCode)
			if err != nil {
				if errors.Is(err, externalApi.ErrNotFound) {
					slog.Warn("no composition disclosed", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", row.SchemeCode))
					return nil
				}
				return fmt.Errorf("composition for %s: %w", row.SchemeCode, err)
			}

			holdings := make([]model.Holding, 0, len(comp.Holdings))
			for _, h := range comp.Holdings {
				asOf, err := time.Parse("2006-01-02", h.AsOfDate)
				if err != nil {
					asOf = time.Time{}
				}
				holdings = append(holdings, model.Holding{
					SchemeCode: row.SchemeCode,
					Isin:       h.Isin,
					StockName:  h.Name,
					WeightPct:  h.WeightPct,
					AsOfDate:   asOf,
				})
			}

			return s.repo.ReplaceHoldings(gCtx, row.SchemeCode, holdings)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("composition refresh failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// FetchFundFacts pulls expense ratios and category comparisons for every
// matched scheme. Schemes without a disclosure are skipped.
func (s *PortfolioService) FetchFundFacts(ctx context.Context) (ters []model.TERRecord, peers []model.PeerRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.FetchFundFacts"

	slog.Debug("FetchFundFacts start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("FetchFundFacts finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("ters", len(ters)), slog.Int("peers", len(peers)))
	}()

	rows, err := s.amfiApi.GetAllNavs(ctx)
	if err != nil {
		slog.Error("got error from amfiApi.GetAllNavs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, nil, err
	}

	schemeNames, err := s.repo.GetPortfolioSchemeNames(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolioSchemeNames", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, nil, err
	}

	matched := matchSchemes(rows, schemeNames)

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(compositionWorkers)

	for schemeName, row := range matched {
		g.Go(func() error {
			ter, err := s.mfApi.GetTER(gCtx, row.SchemeCode)
			if err != nil && !errors.Is(err, externalApi.ErrNotFound) {
				return fmt.Errorf("ter for %s: %w", row.SchemeCode, err)
			}
			peer, peerErr := s.mfApi.GetPeers(gCtx, row.SchemeCode)
			if peerErr != nil && !errors.Is(peerErr, externalApi.ErrNotFound) {
				return fmt.Errorf("peers for %s: %w", row.SchemeCode, peerErr)
			}

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				effective, _ := time.Parse("2006-01-02", ter.EffectiveDate)
				ters = append(ters, model.TERRecord{
					SchemeCode:    row.SchemeCode,
					SchemeName:    schemeName,
					TerPct:        ter.TerPct,
					EffectiveDate: effective,
				})
			}
			if peerErr == nil {
				peers = append(peers, model.PeerRecord{
					SchemeCode:    row.SchemeCode,
					SchemeName:    schemeName,
					Category:      peer.Category,
					CategoryAvg1Y: peer.CategoryAvg1Y,
					CategoryAvg3Y: peer.CategoryAvg3Y,
					PeerRank:      peer.PeerRank,
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("fund facts fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, nil, err
	}

	sort.Slice(ters, func(i, j int) bool { return ters[i].SchemeName < ters[j].SchemeName })
	sort.Slice(peers, func(i, j int) bool { return peers[i].SchemeName < peers[j].SchemeName })

	return ters, peers, nil
}

// RunAnalytics loads the stored ledger, NAV history and compositions, runs
// the three analytic engines, and persists the results under a fresh run id.
// Engine-level errors (e.g. a fund with missing purchase lots) are reported
// in the result but do not abort the run.
func (s *PortfolioService) RunAnalytics(ctx context.Context) (res model.AnalyticsResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RunAnalytics"

	slog.Debug("RunAnalytics start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RunAnalytics finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("runID", res.RunID))
	}()

	txns, err := s.repo.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalyticsResult{}, err
	}
	if len(txns) == 0 {
		return model.AnalyticsResult{}, service.ErrEmptyLedger
	}

	prices, err := s.repo.GetNavHistory(ctx)
	if err != nil {
		slog.Error("got error from repo.GetNavHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalyticsResult{}, err
	}
	prices = s.augmentWithCachedNavs(ctx, prices)

	holdings, err := s.repo.GetHoldings(ctx)
	if err != nil {
		slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalyticsResult{}, err
	}

	res.RunID = uuid.NewString()

	res.Metrics = metricsEngine.ComputeAllMetrics(ctx, txns, prices, s.metricOptions(prices))

	rules := s.taxRules()
	events, summary, taxErr := taxEngine.ComputeTaxLiability(ctx, txns, prices, rules, taxEngine.ClassifyByName)
	if taxErr != nil {
		slog.Warn("tax matching finished with errors", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", taxErr.Error()))
	}
	res.TaxEvents = events
	res.TaxSummary = summary

	res.Overlaps = overlapEngine.ComputePairwiseOverlap(ctx, holdings)

	err = s.repo.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.InsertMetrics(txCtx, res.RunID, res.Metrics); err != nil {
			return err
		}
		if err := s.repo.InsertTaxEvents(txCtx, res.RunID, res.TaxEvents); err != nil {
			return err
		}
		return s.repo.InsertOverlaps(txCtx, res.RunID, res.Overlaps)
	})
	if err != nil {
		slog.Error("failed persisting run results", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalyticsResult{}, err
	}

	return res, nil
}

// TaxForFinancialYear recomputes realized gains restricted to one Indian
// financial year (April 1 of year through March 31 of year+1). Matching
// always replays the full ledger; only the emitted events are filtered.
func (s *PortfolioService) TaxForFinancialYear(ctx context.Context, year int) (events []model.TaxEvent, summary model.TaxSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.TaxForFinancialYear"

	slog.Debug("TaxForFinancialYear start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("year", year))
	defer func() {
		slog.Debug("TaxForFinancialYear finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("events", len(events)))
	}()

	txns, err := s.repo.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, model.TaxSummary{}, err
	}
	if len(txns) == 0 {
		return nil, model.TaxSummary{}, service.ErrEmptyLedger
	}

	prices, err := s.repo.GetNavHistory(ctx)
	if err != nil {
		slog.Error("got error from repo.GetNavHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, model.TaxSummary{}, err
	}

	rules := s.taxRules()
	all, _, taxErr := taxEngine.ComputeTaxLiability(ctx, txns, prices, rules, taxEngine.ClassifyByName)
	if taxErr != nil {
		slog.Warn("tax matching finished with errors", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", taxErr.Error()))
	}

	fyStart := time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	fyEnd := fyStart.AddDate(1, 0, 0)

	for _, e := range all {
		if !e.RedemptionDate.Before(fyStart) && e.RedemptionDate.Before(fyEnd) {
			events = append(events, e)
		}
	}

	return events, taxEngine.Summarize(events, rules), nil
}

// ExportToSheets mirrors run results into the configured spreadsheet.
func (s *PortfolioService) ExportToSheets(ctx context.Context, res model.AnalyticsResult) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportToSheets"

	slog.Debug("ExportToSheets start", slog.String("rqID", rqID), slog.String("op", op), slog.String("runID", res.RunID))
	defer func() {
		slog.Debug("ExportToSheets finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	metricRows := make([][]any, 0, len(res.Metrics))
	for _, m := range res.Metrics {
		metricRows = append(metricRows, []any{
			m.SchemeName,
			metricCell(m.Xirr), metricCell(m.Cagr), metricCell(m.Sharpe), metricCell(m.Sortino),
			metricCell(m.Beta), metricCell(m.Alpha), metricCell(m.MaxDrawdown), metricCell(m.Volatility),
		})
	}
	err = s.sheetsApi.ReplaceSheet(ctx, "Metrics",
		[]string{"fund", "XIRR", "CAGR", "Sharpe", "Sortino", "beta", "alpha", "max drawdown", "volatility"},
		metricRows,
	)
	if err != nil {
		slog.Error("failed exporting metrics sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	taxRows := make([][]any, 0, len(res.TaxEvents))
	for _, e := range res.TaxEvents {
		taxRows = append(taxRows, []any{
			e.Folio, e.SchemeName,
			e.RedemptionDate.Format("02-01-2006"), e.PurchaseDate.Format("02-01-2006"),
			e.Units.InexactFloat64(), e.CostBasis.InexactFloat64(), e.RedemptionValue.InexactFloat64(),
			e.Gain.InexactFloat64(), string(e.GainType), string(e.FundType), e.TaxAmount.InexactFloat64(),
		})
	}
	err = s.sheetsApi.ReplaceSheet(ctx, "Tax",
		[]string{"folio", "fund", "redeemed", "purchased", "units", "cost basis", "redemption value", "gain", "gain type", "fund type", "tax"},
		taxRows,
	)
	if err != nil {
		slog.Error("failed exporting tax sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	overlapRows := make([][]any, 0, len(res.Overlaps))
	for _, o := range res.Overlaps {
		overlapRows = append(overlapRows, []any{o.FundA, o.FundB, o.JaccardOverlap, o.WeightedOverlapPct, o.CommonStocks})
	}
	err = s.sheetsApi.ReplaceSheet(ctx, "Overlap",
		[]string{"fund A", "fund B", "jaccard", "weighted %", "common stocks"},
		overlapRows,
	)
	if err != nil {
		slog.Error("failed exporting overlap sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// BuildReportFile renders the xlsx workbook for one run.
func (s *PortfolioService) BuildReportFile(ctx context.Context, res model.AnalyticsResult) (fileBytes []byte, fileExtension string, err error) {
	return s.reportGen.Generate(ctx, res.Metrics, res.TaxEvents, res.TaxSummary, res.Overlaps)
}

// Narrative asks the model for a plain-text read of the run.
func (s *PortfolioService) Narrative(ctx context.Context, res model.AnalyticsResult) (string, error) {
	return s.geminiApi.Summarize(ctx, BuildDigest(res))
}

// RunWorkflow executes the full daily pipeline. Stage errors are collected
// into the report; every stage that can still produce something useful runs.
func (s *PortfolioService) RunWorkflow(ctx context.Context) (report model.RunReport, out model.WorkflowOutput) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RunWorkflow"

	report.StartedAt = time.Now()

	slog.Info("workflow run start", slog.String("rqID", rqID), slog.String("op", op))

	start := time.Now()
	inserted, err := s.ImportStatements(ctx)
	report.AddStage("import statements", inserted, time.Since(start), err)

	start = time.Now()
	updated, err := s.RefreshNavs(ctx)
	report.AddStage("refresh navs", updated, time.Since(start), err)

	start = time.Now()
	backfilled, err := s.BackfillNavHistory(ctx)
	report.AddStage("nav backfill", backfilled, time.Since(start), err)

	start = time.Now()
	err = s.RefreshCompositions(ctx)
	report.AddStage("refresh compositions", 0, time.Since(start), err)

	start = time.Now()
	res, err := s.RunAnalytics(ctx)
	report.AddStage("analytics", len(res.Metrics)+len(res.TaxEvents)+len(res.Overlaps), time.Since(start), err)
	if err != nil {
		slog.Error("analytics stage failed, skipping exports", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return report, out
	}

	start = time.Now()
	ters, peers, err := s.FetchFundFacts(ctx)
	report.AddStage("fund facts", len(ters)+len(peers), time.Since(start), err)
	if err == nil {
		res.TERs = ters
		res.Peers = peers
	}

	out.Result = res
	out.Digest = BuildDigest(res)

	start = time.Now()
	err = s.ExportToSheets(ctx, res)
	report.AddStage("sheets export", len(res.Metrics)+len(res.TaxEvents)+len(res.Overlaps), time.Since(start), err)

	start = time.Now()
	fileBytes, fileExt, err := s.BuildReportFile(ctx, res)
	report.AddStage("xlsx report", len(fileBytes), time.Since(start), err)
	if err == nil {
		out.FileBytes = fileBytes
		out.FileExt = fileExt
	}

	start = time.Now()
	narrative, err := s.Narrative(ctx, res)
	report.AddStage("narrative", len(narrative), time.Since(start), err)
	if err == nil {
		out.Narrative = narrative
		if err := s.repo.SaveRunNarrative(ctx, res.RunID, out.Digest, narrative); err != nil {
			slog.Warn("can't persist run narrative", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	slog.Info("workflow run finished",
		slog.String("rqID", rqID), slog.String("op", op),
		slog.Bool("hasErrors", report.HasErrors()), slog.Duration("took", time.Since(report.StartedAt)))

	return report, out
}

func (s *PortfolioService) taxRules() taxEngine.Rules {
	return taxEngine.Rules{
		LTCGExemption:     decimal.NewFromFloat(s.cfg.Tax.LTCGExemption),
		LTCGRate:          decimal.NewFromFloat(s.cfg.Tax.LTCGRate),
		STCGRate:          decimal.NewFromFloat(s.cfg.Tax.STCGRate),
		EquityHoldingDays: s.cfg.Tax.EquityHoldingDays,
	}
}

// augmentWithCachedNavs appends the cached feed row for each stored scheme
// when it is newer than the latest persisted observation, so a run started
// between feed refresh and history upsert still prices at today's NAV. Cache
// misses are silently skipped.
func (s *PortfolioService) augmentWithCachedNavs(ctx context.Context, prices []model.PriceRecord) []model.PriceRecord {
	latest := make(map[string]model.PriceRecord)
	for _, p := range prices {
		if cur, ok := latest[p.SchemeCode]; !ok || p.AsOfDate.After(cur.AsOfDate) {
			latest[p.SchemeCode] = p
		}
	}

	for code, stored := range latest {
		row, err := s.cache.GetNav(ctx, code)
		if err != nil {
			continue
		}
		nav, err := decimal.NewFromString(row.Nav)
		if err != nil {
			continue
		}
		asOf, err := time.Parse("02-Jan-2006", row.NavDate)
		if err != nil || !asOf.After(stored.AsOfDate) {
			continue
		}
		prices = append(prices, model.PriceRecord{
			SchemeCode: code,
			SchemeName: stored.SchemeName,
			Nav:        nav,
			AsOfDate:   asOf,
		})
	}

	return prices
}

// metricOptions wires the configured benchmark scheme into Beta/Alpha when
// its NAV history is stored alongside the portfolio's.
func (s *PortfolioService) metricOptions(prices []model.PriceRecord) metricsEngine.Options {
	opts := metricsEngine.Options{
		RiskFreeRate:   s.cfg.Metrics.RiskFreeRate,
		PeriodsPerYear: s.cfg.Metrics.PeriodsPerYear,
	}

	if s.cfg.Metrics.BenchmarkScheme == "" {
		return opts
	}

	var benchPrices []model.PriceRecord
	for _, p := range prices {
		if p.SchemeName == s.cfg.Metrics.BenchmarkScheme {
			benchPrices = append(benchPrices, p)
		}
	}
	if len(benchPrices) < 2 {
		return opts
	}

	series := make([]float64, len(benchPrices))
	for i, p := range benchPrices {
		series[i], _ = p.Nav.Float64()
	}
	opts.BenchmarkReturns = metricsEngine.PeriodReturns(series)

	years := benchPrices[len(benchPrices)-1].AsOfDate.Sub(benchPrices[0].AsOfDate).Hours() / 24 / 365
	if annual, err := metricsEngine.CAGR(series[0], series[len(series)-1], years); err == nil {
		opts.BenchmarkAnnualReturn = &annual
	}

	return opts
}

// BuildDigest renders a compact plain-text summary of one run, used both as
// the telegram message body and as the model prompt payload.
func BuildDigest(res model.AnalyticsResult) string {
	sb := strings.Builder{}

	sb.WriteString("Portfolio analytics\n\nFund metrics:\n")
	for _, m := range res.Metrics {
		sb.WriteString(fmt.Sprintf("- %s: XIRR %s, CAGR %s, Sharpe %s, Sortino %s, max drawdown %s, volatility %s\n",
			m.SchemeName,
			fmtPct(m.Xirr), fmtPct(m.Cagr), fmtNum(m.Sharpe), fmtNum(m.Sortino), fmtPct(m.MaxDrawdown), fmtPct(m.Volatility),
		))
	}

	sb.WriteString(fmt.Sprintf("\nRealized gains: %d events\n", res.TaxSummary.EventCount))
	sb.WriteString(fmt.Sprintf("- equity LTCG %s (tax %s), equity STCG %s (tax %s)\n",
		res.TaxSummary.Equity.LtcgTotal.StringFixed(2), res.TaxSummary.Equity.LtcgTax.StringFixed(2),
		res.TaxSummary.Equity.StcgTotal.StringFixed(2), res.TaxSummary.Equity.StcgTax.StringFixed(2),
	))
	sb.WriteString(fmt.Sprintf("- debt gains %s (taxed at slab rate)\n", res.TaxSummary.DebtGainTotal.StringFixed(2)))

	if len(res.Overlaps) > 0 {
		sb.WriteString("\nHolding overlap:\n")
		for _, o := range res.Overlaps {
			sb.WriteString(fmt.Sprintf("- %s vs %s: jaccard %.4f, weighted %.2f%%, %d common stocks\n",
				o.FundA, o.FundB, o.JaccardOverlap, o.WeightedOverlapPct, o.CommonStocks))
		}
	}

	if len(res.TERs) > 0 {
		sb.WriteString("\nExpense ratios:\n")
		for _, t := range res.TERs {
			sb.WriteString(fmt.Sprintf("- %s: TER %.2f%%\n", t.SchemeName, t.TerPct))
		}
	}

	if len(res.Peers) > 0 {
		sb.WriteString("\nCategory comparison:\n")
		for _, p := range res.Peers {
			sb.WriteString(fmt.Sprintf("- %s (%s): category avg 1Y %.2f%%, 3Y %.2f%%, rank %d\n",
				p.SchemeName, p.Category, p.CategoryAvg1Y, p.CategoryAvg3Y, p.PeerRank))
		}
	}

	return sb.String()
}

func fmtPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func fmtNum(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func metricCell(v *float64) any {
	if v == nil {
		return "n/a"
	}
	return *v
}

// matchSchemes pairs ledger scheme names with AMFI feed rows by normalized
// name. CAMS and AMFI spell the same scheme with different punctuation and
// plan suffixes, so matching is on a canonical form.
func matchSchemes(rows []amfiModel.NavRow, schemeNames []string) map[string]amfiModel.NavRow {
	byNormalized := make(map[string]amfiModel.NavRow, len(rows))
	for _, row := range rows {
		byNormalized[normalizeSchemeName(row.SchemeName)] = row
	}

	matched := make(map[string]amfiModel.NavRow)
	for _, name := range schemeNames {
		if row, ok := byNormalized[normalizeSchemeName(name)]; ok {
			matched[name] = row
		}
	}
	return matched
}

func normalizeSchemeName(name string) string {
	sb := strings.Builder{}
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
