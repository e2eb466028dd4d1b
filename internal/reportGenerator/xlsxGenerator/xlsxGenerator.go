package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders one workbook with a sheet per result family: fund
// metrics, realized tax events plus summary, and pairwise overlap.
func (g *XLSXGenerator) Generate(
	ctx context.Context,
	metrics []model.MetricRecord,
	taxEvents []model.TaxEvent,
	taxSummary model.TaxSummary,
	overlaps []model.OverlapRecord,
) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillMetricsSheet(f, metrics); err != nil {
		return nil, "", err
	}
	if err := g.fillTaxSheet(f, taxEvents, taxSummary); err != nil {
		return nil, "", err
	}
	if err := g.fillOverlapSheet(f, overlaps); err != nil {
		return nil, "", err
	}

	// drop the default "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillMetricsSheet(f *excelize.File, metrics []model.MetricRecord) error {
	sheetName := "Metrics"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := g.writeHeader(f, sheetName, "A1", "I1", "Fund performance", "#cfe2f3"); err != nil {
		return err
	}

	headers := []string{"fund", "XIRR", "CAGR", "Sharpe", "Sortino", "beta", "alpha", "max drawdown", "volatility"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellStr(sheetName, cell, h)
	}

	for i, m := range metrics {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), m.SchemeName)
		setMetricCell(f, sheetName, fmt.Sprintf("B%d", row), m.Xirr)
		setMetricCell(f, sheetName, fmt.Sprintf("C%d", row), m.Cagr)
		setMetricCell(f, sheetName, fmt.Sprintf("D%d", row), m.Sharpe)
		setMetricCell(f, sheetName, fmt.Sprintf("E%d", row), m.Sortino)
		setMetricCell(f, sheetName, fmt.Sprintf("F%d", row), m.Beta)
		setMetricCell(f, sheetName, fmt.Sprintf("G%d", row), m.Alpha)
		setMetricCell(f, sheetName, fmt.Sprintf("H%d", row), m.MaxDrawdown)
		setMetricCell(f, sheetName, fmt.Sprintf("I%d", row), m.Volatility)
	}

	return nil
}

func (g *XLSXGenerator) fillTaxSheet(f *excelize.File, events []model.TaxEvent, summary model.TaxSummary) error {
	sheetName := "Tax"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := g.writeHeader(f, sheetName, "A1", "K1", "Realized gains", "#d9ead3"); err != nil {
		return err
	}

	headers := []string{"folio", "fund", "redeemed", "purchased", "units", "cost basis", "redemption value", "gain", "gain type", "fund type", "tax"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellStr(sheetName, cell, h)
	}

	rowNum := 2
	for _, e := range events {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), e.Folio)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), e.SchemeName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), e.RedemptionDate.Format("02-01-2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), e.PurchaseDate.Format("02-01-2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), e.Units.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), e.CostBasis.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), e.RedemptionValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), e.Gain.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("I%d", rowNum), string(e.GainType))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("J%d", rowNum), string(e.FundType))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("K%d", rowNum), e.TaxAmount.InexactFloat64())
	}

	rowNum += 3
	if err := g.writeHeader(f, sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("B%d", rowNum), "Summary", "#f9cb9c"); err != nil {
		return err
	}

	summaryRows := []struct {
		label string
		value float64
	}{
		{"equity LTCG total", summary.Equity.LtcgTotal.InexactFloat64()},
		{"equity LTCG taxable", summary.Equity.LtcgTaxable.InexactFloat64()},
		{"equity LTCG tax", summary.Equity.LtcgTax.InexactFloat64()},
		{"equity STCG total", summary.Equity.StcgTotal.InexactFloat64()},
		{"equity STCG tax", summary.Equity.StcgTax.InexactFloat64()},
		{"equity tax total", summary.Equity.TotalTax.InexactFloat64()},
		{"debt gains (slab rate)", summary.DebtGainTotal.InexactFloat64()},
	}
	for _, sr := range summaryRows {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), sr.label)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), sr.value)
	}

	return nil
}

func (g *XLSXGenerator) fillOverlapSheet(f *excelize.File, overlaps []model.OverlapRecord) error {
	sheetName := "Overlap"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := g.writeHeader(f, sheetName, "A1", "E1", "Holding overlap", "#f4cccc"); err != nil {
		return err
	}

	headers := []string{"fund A", "fund B", "jaccard", "weighted %", "common stocks"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellStr(sheetName, cell, h)
	}

	for i, o := range overlaps {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), o.FundA)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), o.FundB)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), o.JaccardOverlap)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), o.WeightedOverlapPct)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("E%d", row), int64(o.CommonStocks))
	}

	return nil
}

func (g *XLSXGenerator) writeHeader(f *excelize.File, sheetName, from, to, title, color string) error {
	if err := f.MergeCell(sheetName, from, to); err != nil {
		return err
	}

	f.SetCellValue(sheetName, from, title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	return nil
}

func setMetricCell(f *excelize.File, sheetName, cell string, v *float64) {
	if v == nil {
		_ = f.SetCellStr(sheetName, cell, "n/a")
		return
	}
	_ = f.SetCellValue(sheetName, cell, *v)
}
