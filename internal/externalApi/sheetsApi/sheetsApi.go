package sheetsApi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/utils"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsApi mirrors analytics results into a Google Sheets spreadsheet, one
// tab per result family. Each sync replaces the tab contents wholesale so the
// sheet always reflects the latest run.
type SheetsApi struct {
	srv *sheets.Service
	cfg *config.Config
}

func New(ctx context.Context, cfg *config.Config) *SheetsApi {
	srv, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
	if err != nil {
		slog.Error("failed on sheets.NewService")
		panic(err)
	}
	return &SheetsApi{srv: srv, cfg: cfg}
}

// ReplaceSheet clears tab sheetName and writes header plus rows starting at A1.
// The tab is created if it does not exist yet.
func (a *SheetsApi) ReplaceSheet(ctx context.Context, sheetName string, header []string, rows [][]any) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "SheetsApi.ReplaceSheet"

	slog.Debug("ReplaceSheet start", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", sheetName), slog.Int("rows", len(rows)))

	if err := a.ensureSheet(ctx, sheetName); err != nil {
		slog.Error("failed ensuring sheet exists", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", sheetName), slog.String("err", err.Error()))
		return err
	}

	_, err := a.srv.Spreadsheets.Values.
		Clear(a.cfg.Sheets.SpreadsheetID, sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed clearing sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", sheetName), slog.String("err", err.Error()))
		return err
	}

	values := make([][]any, 0, len(rows)+1)
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	values = append(values, headerRow)
	values = append(values, rows...)

	_, err = a.srv.Spreadsheets.Values.
		Update(a.cfg.Sheets.SpreadsheetID, sheetName+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed writing sheet values", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", sheetName), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("ReplaceSheet complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("sheet", sheetName))

	return nil
}

func (a *SheetsApi) ensureSheet(ctx context.Context, sheetName string) error {
	ss, err := a.srv.Spreadsheets.Get(a.cfg.Sheets.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheetName {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: sheetName},
			},
		}},
	}
	_, err = a.srv.Spreadsheets.BatchUpdate(a.cfg.Sheets.SpreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", sheetName, err)
	}
	return nil
}
