package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shiveeg1/fund-agent/data/session"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/internal/service"
	"github.com/shiveeg1/fund-agent/utils"
	tele "gopkg.in/telebot.v4"
)

const internalErrMsg = "something went wrong, check the logs"

type PortfolioService interface {
	RunWorkflow(ctx context.Context) (model.RunReport, model.WorkflowOutput)
	RunAnalytics(ctx context.Context) (model.AnalyticsResult, error)
	BuildReportFile(ctx context.Context, res model.AnalyticsResult) (fileBytes []byte, fileExtension string, err error)
	TaxForFinancialYear(ctx context.Context, year int) ([]model.TaxEvent, model.TaxSummary, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
	DeleteSession(ctx context.Context, key string) error
}

type Controller struct {
	portfolioService PortfolioService
	session          Session
}

func NewController(portfolioService PortfolioService, session Session) *Controller {
	return &Controller{
		portfolioService: portfolioService,
		session:          session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(strings.Join([]string{
		"Fund analytics bot.",
		"",
		"/run - run the full pipeline and send the report",
		"/report - rebuild the xlsx from stored data",
		"/tax_year - realized gains for a financial year",
	}, "\n"))
}

// Run triggers the whole pipeline on demand and replies with the digest, the
// narrative, and the workbook.
func (ctrl *Controller) Run(c tele.Context) error {
	ctx := utils.CreateCtxFromTele(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := c.Send("running, this takes a while..."); err != nil {
		slog.Warn("can't send ack", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	report, out := ctrl.portfolioService.RunWorkflow(ctx)

	if err := c.Send(FormatRunReport(report)); err != nil {
		return err
	}

	if out.Digest != "" {
		if err := c.Send(out.Digest); err != nil {
			return err
		}
	}

	if out.Narrative != "" {
		if err := c.Send(out.Narrative); err != nil {
			return err
		}
	}

	if len(out.FileBytes) > 0 {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(out.FileBytes)),
			FileName: reportFileName(out.FileExt),
		}
		return c.Send(doc)
	}

	return nil
}

// Report rebuilds the workbook from the stored ledger without refetching
// anything.
func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxFromTele(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := ctrl.portfolioService.RunAnalytics(ctx)
	if err != nil {
		if errors.Is(err, service.ErrEmptyLedger) {
			return c.Send("no transactions imported yet, drop CAMS statements in and /run first")
		}
		slog.Error("got error from portfolioService.RunAnalytics", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	fileBytes, fileExt, err := ctrl.portfolioService.BuildReportFile(ctx, res)
	if err != nil {
		slog.Error("got error from portfolioService.BuildReportFile", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(fileBytes)),
		FileName: reportFileName(fileExt),
	}
	return c.Send(doc)
}

// InitTaxYear asks for a financial year and arms the session state.
func (ctrl *Controller) InitTaxYear(c tele.Context) error {
	ctx := utils.CreateCtxFromTele(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	strChatID := strconv.FormatInt(c.Chat().ID, 10)

	chatSession, err := ctrl.session.GetSession(ctx, strChatID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	chatSession.State = model.ExpectingTaxYear
	err = ctrl.session.SetSession(ctx, strChatID, chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter the financial year start (e.g. 2024 for FY 2024-25):")
}

// ProcessTaxYear handles the year reply and renders the FY tax summary.
func (ctrl *Controller) ProcessTaxYear(c tele.Context) error {
	ctx := utils.CreateCtxFromTele(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	strChatID := strconv.FormatInt(c.Chat().ID, 10)

	if _, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c); err != nil {
		return c.Send(internalErrMsg)
	}

	// The prompt flow is over either way, drop the armed session.
	defer func() {
		if err := ctrl.session.DeleteSession(ctx, strChatID); err != nil {
			slog.Warn("can't delete session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
	}()

	year, err := strconv.Atoi(strings.TrimSpace(c.Message().Text))
	if err != nil || year < 1990 || year > time.Now().Year()+1 {
		return c.Send("that doesn't look like a year, try e.g. 2024")
	}

	events, summary, err := ctrl.portfolioService.TaxForFinancialYear(ctx, year)
	if err != nil {
		if errors.Is(err, service.ErrEmptyLedger) {
			return c.Send("no transactions imported yet")
		}
		slog.Error("got error from portfolioService.TaxForFinancialYear", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(FormatTaxSummary(year, events, summary))
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return chatSession, nil
}

// FormatRunReport renders the per-stage outcome of a workflow run.
func FormatRunReport(report model.RunReport) string {
	sb := strings.Builder{}
	sb.WriteString("Run finished\n")
	for _, stage := range report.Stages {
		status := "ok"
		if len(stage.Errors) > 0 {
			status = "FAILED: " + strings.Join(stage.Errors, "; ")
		}
		sb.WriteString(fmt.Sprintf("- %s: %d rows in %s, %s\n", stage.Stage, stage.RowsWritten, stage.Duration.Round(time.Millisecond), status))
	}
	return sb.String()
}

// FormatTaxSummary renders the FY gains breakdown.
func FormatTaxSummary(year int, events []model.TaxEvent, summary model.TaxSummary) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("FY %d-%02d: %d realized gain events\n\n", year, (year+1)%100, len(events)))
	sb.WriteString(fmt.Sprintf("Equity LTCG: %s (taxable %s, tax %s)\n",
		summary.Equity.LtcgTotal.StringFixed(2), summary.Equity.LtcgTaxable.StringFixed(2), summary.Equity.LtcgTax.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Equity STCG: %s (tax %s)\n",
		summary.Equity.StcgTotal.StringFixed(2), summary.Equity.StcgTax.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Equity tax total: %s\n", summary.Equity.TotalTax.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Debt gains (slab rate applies): %s\n", summary.DebtGainTotal.StringFixed(2)))
	return sb.String()
}

func reportFileName(ext string) string {
	return "portfolio_report_" + time.Now().Format("2006-01-02") + ext
}
