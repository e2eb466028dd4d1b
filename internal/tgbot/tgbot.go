package tgbot

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/internal/transport/telegram"
	customMW "github.com/shiveeg1/fund-agent/internal/transport/telegram/middleware"
	"github.com/shiveeg1/fund-agent/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
	cfg     *config.Config
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session, cfg: cfg}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger(), customMW.AllowedChat(b.cfg.Telegram.ChatID))

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		// dispatch free text by session state
		ctx := utils.CreateCtxFromTele(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("start with one of the commands, /start lists them")
		}

		c.Set("session", chatSession)

		switch chatSession.State {
		case model.ExpectingTaxYear:
			return b.ctrl.ProcessTaxYear(c)
		default:
			slog.Error("unexpected chatSession state", slog.String("rqID", rqID), slog.Any("state", chatSession.State))
			return c.Send("start with one of the commands, /start lists them")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/run", b.ctrl.Run)
	b.bot.Handle("/report", b.ctrl.Report)
	b.bot.Handle("/tax_year", b.ctrl.InitTaxYear)
}

// SendRunSummary pushes a scheduled run's outcome to the configured chat.
// Used by the cron job, which has no inbound telegram update to reply to.
func (b *TGBot) SendRunSummary(ctx context.Context, report model.RunReport, out model.WorkflowOutput) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	chat := &tele.Chat{ID: b.cfg.Telegram.ChatID}

	if _, err := b.bot.Send(chat, telegram.FormatRunReport(report)); err != nil {
		slog.Error("failed sending run report", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	if out.Digest != "" {
		if _, err := b.bot.Send(chat, out.Digest); err != nil {
			slog.Error("failed sending digest", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return err
		}
	}

	if out.Narrative != "" {
		if _, err := b.bot.Send(chat, out.Narrative); err != nil {
			slog.Error("failed sending narrative", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return err
		}
	}

	if len(out.FileBytes) > 0 && len(out.FileBytes) <= b.cfg.Telegram.FileLimitInBytes {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(out.FileBytes)),
			FileName: "portfolio_report_" + time.Now().Format("2006-01-02") + out.FileExt,
		}
		if _, err := b.bot.Send(chat, doc); err != nil {
			slog.Error("failed sending report file", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return err
		}
	}

	return nil
}
