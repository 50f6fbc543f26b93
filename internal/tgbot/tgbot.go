package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"

	"github.com/jamesmoraless/stockr/config"
	"github.com/jamesmoraless/stockr/data/session"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/transport/telegram"
	customMW "github.com/jamesmoraless/stockr/internal/transport/telegram/middleware"
	"github.com/jamesmoraless/stockr/utils"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, sess model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, sess Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: sess}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

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
	// free text is routed by the user's dialog state; outside any dialog it
	// goes to the portfolio agent
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)

		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("something went wrong, try again later")
		}

		switch chatSession.State {
		case model.ExpectingBuyOrder:
			return b.ctrl.ProcessBuyOrder(c)
		case model.ExpectingSellOrder:
			return b.ctrl.ProcessSellOrder(c)
		case model.ExpectingWatchTicker:
			return b.ctrl.ProcessWatchTicker(c)
		default:
			return b.ctrl.ProcessChatMessage(c)
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/cancel", b.ctrl.Cancel)
	b.bot.Handle("/portfolio", b.ctrl.ShowPortfolio)
	b.bot.Handle("/growth", b.ctrl.ShowGrowth)
	b.bot.Handle("/buy", b.ctrl.StartBuy)
	b.bot.Handle("/sell", b.ctrl.StartSell)
	b.bot.Handle("/watch", b.ctrl.StartWatch)
	b.bot.Handle("/watchlist", b.ctrl.ShowWatchlist)
	b.bot.Handle("/transactions", b.ctrl.ShowTransactions)
	b.bot.Handle("/report", b.ctrl.ExportReport)
}
