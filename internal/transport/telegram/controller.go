// Package telegram is the bot transport: a command-and-state front over the
// dashboard service for users who prefer chat to the web client.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"

	"github.com/jamesmoraless/stockr/internal/converter/telebotConverter"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/service"
	"github.com/jamesmoraless/stockr/utils"
)

const internalErrMsg = "something went wrong, try again later"

type DashboardService interface {
	GetPortfolioSnapshot(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error)
	GetPortfolioGrowth(ctx context.Context) (model.GrowthSummary, error)
	BuyAsset(ctx context.Context, order model.Order) error
	SellAsset(ctx context.Context, order model.Order) error
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, ticker string) error
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	ExportTransactionsReport(ctx context.Context) (string, error)
	Chat(ctx context.Context, sessionKey, message string) (model.ChatSession, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, sess model.Session) error
}

// TokenSource supplies the service-account bearer token, since Telegram
// updates carry no credentials of their own.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

type Controller struct {
	service     DashboardService
	session     Session
	tokenSource TokenSource
}

func NewController(service DashboardService, sess Session, tokenSource TokenSource) *Controller {
	return &Controller{service: service, session: sess, tokenSource: tokenSource}
}

// authCtx builds the request context for one update: request id plus the
// service-account token the core API expects.
func (ctrl *Controller) authCtx(c tele.Context) (context.Context, error) {
	ctx := utils.CreateCtxWithRqID(c)

	token, err := ctrl.tokenSource.GetToken(ctx)
	if err != nil {
		slog.Error("got error from tokenSource.GetToken", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return nil, err
	}

	return utils.CtxWithBearerToken(ctx, token), nil
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

func (ctrl *Controller) setState(ctx context.Context, c tele.Context, state model.Session) error {
	return ctrl.session.SetSession(ctx, chatKey(c), state)
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	_ = ctrl.setState(ctx, c, model.Session{State: model.DefaultState})

	return c.Send(
		"Welcome to Stockr!\n\n" +
			"/portfolio - current holdings and allocation\n" +
			"/growth - portfolio growth\n" +
			"/buy - buy an asset\n" +
			"/sell - sell an asset\n" +
			"/watch - add a ticker to your watchlist\n" +
			"/watchlist - show your watchlist\n" +
			"/transactions - transaction history\n" +
			"/report - export transactions to xlsx\n" +
			"/cancel - abort the current action\n\n" +
			"Anything else you type goes to the portfolio agent.",
	)
}

func (ctrl *Controller) Cancel(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	_ = ctrl.setState(ctx, c, model.Session{State: model.DefaultState})

	return c.Send("Cancelled.")
}

func (ctrl *Controller) ShowPortfolio(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	snapshot, err := ctrl.service.GetPortfolioSnapshot(ctx, false)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PortfolioToText(snapshot))
}

func (ctrl *Controller) ShowGrowth(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	growth, err := ctrl.service.GetPortfolioGrowth(ctx)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.GrowthToText(growth))
}

func (ctrl *Controller) StartBuy(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setState(ctx, c, model.Session{State: model.ExpectingBuyOrder}); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter the order as: TICKER SHARES PRICE\nFor example: AAPL 10 185.50")
}

func (ctrl *Controller) StartSell(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setState(ctx, c, model.Session{State: model.ExpectingSellOrder}); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter the order as: TICKER SHARES PRICE\nFor example: AAPL 10 185.50")
}

func parseOrder(text string) (model.Order, error) {
	parts := strings.Fields(text)
	if len(parts) != 3 {
		return model.Order{}, service.ErrInvalidOrder
	}

	shares, err := decimal.NewFromString(parts[1])
	if err != nil {
		return model.Order{}, service.ErrInvalidOrder
	}

	price, err := decimal.NewFromString(parts[2])
	if err != nil {
		return model.Order{}, service.ErrInvalidOrder
	}

	return model.Order{
		Ticker: strings.ToUpper(parts[0]),
		Shares: shares,
		Price:  price,
	}, nil
}

func (ctrl *Controller) ProcessBuyOrder(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	order, err := parseOrder(c.Message().Text)
	if err != nil {
		return c.Send("Can't parse the order. Use: TICKER SHARES PRICE")
	}

	if err := ctrl.service.BuyAsset(ctx, order); err != nil {
		if errors.Is(err, service.ErrInvalidOrder) || errors.Is(err, service.ErrInvalidTicker) {
			return c.Send("Invalid order: shares and price must be positive.")
		}
		return c.Send(internalErrMsg)
	}

	_ = ctrl.setState(ctx, c, model.Session{State: model.DefaultState})

	return c.Send("Bought " + order.Shares.String() + " " + order.Ticker + " @ " + order.Price.StringFixed(2))
}

func (ctrl *Controller) ProcessSellOrder(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	order, err := parseOrder(c.Message().Text)
	if err != nil {
		return c.Send("Can't parse the order. Use: TICKER SHARES PRICE")
	}

	if err := ctrl.service.SellAsset(ctx, order); err != nil {
		if errors.Is(err, service.ErrInvalidOrder) || errors.Is(err, service.ErrInvalidTicker) {
			return c.Send("Invalid order: check the amounts and that you hold enough shares.")
		}
		return c.Send(internalErrMsg)
	}

	_ = ctrl.setState(ctx, c, model.Session{State: model.DefaultState})

	return c.Send("Sold " + order.Shares.String() + " " + order.Ticker + " @ " + order.Price.StringFixed(2))
}

func (ctrl *Controller) StartWatch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setState(ctx, c, model.Session{State: model.ExpectingWatchTicker}); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter the ticker to watch")
}

func (ctrl *Controller) ProcessWatchTicker(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	ticker := strings.ToUpper(strings.TrimSpace(c.Message().Text))

	if err := ctrl.service.AddToWatchlist(ctx, ticker); err != nil {
		if errors.Is(err, service.ErrInvalidTicker) {
			return c.Send("That doesn't look like a ticker.")
		}
		return c.Send(internalErrMsg)
	}

	_ = ctrl.setState(ctx, c, model.Session{State: model.DefaultState})

	msg := ticker + " added to your watchlist."
	if quote, err := ctrl.service.GetQuote(ctx, ticker); err == nil && quote.Available {
		msg += " Current price: " + quote.Price.StringFixed(2)
	}

	return c.Send(msg)
}

func (ctrl *Controller) ShowWatchlist(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	items, err := ctrl.service.GetWatchlist(ctx)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.WatchlistToText(items))
}

func (ctrl *Controller) ShowTransactions(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	txns, err := ctrl.service.GetTransactions(ctx)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.TransactionsToText(txns))
}

func (ctrl *Controller) ExportReport(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	if err := c.Send("Building the report..."); err != nil {
		slog.Error("can't send message", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}

	link, err := ctrl.service.ExportTransactionsReport(ctx)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPortfolio) {
			return c.Send("No transactions to export yet.")
		}
		return c.Send(internalErrMsg)
	}

	return c.Send("Your report is ready: " + link)
}

// ProcessChatMessage is the default text handler: everything that is not a
// command or a pending dialog step goes to the portfolio agent. The thread is
// keyed by chat id, separate from the web thread.
func (ctrl *Controller) ProcessChatMessage(c tele.Context) error {
	ctx, err := ctrl.authCtx(c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	sess, err := ctrl.service.Chat(ctx, "tg:"+chatKey(c), c.Message().Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return c.Send("Say something first.")
		}
		return c.Send(internalErrMsg)
	}

	if len(sess.Messages) == 0 {
		return c.Send(internalErrMsg)
	}

	return c.Send(sess.Messages[len(sess.Messages)-1].Text)
}
