// Package dashboardService aggregates the Stockr core API into the views the
// dashboard renders: priced holdings with allocation percentages, the growth
// series, watchlist, transactions, cash and the agent chat.
package dashboardService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jamesmoraless/stockr/data/cache"
	"github.com/jamesmoraless/stockr/data/session"
	"github.com/jamesmoraless/stockr/internal/externalApi"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/service"
	"github.com/jamesmoraless/stockr/utils"
)

type StockrApi interface {
	GetPortfolioID(ctx context.Context) (string, error)
	GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error)
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetHistory(ctx context.Context, portfolioID string) ([]model.HistoryPoint, error)
	AddAsset(ctx context.Context, portfolioID string, order model.Order) error
	SellAsset(ctx context.Context, portfolioID string, order model.Order) error
	GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, ticker string) error
	RemoveFromWatchlist(ctx context.Context, ticker string) error
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID string) error
	UploadTransactionsCSV(ctx context.Context, portfolioID, filename string, file io.Reader) (string, error)
	GetCashBalance(ctx context.Context) (decimal.Decimal, error)
	DepositCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	WithdrawCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	SendChatMessage(ctx context.Context, threadID, message string) (model.ChatReply, error)
}

type Cache interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type ChatSessions interface {
	GetChatSession(ctx context.Context, key string) (model.ChatSession, error)
	SetChatSession(ctx context.Context, key string, sess model.ChatSession) error
	DeleteChatSession(ctx context.Context, key string) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, snapshot model.PortfolioSnapshot, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

// TokenSource supplies bearer tokens for flows with no inbound request to
// borrow one from (scheduled jobs, the Telegram bot).
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

type DashboardService struct {
	api          StockrApi
	cache        Cache
	chatSessions ChatSessions
	reportGen    ReportGenerator
	cloudStorage CloudStorage
	tokenSource  TokenSource
}

func New(
	api StockrApi,
	cache Cache,
	chatSessions ChatSessions,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
	tokenSource TokenSource,
) *DashboardService {
	return &DashboardService{
		api:          api,
		cache:        cache,
		chatSessions: chatSessions,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
		tokenSource:  tokenSource,
	}
}

// fetchQuotes prices tickers from cache first, then fans out to the core API
// for the misses. A ticker whose fetch fails is simply absent from the result,
// one dead quote source must not take the whole snapshot down.
func (s *DashboardService) fetchQuotes(ctx context.Context, tickers []string, forceRefresh bool) map[string]model.Quote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.fetchQuotes"

	quotes := make(map[string]model.Quote, len(tickers))

	if !forceRefresh {
		cached, err := s.cache.GetQuotes(ctx, tickers)
		if err != nil {
			slog.Warn("can't get quotes from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			quotes = cached
		}
	}

	missing := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		if _, ok := quotes[ticker]; !ok {
			missing = append(missing, ticker)
		}
	}

	if len(missing) == 0 {
		return quotes
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	fetched := make([]model.Quote, 0, len(missing))

	for _, ticker := range missing {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			quote, err := s.api.GetQuote(ctx, ticker)
			if err != nil {
				slog.Warn("can't get quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
				return
			}

			mu.Lock()
			quotes[ticker] = quote
			fetched = append(fetched, quote)
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	if len(fetched) > 0 {
		go s.cache.SetQuotes(context.WithoutCancel(ctx), fetched)
	}

	return quotes
}

// GetPortfolioSnapshot builds the priced portfolio view. forceRefresh bypasses
// the quote cache so the caller gets prices straight from the source.
func (s *DashboardService) GetPortfolioSnapshot(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.GetPortfolioSnapshot"

	slog.Debug("GetPortfolioSnapshot start", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("forceRefresh", forceRefresh))
	defer func() {
		slog.Debug("GetPortfolioSnapshot finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSnapshot{}, err
	}

	holdings, err := s.api.GetHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from api.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSnapshot{}, err
	}

	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		tickers = append(tickers, h.Ticker)
	}

	quotes := s.fetchQuotes(ctx, tickers, forceRefresh)

	return buildSnapshot(portfolioID, holdings, quotes), nil
}

// GetPortfolioGrowth reduces the value history to a growth figure, using the
// current snapshot total as the authoritative last point.
func (s *DashboardService) GetPortfolioGrowth(ctx context.Context) (model.GrowthSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.GetPortfolioGrowth"

	slog.Debug("GetPortfolioGrowth start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolioGrowth finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	snapshot, err := s.GetPortfolioSnapshot(ctx, false)
	if err != nil {
		return model.GrowthSummary{}, err
	}

	points, err := s.api.GetHistory(ctx, snapshot.PortfolioID)
	if err != nil {
		slog.Error("got error from api.GetHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.GrowthSummary{}, err
	}

	return summarizeGrowth(points, snapshot.TotalValue), nil
}

func validateOrder(order model.Order) error {
	if order.Ticker == "" {
		return service.ErrInvalidTicker
	}
	if !order.Shares.IsPositive() || !order.Price.IsPositive() {
		return service.ErrInvalidOrder
	}
	return nil
}

func (s *DashboardService) BuyAsset(ctx context.Context, order model.Order) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.BuyAsset"

	slog.Debug("BuyAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	defer func() {
		slog.Debug("BuyAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	}()

	if err := validateOrder(order); err != nil {
		return err
	}
	order.Type = model.TransactionTypeBuy

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := s.api.AddAsset(ctx, portfolioID, order); err != nil {
		slog.Error("got error from api.AddAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// SellAsset rejects sells for more shares than the portfolio holds before the
// order ever reaches the core API.
func (s *DashboardService) SellAsset(ctx context.Context, order model.Order) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.SellAsset"

	slog.Debug("SellAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	defer func() {
		slog.Debug("SellAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	}()

	if err := validateOrder(order); err != nil {
		return err
	}
	order.Type = model.TransactionTypeSell

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	holdings, err := s.api.GetHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from api.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	held := decimal.Zero
	for _, h := range holdings {
		if h.Ticker == order.Ticker {
			held = h.Shares
			break
		}
	}
	if order.Shares.GreaterThan(held) {
		return service.ErrInvalidOrder
	}

	if err := s.api.SellAsset(ctx, portfolioID, order); err != nil {
		slog.Error("got error from api.SellAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// GetQuote prices a single ticker, cache first. A fetched quote is written
// back to the cache off the request path.
func (s *DashboardService) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.GetQuote"

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if ticker == "" {
		return model.Quote{}, service.ErrInvalidTicker
	}

	quote, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
	}

	quote, err = s.api.GetQuote(ctx, ticker)
	if err != nil {
		slog.Error("got error from api.GetQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	go s.cache.SetQuotes(context.WithoutCancel(ctx), []model.Quote{quote})

	return quote, nil
}

func (s *DashboardService) GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.GetWatchlist"

	slog.Debug("GetWatchlist start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetWatchlist finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	items, err := s.api.GetWatchlist(ctx)
	if err != nil {
		slog.Error("got error from api.GetWatchlist", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return items, nil
}

func (s *DashboardService) AddToWatchlist(ctx context.Context, ticker string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.AddToWatchlist"

	slog.Debug("AddToWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("AddToWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if ticker == "" {
		return service.ErrInvalidTicker
	}

	if err := s.api.AddToWatchlist(ctx, ticker); err != nil {
		slog.Error("got error from api.AddToWatchlist", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *DashboardService) RemoveFromWatchlist(ctx context.Context, ticker string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.RemoveFromWatchlist"

	slog.Debug("RemoveFromWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("RemoveFromWatchlist finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if ticker == "" {
		return service.ErrInvalidTicker
	}

	if err := s.api.RemoveFromWatchlist(ctx, ticker); err != nil {
		slog.Error("got error from api.RemoveFromWatchlist", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *DashboardService) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.GetTransactions"

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	txns, err := s.api.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from api.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return txns, nil
}

func (s *DashboardService) DeleteTransaction(ctx context.Context, transactionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.DeleteTransaction"

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID))
	defer func() {
		slog.Debug("DeleteTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID))
	}()

	if err := s.api.DeleteTransaction(ctx, transactionID); err != nil {
		slog.Error("got error from api.DeleteTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *DashboardService) UploadTransactions(ctx context.Context, filename string, file io.Reader) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.UploadTransactions"

	slog.Debug("UploadTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	defer func() {
		slog.Debug("UploadTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	msg, err := s.api.UploadTransactionsCSV(ctx, portfolioID, filename, file)
	if err != nil {
		slog.Error("got error from api.UploadTransactionsCSV", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return msg, nil
}

// ExportTransactionsReport renders the valued portfolio and transaction log to
// xlsx, uploads it to cloud storage and returns the download link.
func (s *DashboardService) ExportTransactionsReport(ctx context.Context) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.ExportTransactionsReport"

	slog.Debug("ExportTransactionsReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ExportTransactionsReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	txns, err := s.api.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from api.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if len(txns) == 0 {
		return "", service.ErrEmptyPortfolio
	}

	snapshot, err := s.GetPortfolioSnapshot(ctx, false)
	if err != nil {
		return "", err
	}

	fileBytes, fileExtension, err := s.reportGen.Generate(ctx, snapshot, txns)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("transactions_%s%s", time.Now().Format("2006-01-02"), fileExtension)
	link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return link, nil
}

func (s *DashboardService) GetCashBalance(ctx context.Context) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.GetCashBalance"

	slog.Debug("GetCashBalance start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetCashBalance finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	balance, err := s.api.GetCashBalance(ctx)
	if err != nil {
		slog.Error("got error from api.GetCashBalance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	return balance, nil
}

func (s *DashboardService) DepositCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.DepositCash"

	slog.Debug("DepositCash start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("DepositCash finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amount.IsPositive() {
		return decimal.Decimal{}, service.ErrInvalidAmount
	}

	balance, err := s.api.DepositCash(ctx, amount)
	if err != nil {
		slog.Error("got error from api.DepositCash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	return balance, nil
}

func (s *DashboardService) WithdrawCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.WithdrawCash"

	slog.Debug("WithdrawCash start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("WithdrawCash finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amount.IsPositive() {
		return decimal.Decimal{}, service.ErrInvalidAmount
	}

	balance, err := s.api.WithdrawCash(ctx, amount)
	if err != nil {
		slog.Error("got error from api.WithdrawCash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	return balance, nil
}

// Chat forwards a message to the portfolio agent inside the caller's thread.
// sessionKey identifies the conversation owner (portfolio id on the web,
// chat id on Telegram). Expired or missing sessions start a fresh thread.
func (s *DashboardService) Chat(ctx context.Context, sessionKey, message string) (model.ChatSession, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.Chat"

	slog.Debug("Chat start", slog.String("rqID", rqID), slog.String("op", op), slog.String("sessionKey", sessionKey))
	defer func() {
		slog.Debug("Chat finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("sessionKey", sessionKey))
	}()

	if message == "" {
		return model.ChatSession{}, service.ErrEmptyMessage
	}

	sess, err := s.chatSessions.GetChatSession(ctx, sessionKey)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from chatSessions.GetChatSession", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.ChatSession{}, err
		}
		sess = model.ChatSession{}
	}

	reply, err := s.api.SendChatMessage(ctx, sess.ThreadID, message)
	if err != nil {
		slog.Error("got error from api.SendChatMessage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ChatSession{}, err
	}

	now := time.Now()
	sess.ThreadID = reply.ThreadID
	sess.Messages = append(sess.Messages,
		model.ChatMessage{Role: model.ChatRoleUser, Text: message, SentAt: now},
		model.ChatMessage{Role: model.ChatRoleAgent, Text: reply.Reply, SentAt: now},
	)

	if err := s.chatSessions.SetChatSession(ctx, sessionKey, sess); err != nil {
		slog.Error("got error from chatSessions.SetChatSession", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return sess, nil
}

// ChatForPortfolio is the web entrypoint: the session is keyed by the
// caller's portfolio id, so the thread survives page reloads.
func (s *DashboardService) ChatForPortfolio(ctx context.Context, message string) (model.ChatSession, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.ChatForPortfolio"

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ChatSession{}, err
	}

	return s.Chat(ctx, portfolioID, message)
}

func (s *DashboardService) ResetChatForPortfolio(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.ResetChatForPortfolio"

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return s.ResetChat(ctx, portfolioID)
}

func (s *DashboardService) ResetChat(ctx context.Context, sessionKey string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.ResetChat"

	slog.Debug("ResetChat start", slog.String("rqID", rqID), slog.String("op", op), slog.String("sessionKey", sessionKey))

	if err := s.chatSessions.DeleteChatSession(ctx, sessionKey); err != nil {
		slog.Error("got error from chatSessions.DeleteChatSession", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// WarmQuotesCache is the scheduled job body: it prices every held and watched
// ticker straight from the core API and refills the cache, using the service's
// own token since there is no inbound request.
func (s *DashboardService) WarmQuotesCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.WarmQuotesCache"

	slog.Debug("WarmQuotesCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("WarmQuotesCache finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	token, err := s.tokenSource.GetToken(ctx)
	if err != nil {
		slog.Error("got error from tokenSource.GetToken", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}
	ctx = utils.CtxWithBearerToken(ctx, token)

	portfolioID, err := s.api.GetPortfolioID(ctx)
	if err != nil {
		slog.Error("got error from api.GetPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	holdings, err := s.api.GetHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from api.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	seen := make(map[string]struct{}, len(holdings))
	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.Ticker]; !ok {
			seen[h.Ticker] = struct{}{}
			tickers = append(tickers, h.Ticker)
		}
	}

	// watched tickers get warmed too, the watchlist view reads the same cache
	watchlist, err := s.api.GetWatchlist(ctx)
	if err != nil {
		slog.Warn("can't get watchlist", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	} else {
		for _, item := range watchlist {
			if _, ok := seen[item.Ticker]; !ok {
				seen[item.Ticker] = struct{}{}
				tickers = append(tickers, item.Ticker)
			}
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	quotes := make([]model.Quote, 0, len(tickers))

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			quote, err := s.api.GetQuote(ctx, ticker)
			if err != nil {
				if !errors.Is(err, externalApi.ErrUnavailable) {
					slog.Warn("can't get quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
				}
				return
			}

			mu.Lock()
			quotes = append(quotes, quote)
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	if len(quotes) == 0 {
		return nil
	}

	if err := s.cache.SetQuotes(ctx, quotes); err != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// CleanupReports is the scheduled job body removing expired report files from
// cloud storage.
func (s *DashboardService) CleanupReports(ctx context.Context) error {
	return s.cloudStorage.DeleteOldFiles(ctx)
}
