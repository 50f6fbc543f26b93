// Package stockrApi is the client for the Stockr core REST API. Every call
// sends the caller's bearer token; callers without one fail fast with
// externalApi.ErrUnauthorized before any network dialing.
package stockrApi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/jamesmoraless/stockr/config"
	"github.com/jamesmoraless/stockr/internal/externalApi"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/model/apiModel"
	"github.com/jamesmoraless/stockr/utils"
)

type StockrApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *StockrApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.StockrApi.Url).
		SetHeader("Accept", "application/json")
	return &StockrApi{client: client}
}

func (a *StockrApi) request(ctx context.Context) (*resty.Request, error) {
	token := utils.GetBearerTokenFromCtx(ctx)
	if token == "" {
		return nil, externalApi.ErrUnauthorized
	}
	return a.client.R().
		SetContext(ctx).
		SetAuthToken(token), nil
}

// checkStatus maps upstream HTTP failures onto the client error taxonomy. The
// upstream error body ({"error": "..."}) is folded into the generic case.
func checkStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() < 400:
		return nil
	case resp.StatusCode() == http.StatusUnauthorized:
		return externalApi.ErrUnauthorized
	case resp.StatusCode() == http.StatusNotFound:
		return externalApi.ErrNotFound
	default:
		errResp := apiModel.ErrorResponse{}
		if err := json.Unmarshal(resp.Body(), &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("stockr api status %d: %s", resp.StatusCode(), errResp.Error)
		}
		return fmt.Errorf("stockr api status %d", resp.StatusCode())
	}
}

func (a *StockrApi) GetPortfolioID(ctx context.Context) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetPortfolioID"

	slog.Debug("GetPortfolioID start", slog.String("rqID", rqID), slog.String("op", op))

	req, err := a.request(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.Get("/api/portfolio/id")
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	res := apiModel.PortfolioIDResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal portfolio id response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("GetPortfolioID completed", slog.String("rqID", rqID), slog.String("op", op))

	return res.PortfolioID, nil
}

func (a *StockrApi) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetHoldings"

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))

	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(fmt.Sprintf("/api/portfolio/%s", portfolioID))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	res := apiModel.PortfolioResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal portfolio response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	holdings := make([]model.Holding, 0, len(res.Portfolio))
	for _, entry := range res.Portfolio {
		holdings = append(holdings, model.Holding{
			Ticker:      strings.ToUpper(entry.Ticker),
			Shares:      entry.Shares,
			AverageCost: entry.AverageCost,
			BookValue:   entry.BookValue,
		})
	}

	slog.Debug("GetHoldings completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(holdings)))

	return holdings, nil
}

func (a *StockrApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetQuote"

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	req, err := a.request(ctx)
	if err != nil {
		return model.Quote{}, err
	}

	resp, err := req.Get(fmt.Sprintf("/api/stock/current/%s", strings.ToUpper(ticker)))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	if err := checkStatus(resp); err != nil {
		return model.Quote{}, err
	}

	res := apiModel.QuoteResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal quote response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	if !res.MarketPrice.Available {
		return model.Quote{Ticker: strings.ToUpper(ticker)}, externalApi.ErrUnavailable
	}

	slog.Debug("GetQuote completed", slog.String("rqID", rqID), slog.String("op", op))

	return model.Quote{
		Ticker:    strings.ToUpper(res.Ticker),
		Price:     res.MarketPrice.Price,
		Available: true,
	}, nil
}

func (a *StockrApi) GetHistory(ctx context.Context, portfolioID string) ([]model.HistoryPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetHistory"

	slog.Debug("GetHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))

	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(fmt.Sprintf("/api/portfolio/%s/history", portfolioID))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	res := apiModel.HistoryResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal history response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	points := make([]model.HistoryPoint, 0, len(res.History))
	for _, entry := range res.History {
		date, err := parseDate(entry.Date)
		if err != nil {
			slog.Error("can't parse history date", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", entry.Date), slog.String("err", err.Error()))
			return nil, err
		}

		value := entry.Value
		if entry.MarketValue != nil {
			value = *entry.MarketValue
		}

		points = append(points, model.HistoryPoint{Date: date, Value: value})
	}

	slog.Debug("GetHistory completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(points)))

	return points, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (a *StockrApi) placeOrder(ctx context.Context, portfolioID, path string, order model.Order) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.placeOrder"

	req, err := a.request(ctx)
	if err != nil {
		return err
	}

	body := apiModel.OrderRequest{
		Ticker:          strings.ToUpper(order.Ticker),
		Shares:          order.Shares,
		Price:           order.Price,
		TransactionType: order.Type,
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("/api/portfolio/%s/%s", portfolioID, path))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return checkStatus(resp)
}

func (a *StockrApi) AddAsset(ctx context.Context, portfolioID string, order model.Order) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.AddAsset"

	slog.Debug("AddAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	defer func() {
		slog.Debug("AddAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	}()

	return a.placeOrder(ctx, portfolioID, "add-asset", order)
}

func (a *StockrApi) SellAsset(ctx context.Context, portfolioID string, order model.Order) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.SellAsset"

	slog.Debug("SellAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	defer func() {
		slog.Debug("SellAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", order.Ticker))
	}()

	return a.placeOrder(ctx, portfolioID, "sell-asset", order)
}

func (a *StockrApi) GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetWatchlist"

	slog.Debug("GetWatchlist start", slog.String("rqID", rqID), slog.String("op", op))

	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get("/api/watchlist/stocks")
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	entries := []apiModel.WatchlistStockEntry{}
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		slog.Error("can't unmarshal watchlist response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	items := make([]model.WatchlistItem, 0, len(entries))
	for _, entry := range entries {
		if entry.Error != "" {
			// per-ticker fundamentals failure upstream, keep the row bare
			slog.Warn("watchlist entry degraded", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", entry.Ticker), slog.String("err", entry.Error))
			items = append(items, model.WatchlistItem{Ticker: strings.ToUpper(entry.Ticker)})
			continue
		}
		items = append(items, model.WatchlistItem{
			Ticker:      strings.ToUpper(entry.Ticker),
			Description: entry.Description,
			Fundamentals: model.Fundamentals{
				Company:      entry.Fundamentals.Company,
				Sector:       entry.Fundamentals.Sector,
				CurrentPrice: entry.Fundamentals.CurrentPrice,
				Change:       entry.Fundamentals.Change,
				Volume:       entry.Fundamentals.Volume,
				AvgVolume:    entry.Fundamentals.AvgVolume,
				MarketCap:    entry.Fundamentals.MarketCap,
				PERatio:      entry.Fundamentals.PERatio,
				Week52High:   entry.Fundamentals.Week52High,
				Week52Low:    entry.Fundamentals.Week52Low,
				Beta:         entry.Fundamentals.Beta,
			},
		})
	}

	slog.Debug("GetWatchlist completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(items)))

	return items, nil
}

func (a *StockrApi) AddToWatchlist(ctx context.Context, ticker string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.AddToWatchlist"

	slog.Debug("AddToWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	req, err := a.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(apiModel.WatchlistAddRequest{Ticker: strings.ToUpper(ticker)}).
		Post("/api/watchlist")
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return checkStatus(resp)
}

func (a *StockrApi) RemoveFromWatchlist(ctx context.Context, ticker string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.RemoveFromWatchlist"

	slog.Debug("RemoveFromWatchlist start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	req, err := a.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete(fmt.Sprintf("/api/watchlist/%s", strings.ToUpper(ticker)))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return checkStatus(resp)
}

func (a *StockrApi) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetTransactions"

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("op", op))

	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get("/api/transactions")
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	res := apiModel.TransactionsResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal transactions response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	txns := make([]model.Transaction, 0, len(res.Transactions))
	for _, entry := range res.Transactions {
		createdAt, err := time.Parse(time.RFC3339, entry.CreatedAt)
		if err != nil {
			// upstream emits isoformat without zone on some rows
			createdAt, err = time.Parse("2006-01-02T15:04:05", entry.CreatedAt)
			if err != nil {
				slog.Error("can't parse transaction created_at", slog.String("rqID", rqID), slog.String("op", op), slog.String("createdAt", entry.CreatedAt), slog.String("err", err.Error()))
				return nil, err
			}
		}
		txns = append(txns, model.Transaction{
			ID:        entry.ID,
			Ticker:    strings.ToUpper(entry.Ticker),
			Shares:    entry.Shares,
			Price:     entry.Price,
			Type:      strings.ToLower(entry.TransactionType),
			CreatedAt: createdAt,
		})
	}

	slog.Debug("GetTransactions completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(txns)))

	return txns, nil
}

func (a *StockrApi) DeleteTransaction(ctx context.Context, transactionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.DeleteTransaction"

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID))

	req, err := a.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete(fmt.Sprintf("/api/transactions/%s", transactionID))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return checkStatus(resp)
}

func (a *StockrApi) GetCashBalance(ctx context.Context) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.GetCashBalance"

	slog.Debug("GetCashBalance start", slog.String("rqID", rqID), slog.String("op", op))

	req, err := a.request(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := req.Get("/api/cash/balance")
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	if err := checkStatus(resp); err != nil {
		return decimal.Decimal{}, err
	}

	res := apiModel.CashBalanceResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal cash balance response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	return res.CashBalance, nil
}

func (a *StockrApi) moveCash(ctx context.Context, path string, amount decimal.Decimal) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.moveCash"

	req, err := a.request(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(apiModel.CashAmountRequest{Amount: amount}).
		Post(path)
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	if err := checkStatus(resp); err != nil {
		return decimal.Decimal{}, err
	}

	res := apiModel.CashBalanceResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal cash balance response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	return res.CashBalance, nil
}

func (a *StockrApi) DepositCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return a.moveCash(ctx, "/api/cash/deposit", amount)
}

func (a *StockrApi) WithdrawCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return a.moveCash(ctx, "/api/cash/withdraw", amount)
}

// SendChatMessage posts to the conversational agent. An empty threadID starts
// a new thread; the response always carries the thread id to continue on.
func (a *StockrApi) SendChatMessage(ctx context.Context, threadID, message string) (model.ChatReply, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.SendChatMessage"

	slog.Debug("SendChatMessage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("threadID", threadID))

	req, err := a.request(ctx)
	if err != nil {
		return model.ChatReply{}, err
	}

	url := "/api/portfolio/chat"
	if threadID != "" {
		url = fmt.Sprintf("/api/portfolio/chat/%s", threadID)
	}

	resp, err := req.
		SetHeader("Content-Type", "application/json").
		SetBody(apiModel.ChatRequest{Message: message}).
		Post(url)
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ChatReply{}, err
	}

	if err := checkStatus(resp); err != nil {
		return model.ChatReply{}, err
	}

	res := apiModel.ChatResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal chat response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ChatReply{}, err
	}

	slog.Debug("SendChatMessage completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("threadID", res.ThreadID))

	return model.ChatReply{ThreadID: res.ThreadID, Reply: res.Reply}, nil
}

// UploadTransactionsCSV streams a CSV of transactions into the portfolio.
// Returns the upstream status message.
func (a *StockrApi) UploadTransactionsCSV(ctx context.Context, portfolioID, filename string, file io.Reader) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockrApi.UploadTransactionsCSV"

	slog.Debug("UploadTransactionsCSV start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	req, err := a.request(ctx)
	if err != nil {
		return "", err
	}

	resp, err := req.
		SetFileReader("file", filename, file).
		Post(fmt.Sprintf("/api/portfolio/%s/upload-transactions", portfolioID))
	if err != nil {
		slog.Error("error while dialing stockr api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	res := apiModel.UploadTransactionsResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal upload response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadTransactionsCSV completed", slog.String("rqID", rqID), slog.String("op", op))

	return res.Message, nil
}
