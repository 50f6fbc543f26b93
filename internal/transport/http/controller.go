package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jamesmoraless/stockr/internal/externalApi"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/service"
	"github.com/jamesmoraless/stockr/utils"
)

type DashboardService interface {
	GetPortfolioSnapshot(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error)
	GetPortfolioGrowth(ctx context.Context) (model.GrowthSummary, error)
	BuyAsset(ctx context.Context, order model.Order) error
	SellAsset(ctx context.Context, order model.Order) error
	GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error)
	AddToWatchlist(ctx context.Context, ticker string) error
	RemoveFromWatchlist(ctx context.Context, ticker string) error
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID string) error
	UploadTransactions(ctx context.Context, filename string, file io.Reader) (string, error)
	ExportTransactionsReport(ctx context.Context) (string, error)
	GetCashBalance(ctx context.Context) (decimal.Decimal, error)
	DepositCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	WithdrawCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	ChatForPortfolio(ctx context.Context, message string) (model.ChatSession, error)
	ResetChatForPortfolio(ctx context.Context) error
}

type Controller struct {
	service DashboardService
}

func NewController(service DashboardService) *Controller {
	return &Controller{service: service}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error(
			"can't encode response",
			slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
			slog.String("err", err.Error()),
		)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, errorResponse{Error: msg})
}

// mapError folds service and upstream failures into the transport status
// codes: auth problems stay 401, validation is the caller's fault, anything
// else means the core API let us down.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, externalApi.ErrUnauthorized):
		respondError(w, r, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, externalApi.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTicker),
		errors.Is(err, service.ErrEmptyMessage):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmptyPortfolio):
		respondError(w, r, http.StatusBadRequest, "nothing to export")
	default:
		respondError(w, r, http.StatusBadGateway, "upstream unavailable")
	}
}

type holdingResponse struct {
	Ticker            string   `json:"ticker"`
	Shares            float64  `json:"shares"`
	AverageCost       float64  `json:"average_cost"`
	BookValue         float64  `json:"book_value"`
	MarketPrice       *float64 `json:"market_price"`
	MarketValue       *float64 `json:"market_value"`
	AllocationPercent float64  `json:"allocation_percent"`
	Color             string   `json:"color"`
}

type portfolioResponse struct {
	PortfolioID string            `json:"portfolio_id"`
	Holdings    []holdingResponse `json:"holdings"`
	TotalValue  float64           `json:"total_value"`
}

func toPortfolioResponse(snapshot model.PortfolioSnapshot) portfolioResponse {
	holdings := make([]holdingResponse, 0, len(snapshot.Holdings))
	for _, h := range snapshot.Holdings {
		hr := holdingResponse{
			Ticker:            h.Ticker,
			Shares:            h.Shares.InexactFloat64(),
			AverageCost:       h.AverageCost.InexactFloat64(),
			BookValue:         h.BookValue.InexactFloat64(),
			AllocationPercent: h.AllocationPct.Round(2).InexactFloat64(),
			Color:             h.DisplayColor,
		}
		if h.MarketPrice != nil {
			v := h.MarketPrice.InexactFloat64()
			hr.MarketPrice = &v
		}
		if h.MarketValue != nil {
			v := h.MarketValue.InexactFloat64()
			hr.MarketValue = &v
		}
		holdings = append(holdings, hr)
	}
	return portfolioResponse{
		PortfolioID: snapshot.PortfolioID,
		Holdings:    holdings,
		TotalValue:  snapshot.TotalValue.Round(2).InexactFloat64(),
	}
}

func (ctrl *Controller) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	snapshot, err := ctrl.service.GetPortfolioSnapshot(r.Context(), forceRefresh)
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toPortfolioResponse(snapshot))
}

type growthPointResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type growthResponse struct {
	GrowthPercent float64               `json:"growth_percent"`
	DisplayValue  float64               `json:"display_value"`
	Series        []growthPointResponse `json:"series"`
}

func (ctrl *Controller) GetPortfolioGrowth(w http.ResponseWriter, r *http.Request) {
	growth, err := ctrl.service.GetPortfolioGrowth(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	series := make([]growthPointResponse, 0, len(growth.Series))
	for _, p := range growth.Series {
		series = append(series, growthPointResponse{
			Date:  p.Date.Format("2006-01-02"),
			Value: p.Value.Round(2).InexactFloat64(),
		})
	}

	respondJSON(w, r, http.StatusOK, growthResponse{
		GrowthPercent: growth.GrowthPercent.Round(2).InexactFloat64(),
		DisplayValue:  growth.DisplayValue.Round(2).InexactFloat64(),
		Series:        series,
	})
}

type orderRequest struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
}

func (ctrl *Controller) BuyAsset(w http.ResponseWriter, r *http.Request) {
	req := orderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	err := ctrl.service.BuyAsset(r.Context(), model.Order{Ticker: req.Ticker, Shares: req.Shares, Price: req.Price})
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, messageResponse{Message: "asset purchased"})
}

func (ctrl *Controller) SellAsset(w http.ResponseWriter, r *http.Request) {
	req := orderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	err := ctrl.service.SellAsset(r.Context(), model.Order{Ticker: req.Ticker, Shares: req.Shares, Price: req.Price})
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, messageResponse{Message: "asset sold"})
}

type watchlistItemResponse struct {
	Ticker       string               `json:"ticker"`
	Description  string               `json:"description,omitempty"`
	Fundamentals fundamentalsResponse `json:"fundamentals"`
}

type fundamentalsResponse struct {
	Company      string `json:"company"`
	Sector       string `json:"sector"`
	CurrentPrice string `json:"current_price"`
	Change       string `json:"change"`
	Volume       string `json:"volume"`
	AvgVolume    string `json:"avg_volume"`
	MarketCap    string `json:"market_cap"`
	PERatio      string `json:"pe_ratio"`
	Week52High   string `json:"52_week_high"`
	Week52Low    string `json:"52_week_low"`
	Beta         string `json:"beta"`
}

func (ctrl *Controller) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := ctrl.service.GetWatchlist(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	res := make([]watchlistItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, watchlistItemResponse{
			Ticker:      item.Ticker,
			Description: item.Description,
			Fundamentals: fundamentalsResponse{
				Company:      item.Fundamentals.Company,
				Sector:       item.Fundamentals.Sector,
				CurrentPrice: item.Fundamentals.CurrentPrice,
				Change:       item.Fundamentals.Change,
				Volume:       item.Fundamentals.Volume,
				AvgVolume:    item.Fundamentals.AvgVolume,
				MarketCap:    item.Fundamentals.MarketCap,
				PERatio:      item.Fundamentals.PERatio,
				Week52High:   item.Fundamentals.Week52High,
				Week52Low:    item.Fundamentals.Week52Low,
				Beta:         item.Fundamentals.Beta,
			},
		})
	}

	respondJSON(w, r, http.StatusOK, res)
}

type watchlistAddRequest struct {
	Ticker string `json:"ticker"`
}

func (ctrl *Controller) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	req := watchlistAddRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := ctrl.service.AddToWatchlist(r.Context(), req.Ticker); err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, messageResponse{Message: "ticker added to watchlist"})
}

func (ctrl *Controller) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	if err := ctrl.service.RemoveFromWatchlist(r.Context(), ticker); err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, messageResponse{Message: "ticker removed from watchlist"})
}

type transactionResponse struct {
	ID        string  `json:"id"`
	Ticker    string  `json:"ticker"`
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
	Type      string  `json:"transaction_type"`
	CreatedAt string  `json:"created_at"`
}

func (ctrl *Controller) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := ctrl.service.GetTransactions(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	res := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		res = append(res, transactionResponse{
			ID:        txn.ID,
			Ticker:    txn.Ticker,
			Shares:    txn.Shares.InexactFloat64(),
			Price:     txn.Price.InexactFloat64(),
			Type:      txn.Type,
			CreatedAt: txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	respondJSON(w, r, http.StatusOK, res)
}

func (ctrl *Controller) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	if err := ctrl.service.DeleteTransaction(r.Context(), transactionID); err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, messageResponse{Message: "transaction deleted"})
}

// UploadTransactions accepts a multipart CSV and forwards it to the core API.
func (ctrl *Controller) UploadTransactions(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	msg, err := ctrl.service.UploadTransactions(r.Context(), header.Filename, file)
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, messageResponse{Message: msg})
}

type reportResponse struct {
	DownloadLink string `json:"download_link"`
}

func (ctrl *Controller) ExportTransactionsReport(w http.ResponseWriter, r *http.Request) {
	link, err := ctrl.service.ExportTransactionsReport(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, reportResponse{DownloadLink: link})
}

type cashResponse struct {
	CashBalance float64 `json:"cash_balance"`
}

func (ctrl *Controller) GetCashBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := ctrl.service.GetCashBalance(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, cashResponse{CashBalance: balance.InexactFloat64()})
}

type cashAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (ctrl *Controller) DepositCash(w http.ResponseWriter, r *http.Request) {
	req := cashAmountRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := ctrl.service.DepositCash(r.Context(), req.Amount)
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, cashResponse{CashBalance: balance.InexactFloat64()})
}

func (ctrl *Controller) WithdrawCash(w http.ResponseWriter, r *http.Request) {
	req := cashAmountRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := ctrl.service.WithdrawCash(r.Context(), req.Amount)
	if err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, cashResponse{CashBalance: balance.InexactFloat64()})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatMessageResponse struct {
	Role   string `json:"role"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at"`
}

type chatResponse struct {
	ThreadID string                `json:"thread_id"`
	Messages []chatMessageResponse `json:"messages"`
}

func (ctrl *Controller) Chat(w http.ResponseWriter, r *http.Request) {
	req := chatRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := ctrl.service.ChatForPortfolio(r.Context(), req.Message)
	if err != nil {
		mapError(w, r, err)
		return
	}

	messages := make([]chatMessageResponse, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		messages = append(messages, chatMessageResponse{
			Role:   msg.Role,
			Text:   msg.Text,
			SentAt: msg.SentAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	respondJSON(w, r, http.StatusOK, chatResponse{ThreadID: sess.ThreadID, Messages: messages})
}

func (ctrl *Controller) ResetChat(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.service.ResetChatForPortfolio(r.Context()); err != nil {
		mapError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, messageResponse{Message: "chat reset"})
}

func (ctrl *Controller) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, messageResponse{Message: "ok"})
}
