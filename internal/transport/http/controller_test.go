package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmoraless/stockr/internal/externalApi"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/service"
)

type stubService struct {
	snapshotFn func(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error)
	buyFn      func(ctx context.Context, order model.Order) error
	depositFn  func(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	chatFn     func(ctx context.Context, message string) (model.ChatSession, error)
}

func (s *stubService) GetPortfolioSnapshot(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error) {
	return s.snapshotFn(ctx, forceRefresh)
}

func (s *stubService) GetPortfolioGrowth(ctx context.Context) (model.GrowthSummary, error) {
	return model.GrowthSummary{}, nil
}

func (s *stubService) BuyAsset(ctx context.Context, order model.Order) error {
	return s.buyFn(ctx, order)
}

func (s *stubService) SellAsset(ctx context.Context, order model.Order) error { return nil }

func (s *stubService) GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error) {
	return nil, nil
}

func (s *stubService) AddToWatchlist(ctx context.Context, ticker string) error      { return nil }
func (s *stubService) RemoveFromWatchlist(ctx context.Context, ticker string) error { return nil }

func (s *stubService) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	return nil, nil
}

func (s *stubService) DeleteTransaction(ctx context.Context, transactionID string) error { return nil }

func (s *stubService) UploadTransactions(ctx context.Context, filename string, file io.Reader) (string, error) {
	return "", nil
}

func (s *stubService) ExportTransactionsReport(ctx context.Context) (string, error) { return "", nil }

func (s *stubService) GetCashBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubService) DepositCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.depositFn(ctx, amount)
}

func (s *stubService) WithdrawCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubService) ChatForPortfolio(ctx context.Context, message string) (model.ChatSession, error) {
	return s.chatFn(ctx, message)
}

func (s *stubService) ResetChatForPortfolio(ctx context.Context) error { return nil }

func TestGetPortfolio(t *testing.T) {
	marketValue := decimal.RequireFromString("1855")
	stub := &stubService{
		snapshotFn: func(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error) {
			assert.False(t, forceRefresh)
			return model.PortfolioSnapshot{
				PortfolioID: "pf-1",
				Holdings: []model.Holding{{
					Ticker:        "AAPL",
					Shares:        decimal.NewFromInt(10),
					BookValue:     decimal.NewFromInt(1500),
					MarketValue:   &marketValue,
					AllocationPct: decimal.NewFromInt(100),
					DisplayColor:  "#F0F0F0",
				}},
				TotalValue: marketValue,
			}, nil
		},
	}

	ctrl := NewController(stub)
	req := httptest.NewRequest(http.MethodGet, "/dashboard/portfolio", nil)
	rec := httptest.NewRecorder()

	ctrl.GetPortfolio(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	res := portfolioResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "pf-1", res.PortfolioID)
	require.Len(t, res.Holdings, 1)
	assert.Equal(t, "AAPL", res.Holdings[0].Ticker)
	require.NotNil(t, res.Holdings[0].MarketValue)
	assert.InDelta(t, 1855, *res.Holdings[0].MarketValue, 0.001)
	assert.InDelta(t, 100, res.Holdings[0].AllocationPercent, 0.001)
	assert.Equal(t, "#F0F0F0", res.Holdings[0].Color)
}

func TestGetPortfolio_RefreshParam(t *testing.T) {
	called := false
	stub := &stubService{
		snapshotFn: func(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error) {
			called = true
			assert.True(t, forceRefresh)
			return model.PortfolioSnapshot{}, nil
		},
	}

	ctrl := NewController(stub)
	req := httptest.NewRequest(http.MethodGet, "/dashboard/portfolio?refresh=true", nil)
	rec := httptest.NewRecorder()

	ctrl.GetPortfolio(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPortfolio_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unauthorized", err: externalApi.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "not found", err: externalApi.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "upstream failure", err: errors.New("connection refused"), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{
				snapshotFn: func(ctx context.Context, forceRefresh bool) (model.PortfolioSnapshot, error) {
					return model.PortfolioSnapshot{}, tt.err
				},
			}

			ctrl := NewController(stub)
			req := httptest.NewRequest(http.MethodGet, "/dashboard/portfolio", nil)
			rec := httptest.NewRecorder()

			ctrl.GetPortfolio(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			res := errorResponse{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestBuyAsset(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "ok",
			body:       `{"ticker":"AAPL","shares":10,"price":185.5}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid body",
			body:       `{bad json`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid order",
			body:       `{"ticker":"AAPL","shares":-1,"price":185.5}`,
			serviceErr: service.ErrInvalidOrder,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{
				buyFn: func(ctx context.Context, order model.Order) error {
					return tt.serviceErr
				},
			}

			ctrl := NewController(stub)
			req := httptest.NewRequest(http.MethodPost, "/dashboard/portfolio/buy", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			ctrl.BuyAsset(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDepositCash(t *testing.T) {
	stub := &stubService{
		depositFn: func(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
			assert.True(t, amount.Equal(decimal.NewFromInt(500)))
			return decimal.RequireFromString("1500.25"), nil
		},
	}

	ctrl := NewController(stub)
	req := httptest.NewRequest(http.MethodPost, "/dashboard/cash/deposit", strings.NewReader(`{"amount":500}`))
	rec := httptest.NewRecorder()

	ctrl.DepositCash(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	res := cashResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 1500.25, res.CashBalance, 0.001)
}

func TestChat(t *testing.T) {
	stub := &stubService{
		chatFn: func(ctx context.Context, message string) (model.ChatSession, error) {
			assert.Equal(t, "how am I doing?", message)
			return model.ChatSession{
				ThreadID: "thread-1",
				Messages: []model.ChatMessage{
					{Role: model.ChatRoleUser, Text: "how am I doing?"},
					{Role: model.ChatRoleAgent, Text: "quite well"},
				},
			}, nil
		},
	}

	ctrl := NewController(stub)
	req := httptest.NewRequest(http.MethodPost, "/dashboard/agent/chat", strings.NewReader(`{"message":"how am I doing?"}`))
	rec := httptest.NewRecorder()

	ctrl.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	res := chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "thread-1", res.ThreadID)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "quite well", res.Messages[1].Text)
}
