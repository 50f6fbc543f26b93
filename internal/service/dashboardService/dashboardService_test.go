package dashboardService

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesmoraless/stockr/data/cache"
	"github.com/jamesmoraless/stockr/data/session"
	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/internal/service"
)

type stubApi struct {
	holdings  []model.Holding
	quotes    map[string]model.Quote
	quoteErrs map[string]error
	chatReply model.ChatReply

	mu         sync.Mutex
	quoteCalls []string
}

func (a *stubApi) GetPortfolioID(ctx context.Context) (string, error) { return "pf-1", nil }

func (a *stubApi) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	return a.holdings, nil
}

func (a *stubApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	a.mu.Lock()
	a.quoteCalls = append(a.quoteCalls, ticker)
	a.mu.Unlock()

	if err, ok := a.quoteErrs[ticker]; ok {
		return model.Quote{}, err
	}
	return a.quotes[ticker], nil
}

func (a *stubApi) GetHistory(ctx context.Context, portfolioID string) ([]model.HistoryPoint, error) {
	return nil, nil
}

func (a *stubApi) AddAsset(ctx context.Context, portfolioID string, order model.Order) error {
	return nil
}

func (a *stubApi) SellAsset(ctx context.Context, portfolioID string, order model.Order) error {
	return nil
}

func (a *stubApi) GetWatchlist(ctx context.Context) ([]model.WatchlistItem, error) { return nil, nil }
func (a *stubApi) AddToWatchlist(ctx context.Context, ticker string) error         { return nil }
func (a *stubApi) RemoveFromWatchlist(ctx context.Context, ticker string) error    { return nil }
func (a *stubApi) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	return nil, nil
}
func (a *stubApi) DeleteTransaction(ctx context.Context, transactionID string) error { return nil }
func (a *stubApi) UploadTransactionsCSV(ctx context.Context, portfolioID, filename string, file io.Reader) (string, error) {
	return "", nil
}
func (a *stubApi) GetCashBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (a *stubApi) DepositCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (a *stubApi) WithdrawCash(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (a *stubApi) SendChatMessage(ctx context.Context, threadID, message string) (model.ChatReply, error) {
	return a.chatReply, nil
}

type stubCache struct {
	mu       sync.Mutex
	cached   map[string]model.Quote
	getCalls int
	stored   []model.Quote
}

func (c *stubCache) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	q, ok := c.cached[ticker]
	if !ok {
		return model.Quote{}, cache.ErrNotFound
	}
	return q, nil
}

func (c *stubCache) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	res := map[string]model.Quote{}
	for _, t := range tickers {
		if q, ok := c.cached[t]; ok {
			res[t] = q
		}
	}
	return res, nil
}

func (c *stubCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, quotes...)
	return nil
}

func (c *stubCache) storedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stored)
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]model.ChatSession
}

func (s *stubSessions) GetChatSession(ctx context.Context, key string) (model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return model.ChatSession{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *stubSessions) SetChatSession(ctx context.Context, key string, sess model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = map[string]model.ChatSession{}
	}
	s.sessions[key] = sess
	return nil
}

func (s *stubSessions) DeleteChatSession(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

func newTestService(api *stubApi, c *stubCache, sess *stubSessions) *DashboardService {
	if c == nil {
		c = &stubCache{}
	}
	if sess == nil {
		sess = &stubSessions{}
	}
	return New(api, c, sess, nil, nil, nil)
}

func TestGetPortfolioSnapshot_FailingTickerIsolated(t *testing.T) {
	api := &stubApi{
		holdings: []model.Holding{
			holding("AAPL", "1", "90"),
			holding("FAIL", "2", "100"),
		},
		quotes: map[string]model.Quote{
			"AAPL": quote("AAPL", "100"),
		},
		quoteErrs: map[string]error{
			"FAIL": errors.New("quote source down"),
		},
	}

	srv := newTestService(api, nil, nil)

	snapshot, err := srv.GetPortfolioSnapshot(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, snapshot.Holdings, 2)
	assert.True(t, snapshot.TotalValue.Equal(dec("100")))
	assert.NotNil(t, snapshot.Holdings[0].MarketValue)
	assert.Nil(t, snapshot.Holdings[1].MarketValue)
}

func TestGetPortfolioSnapshot_UsesCache(t *testing.T) {
	api := &stubApi{
		holdings: []model.Holding{holding("AAPL", "1", "90")},
	}
	c := &stubCache{
		cached: map[string]model.Quote{"AAPL": quote("AAPL", "100")},
	}

	srv := newTestService(api, c, nil)

	snapshot, err := srv.GetPortfolioSnapshot(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, snapshot.TotalValue.Equal(dec("100")))
	assert.Empty(t, api.quoteCalls, "cached ticker must not hit the api")
}

func TestGetPortfolioSnapshot_ForceRefreshBypassesCache(t *testing.T) {
	api := &stubApi{
		holdings: []model.Holding{holding("AAPL", "1", "90")},
		quotes:   map[string]model.Quote{"AAPL": quote("AAPL", "120")},
	}
	c := &stubCache{
		cached: map[string]model.Quote{"AAPL": quote("AAPL", "100")},
	}

	srv := newTestService(api, c, nil)

	snapshot, err := srv.GetPortfolioSnapshot(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, snapshot.TotalValue.Equal(dec("120")), "got %s", snapshot.TotalValue)
	assert.Equal(t, []string{"AAPL"}, api.quoteCalls)
	assert.Equal(t, 0, c.getCalls)

	// fetched quotes land in the cache asynchronously
	assert.Eventually(t, func() bool { return c.storedCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestGetQuote_CacheHitSkipsApi(t *testing.T) {
	api := &stubApi{}
	c := &stubCache{
		cached: map[string]model.Quote{"AAPL": quote("AAPL", "100")},
	}

	srv := newTestService(api, c, nil)

	q, err := srv.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, q.Price.Equal(dec("100")))
	assert.Empty(t, api.quoteCalls)
}

func TestGetQuote_CacheMissFallsThroughAndStores(t *testing.T) {
	api := &stubApi{
		quotes: map[string]model.Quote{"AAPL": quote("AAPL", "120")},
	}
	c := &stubCache{}

	srv := newTestService(api, c, nil)

	q, err := srv.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, q.Price.Equal(dec("120")))
	assert.Equal(t, []string{"AAPL"}, api.quoteCalls)
	assert.Eventually(t, func() bool { return c.storedCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestGetQuote_EmptyTicker(t *testing.T) {
	srv := newTestService(&stubApi{}, nil, nil)

	_, err := srv.GetQuote(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrInvalidTicker)
}

func TestSellAsset_RejectsOverselling(t *testing.T) {
	api := &stubApi{
		holdings: []model.Holding{holding("AAPL", "5", "500")},
	}

	srv := newTestService(api, nil, nil)

	err := srv.SellAsset(context.Background(), model.Order{
		Ticker: "AAPL",
		Shares: dec("10"),
		Price:  dec("100"),
	})
	assert.ErrorIs(t, err, service.ErrInvalidOrder)

	err = srv.SellAsset(context.Background(), model.Order{
		Ticker: "AAPL",
		Shares: dec("5"),
		Price:  dec("100"),
	})
	assert.NoError(t, err)
}

func TestBuyAsset_Validation(t *testing.T) {
	srv := newTestService(&stubApi{}, nil, nil)

	err := srv.BuyAsset(context.Background(), model.Order{Ticker: "", Shares: dec("1"), Price: dec("1")})
	assert.ErrorIs(t, err, service.ErrInvalidTicker)

	err = srv.BuyAsset(context.Background(), model.Order{Ticker: "AAPL", Shares: dec("0"), Price: dec("1")})
	assert.ErrorIs(t, err, service.ErrInvalidOrder)

	err = srv.BuyAsset(context.Background(), model.Order{Ticker: "AAPL", Shares: dec("1"), Price: dec("-5")})
	assert.ErrorIs(t, err, service.ErrInvalidOrder)
}

func TestChat(t *testing.T) {
	api := &stubApi{
		chatReply: model.ChatReply{ThreadID: "thread-1", Reply: "hello there"},
	}
	sessions := &stubSessions{}

	srv := newTestService(api, nil, sessions)

	sess, err := srv.Chat(context.Background(), "pf-1", "hi")
	require.NoError(t, err)

	assert.Equal(t, "thread-1", sess.ThreadID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.ChatRoleUser, sess.Messages[0].Role)
	assert.Equal(t, "hi", sess.Messages[0].Text)
	assert.Equal(t, model.ChatRoleAgent, sess.Messages[1].Role)
	assert.Equal(t, "hello there", sess.Messages[1].Text)

	// second turn continues the stored thread
	sess, err = srv.Chat(context.Background(), "pf-1", "and again")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 4)
}

func TestChat_EmptyMessage(t *testing.T) {
	srv := newTestService(&stubApi{}, nil, nil)

	_, err := srv.Chat(context.Background(), "pf-1", "")
	assert.ErrorIs(t, err, service.ErrEmptyMessage)
}
