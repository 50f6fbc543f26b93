// Package identityApi exchanges a long-lived refresh token for short-lived
// bearer tokens at the identity provider. Web requests carry their own token,
// so this source only backs the Telegram bot and scheduled jobs.
package identityApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jamesmoraless/stockr/config"
	"github.com/jamesmoraless/stockr/internal/externalApi"
	"github.com/jamesmoraless/stockr/utils"
)

// expirySkew renews the cached token ahead of its actual expiry so in-flight
// requests never carry a token that dies mid-call.
const expirySkew = time.Minute

type IdentityApi struct {
	client       *resty.Client
	apiKey       string
	refreshToken string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func New(cfg *config.Config) *IdentityApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.IdentityApi.Url)
	return &IdentityApi{
		client:       client,
		apiKey:       cfg.API.IdentityApi.ApiKey,
		refreshToken: cfg.API.IdentityApi.RefreshToken,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GetToken returns a valid bearer token, refreshing through the grant
// endpoint when the cached one is missing or near expiry.
func (a *IdentityApi) GetToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiresAt.Add(-expirySkew)) {
		return a.token, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "IdentityApi.GetToken"

	slog.Debug("token refresh start", slog.String("rqID", rqID), slog.String("op", op))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", a.apiKey).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": a.refreshToken,
		}).
		Post("/v1/token")
	if err != nil {
		slog.Error("error while dialing identity api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if resp.StatusCode() >= 400 {
		slog.Error("identity api returned error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		if resp.StatusCode() == 400 || resp.StatusCode() == 401 {
			return "", externalApi.ErrUnauthorized
		}
		return "", fmt.Errorf("identity api status %d", resp.StatusCode())
	}

	res := tokenResponse{}
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		slog.Error("can't unmarshal token response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	ttl, err := strconv.Atoi(res.ExpiresIn)
	if err != nil {
		slog.Error("can't parse expires_in", slog.String("rqID", rqID), slog.String("op", op), slog.String("expiresIn", res.ExpiresIn))
		return "", fmt.Errorf("identity api: invalid expires_in %q", res.ExpiresIn)
	}

	a.token = res.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(ttl) * time.Second)

	slog.Debug("token refresh completed", slog.String("rqID", rqID), slog.String("op", op), slog.Time("expiresAt", a.expiresAt))

	return a.token, nil
}
