package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesmoraless/stockr/utils"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rqID := r.Header.Get("X-Request-ID")
		if rqID == "" {
			rqID = uuid.NewString()
		}

		ctx := utils.CtxWithRqID(r.Context(), rqID)
		w.Header().Set("X-Request-ID", rqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		rqID := utils.GetRequestIDFromCtx(r.Context())

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware pulls the bearer token off the request and stashes it in the
// context for the downstream API client. The token is passed through to the
// core API, never verified here.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, r, http.StatusUnauthorized, "not authenticated")
			return
		}

		ctx := utils.CtxWithBearerToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
