// Package http serves the dashboard REST surface consumed by the web client.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jamesmoraless/stockr/config"
)

type Server struct {
	server *http.Server
}

func NewServer(cfg *config.Config, ctrl *Controller) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", ctrl.Health)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", ctrl.GetPortfolio)
			r.Get("/growth", ctrl.GetPortfolioGrowth)
			r.Post("/buy", ctrl.BuyAsset)
			r.Post("/sell", ctrl.SellAsset)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", ctrl.GetWatchlist)
			r.Post("/", ctrl.AddToWatchlist)
			r.Delete("/{ticker}", ctrl.RemoveFromWatchlist)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", ctrl.GetTransactions)
			r.Delete("/{transactionID}", ctrl.DeleteTransaction)
			r.Post("/upload", ctrl.UploadTransactions)
			r.Post("/report", ctrl.ExportTransactionsReport)
		})

		r.Route("/cash", func(r chi.Router) {
			r.Get("/", ctrl.GetCashBalance)
			r.Post("/deposit", ctrl.DepositCash)
			r.Post("/withdraw", ctrl.WithdrawCash)
		})

		r.Route("/agent", func(r chi.Router) {
			r.Post("/chat", ctrl.Chat)
			r.Delete("/chat", ctrl.ResetChat)
		})
	})

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      r,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

func (s *Server) Run() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
