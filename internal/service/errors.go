package service

import "errors"

var (
	ErrInvalidOrder   = errors.New("error invalid order")
	ErrInvalidAmount  = errors.New("error invalid amount")
	ErrInvalidTicker  = errors.New("error invalid ticker")
	ErrEmptyMessage   = errors.New("error empty message")
	ErrEmptyPortfolio = errors.New("error portfolio is empty")
)
